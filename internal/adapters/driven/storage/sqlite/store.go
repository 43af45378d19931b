package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/mspec/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Factory creates SQLite archive stores.
type Factory struct{}

var _ driven.ArchiveStoreFactory = Factory{}

// Create initialises a fresh archive database at path. An existing file
// is refused.
func (Factory) Create(ctx context.Context, path string) (driven.ArchiveStore, error) {
	return NewStore(ctx, path)
}

// Open opens an existing archive database read-only.
func (Factory) Open(ctx context.Context, path string) (driven.ArchiveStore, error) {
	return OpenStore(ctx, path)
}

// Store is a unified SQLite-based archive that provides access to
// all archive store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	closed bool
}

var _ driven.ArchiveStore = (*Store)(nil)

// NewStore creates a new archive database at path and applies the schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty store path", domain.ErrInvalidInput)
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", domain.ErrInvalidInput, path)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	// Rollback journal, not WAL: the archive must be one self-contained file.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: path,
	}

	// Run migrations
	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// OpenStore opens an existing archive database read-only.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("store %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat store: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	var version int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil || version == 0 {
		db.Close()
		return nil, fmt.Errorf("%w: %s is not an archive", domain.ErrInvalidInput, path)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection. Further calls are no-ops.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// SectionStore returns a SectionStore interface backed by this store.
func (s *Store) SectionStore() driven.SectionStore {
	return &sectionStore{store: s}
}

// AttachmentStore returns an AttachmentStore interface backed by this store.
func (s *Store) AttachmentStore() driven.AttachmentStore {
	return &attachmentStore{store: s}
}

// CustomDataStore returns a CustomDataStore interface backed by this store.
func (s *Store) CustomDataStore() driven.CustomDataStore {
	return &customDataStore{store: s}
}

// conn returns the database handle, or ErrStoreClosed.
func (s *Store) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	return s.db, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(ctx context.Context, fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument inserts a document and assigns its ID.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	db, err := s.store.conn()
	if err != nil {
		return err
	}
	if !doc.Kind.IsValid() {
		return fmt.Errorf("%w: document kind %q", domain.ErrInvalidInput, doc.Kind)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO document (kind, guid, key, name, code)
		VALUES (?, ?, ?, ?, ?)
	`, string(doc.Kind), doc.GUID, doc.Key, doc.Name, doc.Code)
	if err != nil {
		return fmt.Errorf("saving document: %w", mapConstraint(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}
	doc.ID = id
	return nil
}

// ListDocuments returns all documents in insertion order.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, guid, key, name, code
		FROM document ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var kind string
		if err := rows.Scan(&doc.ID, &kind, &doc.GUID, &doc.Key, &doc.Name, &doc.Code); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Kind = domain.DocumentKind(kind)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// SaveCrossReferences inserts links in one transaction.
func (s *documentStore) SaveCrossReferences(ctx context.Context, refs []domain.CrossReference) error {
	db, err := s.store.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cross_reference (from_document_id, from_section_id, to_document_id, position)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, len(refs))
	for i, ref := range refs {
		res, err := stmt.ExecContext(ctx, ref.FromDocument, nullInt64(ref.FromSection), ref.ToDocument, ref.Position)
		if err != nil {
			return fmt.Errorf("saving cross reference: %w", mapConstraint(err))
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading cross reference id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	for i := range refs {
		refs[i].ID = ids[i]
	}
	return nil
}

// ListCrossReferences returns all links in insertion order.
func (s *documentStore) ListCrossReferences(ctx context.Context) ([]domain.CrossReference, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, from_document_id, from_section_id, to_document_id, position
		FROM cross_reference ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying cross references: %w", err)
	}
	defer rows.Close()

	var refs []domain.CrossReference //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ref domain.CrossReference
		var fromSection sql.NullInt64
		if err := rows.Scan(&ref.ID, &ref.FromDocument, &fromSection, &ref.ToDocument, &ref.Position); err != nil {
			return nil, fmt.Errorf("scanning cross reference: %w", err)
		}
		if fromSection.Valid {
			ref.FromSection = &fromSection.Int64
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cross references: %w", err)
	}

	return refs, nil
}

// ==================== Section Store ====================

// sectionStore implements driven.SectionStore.
type sectionStore struct {
	store *Store
}

var _ driven.SectionStore = (*sectionStore)(nil)

// SaveTree inserts the tree front to back so every parent ID is known
// before its children are written. IDs are assigned only on commit.
func (s *sectionStore) SaveTree(ctx context.Context, doc *domain.Document, tree *domain.SectionTree) error {
	db, err := s.store.conn()
	if err != nil {
		return err
	}
	if doc.ID == 0 {
		return fmt.Errorf("%w: document has not been saved", domain.ErrInvalidInput)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO section (document_id, kind, parent_id, section_no, heading, body, guid)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, len(tree.Sections))
	for i := range tree.Sections {
		sec := &tree.Sections[i]

		var parentID *int64
		if sec.ParentKey != nil {
			if *sec.ParentKey >= i {
				return fmt.Errorf("%w: section %d precedes its parent", domain.ErrInvalidInput, i)
			}
			parentID = &ids[*sec.ParentKey]
		}

		res, err := stmt.ExecContext(ctx, doc.ID, string(doc.Kind), nullInt64(parentID),
			sec.SectionNo, sec.Heading, sec.Body, sec.GUID)
		if err != nil {
			return fmt.Errorf("saving section %q: %w", sec.Heading, mapConstraint(err))
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading section id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	for i := range tree.Sections {
		sec := &tree.Sections[i]
		sec.ID = ids[i]
		sec.DocumentID = doc.ID
		sec.Kind = doc.Kind
		if sec.ParentKey != nil {
			parentID := ids[*sec.ParentKey]
			sec.ParentID = &parentID
		}
	}
	return nil
}

// ListSections returns sections ordered by ID, filtered by kind unless empty.
func (s *sectionStore) ListSections(ctx context.Context, kind domain.DocumentKind) ([]domain.Section, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, document_id, kind, parent_id, section_no, heading, body, guid FROM section`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()

	var sections []domain.Section //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sec domain.Section
		var kindStr string
		var parentID sql.NullInt64
		if err := rows.Scan(&sec.ID, &sec.DocumentID, &kindStr, &parentID,
			&sec.SectionNo, &sec.Heading, &sec.Body, &sec.GUID); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		sec.Kind = domain.DocumentKind(kindStr)
		if parentID.Valid {
			sec.ParentID = &parentID.Int64
		}
		sections = append(sections, sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sections: %w", err)
	}

	return sections, nil
}

// UpdateBody replaces the body of a section.
func (s *sectionStore) UpdateBody(ctx context.Context, sectionID int64, body string) error {
	db, err := s.store.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, "UPDATE section SET body = ? WHERE id = ?", body, sectionID)
	if err != nil {
		return fmt.Errorf("updating section body: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating section body: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("section %d: %w", sectionID, domain.ErrNotFound)
	}
	return nil
}

// ==================== Attachment Store ====================

// attachmentStore implements driven.AttachmentStore.
type attachmentStore struct {
	store *Store
}

var _ driven.AttachmentStore = (*attachmentStore)(nil)

// FindByHash returns the attachment with the exact hash.
func (s *attachmentStore) FindByHash(ctx context.Context, hash []byte) (*domain.Attachment, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, name, mime_type, content, hash
		FROM attachment WHERE hash = ?
	`, hash)
	return scanAttachment(row)
}

// Create inserts a new attachment.
func (s *attachmentStore) Create(ctx context.Context, attachment *domain.Attachment) error {
	db, err := s.store.conn()
	if err != nil {
		return err
	}
	if len(attachment.Hash) != domain.HashSize {
		return fmt.Errorf("%w: attachment hash must be %d bytes", domain.ErrInvalidInput, domain.HashSize)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO attachment (name, mime_type, content, hash)
		VALUES (?, ?, ?, ?)
	`, attachment.Name, attachment.MimeType, attachment.Content, attachment.Hash)
	if err != nil {
		return fmt.Errorf("saving attachment: %w", mapConstraint(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading attachment id: %w", err)
	}
	attachment.ID = id
	return nil
}

// Get returns an attachment by ID.
func (s *attachmentStore) Get(ctx context.Context, id int64) (*domain.Attachment, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, name, mime_type, content, hash
		FROM attachment WHERE id = ?
	`, id)
	return scanAttachment(row)
}

// List returns all attachments ordered by ID.
func (s *attachmentStore) List(ctx context.Context) ([]domain.Attachment, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, mime_type, content, hash
		FROM attachment ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying attachments: %w", err)
	}
	defer rows.Close()

	var attachments []domain.Attachment //nolint:prealloc // size unknown from query
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.Name, &a.MimeType, &a.Content, &a.Hash); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		attachments = append(attachments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachments: %w", err)
	}

	return attachments, nil
}

// Link associates a section with an attachment.
func (s *attachmentStore) Link(ctx context.Context, link domain.SectionAttachment) error {
	db, err := s.store.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO section_attachment (section_id, attachment_id)
		VALUES (?, ?)
		ON CONFLICT(section_id, attachment_id) DO NOTHING
	`, link.SectionID, link.AttachmentID)
	if err != nil {
		return fmt.Errorf("linking attachment: %w", mapConstraint(err))
	}
	return nil
}

// Links returns all section/attachment associations.
func (s *attachmentStore) Links(ctx context.Context) ([]domain.SectionAttachment, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT section_id, attachment_id
		FROM section_attachment ORDER BY section_id, attachment_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying attachment links: %w", err)
	}
	defer rows.Close()

	var links []domain.SectionAttachment //nolint:prealloc // size unknown from query
	for rows.Next() {
		var l domain.SectionAttachment
		if err := rows.Scan(&l.SectionID, &l.AttachmentID); err != nil {
			return nil, fmt.Errorf("scanning attachment link: %w", err)
		}
		links = append(links, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachment links: %w", err)
	}

	return links, nil
}

// ==================== Custom Data Store ====================

// customDataStore implements driven.CustomDataStore.
type customDataStore struct {
	store *Store
}

var _ driven.CustomDataStore = (*customDataStore)(nil)

// Put inserts a record.
func (s *customDataStore) Put(ctx context.Context, data domain.CustomData) error {
	db, err := s.store.conn()
	if err != nil {
		return err
	}
	if data.Key == "" {
		return fmt.Errorf("%w: empty custom data key", domain.ErrInvalidInput)
	}

	_, err = db.ExecContext(ctx, "INSERT INTO custom_data (key, value) VALUES (?, ?)", data.Key, data.Value)
	if err != nil {
		return fmt.Errorf("saving custom data %q: %w", data.Key, mapConstraint(err))
	}
	return nil
}

// Get returns a record by key.
func (s *customDataStore) Get(ctx context.Context, key string) (*domain.CustomData, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	var data domain.CustomData
	row := db.QueryRowContext(ctx, "SELECT key, value FROM custom_data WHERE key = ?", key)
	if err := row.Scan(&data.Key, &data.Value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning custom data: %w", err)
	}
	return &data, nil
}

// Keys returns all keys in sorted order.
func (s *customDataStore) Keys(ctx context.Context) ([]string, error) {
	db, err := s.store.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT key FROM custom_data ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("querying custom data: %w", err)
	}
	defer rows.Close()

	var keys []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning custom data key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating custom data: %w", err)
	}

	return keys, nil
}

// ==================== Helper Functions ====================

// scanAttachment scans a single attachment row.
func scanAttachment(row *sql.Row) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := row.Scan(&a.ID, &a.Name, &a.MimeType, &a.Content, &a.Hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning attachment: %w", err)
	}
	return &a, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// mapConstraint translates uniqueness violations into
// domain.ErrStoreIntegrityViolation and leaves other errors untouched.
func mapConstraint(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", domain.ErrStoreIntegrityViolation, err)
	default:
		return err
	}
}
