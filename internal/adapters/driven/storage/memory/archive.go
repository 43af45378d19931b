package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// Ensure Archive implements the interface.
var _ driven.ArchiveStore = (*Archive)(nil)

// Archive is an in-memory implementation of driven.ArchiveStore for
// testing. It enforces the same uniqueness rules as the SQLite schema.
type Archive struct {
	mu     sync.RWMutex
	path   string
	closed bool

	documents   []domain.Document
	sections    []domain.Section
	attachments []domain.Attachment
	links       map[domain.SectionAttachment]struct{}
	crossRefs   []domain.CrossReference
	custom      map[string][]byte

	nextID int64
}

// NewArchive creates an empty in-memory archive.
func NewArchive(path string) *Archive {
	return &Archive{
		path:   path,
		links:  make(map[domain.SectionAttachment]struct{}),
		custom: make(map[string][]byte),
	}
}

// DocumentStore returns the document view of the archive.
func (a *Archive) DocumentStore() driven.DocumentStore { return &documentStore{a} }

// SectionStore returns the section view of the archive.
func (a *Archive) SectionStore() driven.SectionStore { return &sectionStore{a} }

// AttachmentStore returns the attachment view of the archive.
func (a *Archive) AttachmentStore() driven.AttachmentStore { return &attachmentStore{a} }

// CustomDataStore returns the custom data view of the archive.
func (a *Archive) CustomDataStore() driven.CustomDataStore { return &customDataStore{a} }

// Path returns the path the archive was created with.
func (a *Archive) Path() string { return a.path }

// Close marks the archive closed. Further calls are no-ops.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Closed reports whether Close was called.
func (a *Archive) Closed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

func (a *Archive) id() int64 {
	a.nextID++
	return a.nextID
}

// lock takes the write lock and fails if the archive is closed.
func (a *Archive) lock() (func(), error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, domain.ErrStoreClosed
	}
	return a.mu.Unlock, nil
}

// rlock takes the read lock and fails if the archive is closed.
func (a *Archive) rlock() (func(), error) {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return nil, domain.ErrStoreClosed
	}
	return a.mu.RUnlock, nil
}

// ==================== Document Store ====================

type documentStore struct{ a *Archive }

var _ driven.DocumentStore = (*documentStore)(nil)

func (s *documentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	unlock, err := s.a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if !doc.Kind.IsValid() {
		return fmt.Errorf("%w: document kind %q", domain.ErrInvalidInput, doc.Kind)
	}
	doc.ID = s.a.id()
	s.a.documents = append(s.a.documents, *doc)
	return nil
}

func (s *documentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return append([]domain.Document(nil), s.a.documents...), nil
}

func (s *documentStore) SaveCrossReferences(_ context.Context, refs []domain.CrossReference) error {
	unlock, err := s.a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	for i := range refs {
		if !s.a.hasDocument(refs[i].FromDocument) || !s.a.hasDocument(refs[i].ToDocument) {
			return fmt.Errorf("%w: cross reference to unknown document", domain.ErrInvalidInput)
		}
	}
	for i := range refs {
		refs[i].ID = s.a.id()
		s.a.crossRefs = append(s.a.crossRefs, refs[i])
	}
	return nil
}

func (s *documentStore) ListCrossReferences(_ context.Context) ([]domain.CrossReference, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return append([]domain.CrossReference(nil), s.a.crossRefs...), nil
}

func (a *Archive) hasDocument(id int64) bool {
	for _, d := range a.documents {
		if d.ID == id {
			return true
		}
	}
	return false
}

// ==================== Section Store ====================

type sectionStore struct{ a *Archive }

var _ driven.SectionStore = (*sectionStore)(nil)

type siblingKey struct {
	document int64
	parent   int64
	no       int
}

func (s *sectionStore) SaveTree(_ context.Context, doc *domain.Document, tree *domain.SectionTree) error {
	unlock, err := s.a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if doc.ID == 0 || !s.a.hasDocument(doc.ID) {
		return fmt.Errorf("%w: document has not been saved", domain.ErrInvalidInput)
	}

	taken := make(map[siblingKey]bool)
	for _, existing := range s.a.sections {
		if existing.DocumentID == doc.ID {
			taken[keyOf(existing.DocumentID, existing.ParentID, existing.SectionNo)] = true
		}
	}

	// Stage first so a failure leaves both archive and tree untouched.
	staged := make([]domain.Section, len(tree.Sections))
	base := s.a.nextID
	for i, sec := range tree.Sections {
		sec.ID = base + int64(i) + 1
		sec.DocumentID = doc.ID
		sec.Kind = doc.Kind
		sec.ParentID = nil
		if sec.ParentKey != nil {
			if *sec.ParentKey >= i {
				return fmt.Errorf("%w: section %d precedes its parent", domain.ErrInvalidInput, i)
			}
			parentID := staged[*sec.ParentKey].ID
			sec.ParentID = &parentID
		}
		k := keyOf(doc.ID, sec.ParentID, sec.SectionNo)
		if taken[k] {
			return fmt.Errorf("%w: duplicate section number %d", domain.ErrStoreIntegrityViolation, sec.SectionNo)
		}
		taken[k] = true
		staged[i] = sec
	}

	s.a.nextID = base + int64(len(staged))
	s.a.sections = append(s.a.sections, staged...)
	copy(tree.Sections, staged)
	return nil
}

func keyOf(document int64, parent *int64, no int) siblingKey {
	k := siblingKey{document: document, no: no}
	if parent != nil {
		k.parent = *parent
	}
	return k
}

func (s *sectionStore) ListSections(_ context.Context, kind domain.DocumentKind) ([]domain.Section, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []domain.Section
	for _, sec := range s.a.sections {
		if kind != "" && sec.Kind != kind {
			continue
		}
		sec.ParentKey = nil
		out = append(out, sec)
	}
	return out, nil
}

func (s *sectionStore) UpdateBody(_ context.Context, sectionID int64, body string) error {
	unlock, err := s.a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	for i := range s.a.sections {
		if s.a.sections[i].ID == sectionID {
			s.a.sections[i].Body = body
			return nil
		}
	}
	return fmt.Errorf("section %d: %w", sectionID, domain.ErrNotFound)
}

// ==================== Attachment Store ====================

type attachmentStore struct{ a *Archive }

var _ driven.AttachmentStore = (*attachmentStore)(nil)

func (s *attachmentStore) FindByHash(_ context.Context, hash []byte) (*domain.Attachment, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	for i := range s.a.attachments {
		if bytes.Equal(s.a.attachments[i].Hash, hash) {
			found := s.a.attachments[i]
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *attachmentStore) Create(_ context.Context, attachment *domain.Attachment) error {
	unlock, err := s.a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if len(attachment.Hash) != domain.HashSize {
		return fmt.Errorf("%w: attachment hash must be %d bytes", domain.ErrInvalidInput, domain.HashSize)
	}
	for i := range s.a.attachments {
		if bytes.Equal(s.a.attachments[i].Hash, attachment.Hash) {
			return fmt.Errorf("%w: attachment hash %x exists", domain.ErrStoreIntegrityViolation, attachment.Hash)
		}
	}
	attachment.ID = s.a.id()
	s.a.attachments = append(s.a.attachments, *attachment)
	return nil
}

func (s *attachmentStore) Get(_ context.Context, id int64) (*domain.Attachment, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	for i := range s.a.attachments {
		if s.a.attachments[i].ID == id {
			found := s.a.attachments[i]
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *attachmentStore) List(_ context.Context) ([]domain.Attachment, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return append([]domain.Attachment(nil), s.a.attachments...), nil
}

func (s *attachmentStore) Link(_ context.Context, link domain.SectionAttachment) error {
	unlock, err := s.a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	known := false
	for i := range s.a.attachments {
		if s.a.attachments[i].ID == link.AttachmentID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("attachment %d: %w", link.AttachmentID, domain.ErrNotFound)
	}
	s.a.links[link] = struct{}{}
	return nil
}

func (s *attachmentStore) Links(_ context.Context) ([]domain.SectionAttachment, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]domain.SectionAttachment, 0, len(s.a.links))
	for l := range s.a.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SectionID != out[j].SectionID {
			return out[i].SectionID < out[j].SectionID
		}
		return out[i].AttachmentID < out[j].AttachmentID
	})
	return out, nil
}

// ==================== Custom Data Store ====================

type customDataStore struct{ a *Archive }

var _ driven.CustomDataStore = (*customDataStore)(nil)

func (s *customDataStore) Put(_ context.Context, data domain.CustomData) error {
	unlock, err := s.a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if data.Key == "" {
		return fmt.Errorf("%w: empty custom data key", domain.ErrInvalidInput)
	}
	if _, ok := s.a.custom[data.Key]; ok {
		return fmt.Errorf("%w: custom data key %q exists", domain.ErrStoreIntegrityViolation, data.Key)
	}
	s.a.custom[data.Key] = append([]byte(nil), data.Value...)
	return nil
}

func (s *customDataStore) Get(_ context.Context, key string) (*domain.CustomData, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, ok := s.a.custom[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.CustomData{Key: key, Value: append([]byte(nil), v...)}, nil
}

func (s *customDataStore) Keys(_ context.Context) ([]string, error) {
	unlock, err := s.a.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	keys := make([]string, 0, len(s.a.custom))
	for k := range s.a.custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
