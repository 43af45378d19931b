package driven

import (
	"context"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

// ArchiveStoreFactory creates archive stores backed by a single file.
type ArchiveStoreFactory interface {
	// Create initialises a fresh, empty store at path.
	Create(ctx context.Context, path string) (ArchiveStore, error)

	// Open opens an existing store read-only.
	Open(ctx context.Context, path string) (ArchiveStore, error)
}

// ArchiveStore is the transactional store an archive is built in.
// It is single-writer within one run.
type ArchiveStore interface {
	// DocumentStore returns the document and cross-reference store.
	DocumentStore() DocumentStore

	// SectionStore returns the section store.
	SectionStore() SectionStore

	// AttachmentStore returns the content-addressed attachment store.
	AttachmentStore() AttachmentStore

	// CustomDataStore returns the custom metadata store.
	CustomDataStore() CustomDataStore

	// Path returns the backing file path.
	Path() string

	// Close flushes and releases the store. Safe to call more than once.
	Close() error
}

// DocumentStore persists documents and the links between them.
type DocumentStore interface {
	// SaveDocument inserts a document and assigns its ID.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// ListDocuments returns all documents in insertion order.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// SaveCrossReferences inserts links in order and assigns their IDs.
	SaveCrossReferences(ctx context.Context, refs []domain.CrossReference) error

	// ListCrossReferences returns all links in insertion order.
	ListCrossReferences(ctx context.Context) ([]domain.CrossReference, error)
}

// SectionStore persists section trees.
type SectionStore interface {
	// SaveTree inserts every section of tree under doc in one transaction,
	// assigning IDs, DocumentID and ParentID in place.
	SaveTree(ctx context.Context, doc *domain.Document, tree *domain.SectionTree) error

	// ListSections returns the sections of every document of kind, ordered
	// by ID. An empty kind selects all sections.
	ListSections(ctx context.Context, kind domain.DocumentKind) ([]domain.Section, error)

	// UpdateBody replaces the body of a section.
	UpdateBody(ctx context.Context, sectionID int64, body string) error
}

// AttachmentStore persists attachments keyed by content hash.
// Check-then-insert serialisation is the caller's responsibility; Create
// rejects a duplicate hash with domain.ErrStoreIntegrityViolation.
type AttachmentStore interface {
	// FindByHash returns the attachment with the exact hash or domain.ErrNotFound.
	FindByHash(ctx context.Context, hash []byte) (*domain.Attachment, error)

	// Create inserts a new attachment and assigns its ID.
	Create(ctx context.Context, attachment *domain.Attachment) error

	// Get returns an attachment by ID or domain.ErrNotFound.
	Get(ctx context.Context, id int64) (*domain.Attachment, error)

	// List returns all attachments ordered by ID.
	List(ctx context.Context) ([]domain.Attachment, error)

	// Link associates a section with an attachment. Linking the same pair
	// twice is a no-op.
	Link(ctx context.Context, link domain.SectionAttachment) error

	// Links returns all section/attachment associations.
	Links(ctx context.Context) ([]domain.SectionAttachment, error)
}

// CustomDataStore persists opaque key/blob records.
type CustomDataStore interface {
	// Put inserts a record. An existing key yields domain.ErrStoreIntegrityViolation.
	Put(ctx context.Context, data domain.CustomData) error

	// Get returns a record or domain.ErrNotFound.
	Get(ctx context.Context, key string) (*domain.CustomData, error)

	// Keys returns all keys in sorted order.
	Keys(ctx context.Context) ([]string, error)
}
