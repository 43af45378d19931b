// Package sqlite provides the SQLite implementation of the archive store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file is one archive, and it
// implements every archive store interface through a single connection:
//
//   - DocumentStore: Documents and cross references
//   - SectionStore: Section trees of every document kind
//   - AttachmentStore: Content-addressed attachments and section links
//   - CustomDataStore: Opaque key/blob records such as the signed manifest
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Uniqueness invariants (attachment hash, sibling section numbers, custom data
// keys) are enforced by the schema and reported as domain.ErrStoreIntegrityViolation.
//
// # Thread Safety
//
// The store holds a single connection, so writes are serialised. The database
// uses a rollback journal rather than WAL so the file is complete once closed.
package sqlite
