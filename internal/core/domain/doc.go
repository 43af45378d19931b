// Package domain defines the core entities of an mspec archive.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A top-level specification (work or construction element)
//   - Section: A node in a document's numbered section tree
//   - SectionTree: An arena of sections with parent keys
//   - Attachment: An immutable, content-addressed blob
//   - CrossReference: An ordered link between two documents
//   - CustomData: An opaque key/blob record (signed manifest)
//   - RemoteDocument: The section tree as delivered by the document source
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
