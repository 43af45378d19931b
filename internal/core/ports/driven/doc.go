// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentSource: Lists work areas and delivers remote section trees
//   - ArchiveStoreFactory: Creates a fresh transactional archive store
//   - ArchiveStore: Documents, sections, attachments and custom data
//   - ImageFetcher: Retrieves externally referenced images
//   - MarkupRewriter: Parses section bodies and rewrites image sources
//   - Codec: Compresses the finished store into the output artifact
//   - ArtifactPublisher: Writes the output file atomically under a lock
//   - ConfigStore: Reads and writes persisted configuration
//
// # Optional Interfaces
//
//   - ManifestSigner: Signs the manifest of ingested documents. Without it,
//     no manifest is written.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
