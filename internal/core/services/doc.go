// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters):
//
//   - SectionMapper: remote section trees to section arenas
//   - AttachmentService: content-addressed put-if-absent
//   - ImageExternaliser: image fetch, dedup and src rewriting
//   - Pipeline: the packaging run from fresh store to published archive
//   - Catalog: work-area and document listings
//   - Inspector: verification of a finished archive
//
// Services are pure Go with no CGO.
package services
