// Package normalisers provides the markup capabilities the packaging
// pipeline needs to inspect and rewrite section bodies.
package normalisers
