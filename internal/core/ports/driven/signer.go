package driven

// ManifestSigner signs and verifies the manifest of ingested documents.
type ManifestSigner interface {
	// Sign encodes claims into an opaque signed token.
	Sign(claims map[string]any) ([]byte, error)

	// Verify checks a token's signature and returns its claims.
	Verify(token []byte) (map[string]any, error)
}
