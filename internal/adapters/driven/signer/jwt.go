// Package signer signs the archive manifest as an HS256 JSON Web Token.
package signer

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"github.com/custodia-labs/mspec/internal/core/domain"
	"github.com/custodia-labs/mspec/internal/core/ports/driven"
)

// ErrInvalidSignature indicates a manifest token that fails verification.
var ErrInvalidSignature = errors.New("invalid manifest signature")

// Ensure JWTSigner implements the interface.
var _ driven.ManifestSigner = (*JWTSigner)(nil)

// JWTSigner signs manifests with a shared HMAC secret.
type JWTSigner struct {
	secret []byte
}

// NewJWTSigner creates a signer. The secret must not be empty.
func NewJWTSigner(secret []byte) (*JWTSigner, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty manifest secret", domain.ErrInvalidInput)
	}
	return &JWTSigner{secret: append([]byte(nil), secret...)}, nil
}

// Sign encodes claims as a compact HS256 token.
func (s *JWTSigner) Sign(claims map[string]any) ([]byte, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing manifest: %w", err)
	}
	return []byte(signed), nil
}

// Verify checks the token's algorithm and signature and returns its claims.
func (s *JWTSigner) Verify(token []byte) (map[string]any, error) {
	parsed, err := jwt.Parse(string(token), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	return map[string]any(claims), nil
}
