package spectool

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/mspec/internal/core/domain"
)

// APIError represents a non-success response from the spec tool.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spectool: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap returns domain.ErrFetchFailed, or domain.ErrAuthInvalid for
// 401 and 403 responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return domain.ErrAuthInvalid
	}
	return domain.ErrFetchFailed
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, domain.ErrNotFound)
}

// ParseCredentials splits a "user:password" pair. The password may itself
// contain colons.
func ParseCredentials(s string) (username, password string, err error) {
	if strings.TrimSpace(s) == "" {
		return "", "", domain.ErrAuthRequired
	}
	username, password, ok := strings.Cut(s, ":")
	if !ok || username == "" {
		return "", "", fmt.Errorf("%w: credentials must be user:password", domain.ErrInvalidInput)
	}
	return username, password, nil
}
