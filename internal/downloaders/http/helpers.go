package rawsthttp

import (
	"fmt"
	"net/http"

	"github.com/tanq16/rawst/internal/engine"
)

func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return engine.ErrNotFound
	case code == http.StatusForbidden:
		return engine.ErrForbidden
	case code == http.StatusUnauthorized:
		return engine.ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", engine.ErrServerError, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
