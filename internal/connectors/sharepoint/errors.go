package sharepoint

import (
	"errors"
	"net/http"

	"github.com/custodia-labs/sercha-sync/internal/connectors/rest"
)

// isForbidden reports whether Graph denied access to the resource.
func isForbidden(err error) bool {
	var apiErr *rest.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}
