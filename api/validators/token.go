package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
)

// BearerToken extracts the token from the Authorization header. The
// "Bearer" scheme is optional and case-insensitive.
func BearerToken(r *http.Request) (string, error) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	switch {
	case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
		return parts[1], nil
	case len(parts) == 1 && !strings.EqualFold(parts[0], "bearer"):
		return parts[0], nil
	}
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}
