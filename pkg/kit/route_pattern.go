package kit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RoutePatternOrPath returns the chi route pattern that matched the
// request, falling back to the raw path for unmatched requests.
func RoutePatternOrPath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if rp := rctx.RoutePattern(); rp != "" {
			return rp
		}
	}
	return r.URL.Path
}
