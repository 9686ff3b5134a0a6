// Package requesttime pins one "now" per HTTP request, so the session
// timestamps, events and tasks written by a single request agree.
package requesttime

import (
	"net/http"
	"time"

	"fdctax/pkg/requestcontext"
)

// Middleware stamps each request context with clock(). A nil clock means time.Now.
func Middleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), clock())))
		})
	}
}
