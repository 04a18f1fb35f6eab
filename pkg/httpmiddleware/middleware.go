// Package httpmiddleware provides the HTTP middleware stack for the
// discount API: panic recovery, request IDs, request logging, CORS and
// rate limiting.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware = func(http.Handler) http.Handler

// Wrap applies middlewares to h so that the first middleware in the list is
// the outermost on the request path.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
