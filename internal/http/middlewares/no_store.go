package middlewares

import "net/http"

// WithNoStore agrega Cache-Control: no-store a la respuesta.
// Obligatorio en todo endpoint que emite o lee cookies de auth.
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
