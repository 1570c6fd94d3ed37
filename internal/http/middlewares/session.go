package middlewares

import (
	"net/http"

	"github.com/hccommerce/portal/internal/session"
)

// WithSession abre la cookie de sesión (si existe) y la inyecta en el
// contexto. No rechaza nada por sí mismo: el gate decide después.
func WithSession(transport *session.Transport) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := transport.Read(r)
			if err == nil {
				r = r.WithContext(withSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}
