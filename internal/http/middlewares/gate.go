package middlewares

import (
	"errors"
	"net/http"
	"net/url"

	httperrors "github.com/hccommerce/portal/internal/http/errors"
	"github.com/hccommerce/portal/internal/identity"
	"github.com/hccommerce/portal/internal/linking"
	"github.com/hccommerce/portal/internal/observability/logger"
	"github.com/hccommerce/portal/internal/session"
)

// GateConfig configura el gate de rutas protegidas.
type GateConfig struct {
	Store             identity.Store
	RequiredProviders []string
	Transport         *session.Transport // para el sign-out forzado (opcional)
	LoginPath         string             // destino sin sesión
	CompletePath      string             // destino con sesión pero vínculos incompletos
	// JSONMode: responder 401/403 JSON en vez de redirects (para APIs).
	JSONMode bool
}

// WithGate exige sesión válida y vinculación completa de los providers
// requeridos. Browser recibe redirects que preservan el path pedido;
// APIs (JSONMode) reciben errores.
func WithGate(cfg GateConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, hasSession := GetSession(r.Context())

			var st linking.State
			if hasSession {
				// Usuario borrado por fuera => sign-out forzado, no error
				if _, err := cfg.Store.GetUser(r.Context(), s.UserID); err != nil {
					if errors.Is(err, identity.ErrNotFound) {
						logger.From(r.Context()).Warn("gate: session user gone", logger.UserID(s.UserID))
						if cfg.Transport != nil {
							cfg.Transport.Clear(w)
						}
						hasSession = false
					} else {
						logger.From(r.Context()).Error("gate: get user failed", logger.Err(err))
						httperrors.WriteError(w, httperrors.ErrSignInFailed.WithCause(err))
						return
					}
				}
			}
			if hasSession {
				links, err := cfg.Store.ListLinks(r.Context(), s.UserID)
				if err != nil {
					logger.From(r.Context()).Error("gate: list links failed", logger.Err(err))
					httperrors.WriteError(w, httperrors.ErrSignInFailed.WithCause(err))
					return
				}
				st = linking.Resolve(links, cfg.RequiredProviders)
			}

			switch linking.Decide(hasSession, st) {
			case linking.Allow:
				next.ServeHTTP(w, r)
			case linking.RedirectLogin:
				if cfg.JSONMode {
					httperrors.WriteError(w, httperrors.ErrSessionExpired)
					return
				}
				http.Redirect(w, r, withRedirectTarget(cfg.LoginPath, r.URL.Path), http.StatusFound)
			case linking.RedirectComplete:
				if cfg.JSONMode {
					httperrors.WriteError(w, httperrors.ErrLinkIncomplete)
					return
				}
				http.Redirect(w, r, withRedirectTarget(cfg.CompletePath, r.URL.Path), http.StatusFound)
			}
		})
	}
}

// withRedirectTarget preserva el path pedido para retomar post-login.
func withRedirectTarget(base, requested string) string {
	if requested == "" || requested == base {
		return base
	}
	return base + "?redirect=" + url.QueryEscape(requested)
}
