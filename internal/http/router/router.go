// Package router arma el árbol de rutas del portal sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "github.com/hccommerce/portal/internal/http/controllers/auth"
	healthctrl "github.com/hccommerce/portal/internal/http/controllers/health"
	pagesctrl "github.com/hccommerce/portal/internal/http/controllers/pages"
	tiplinectrl "github.com/hccommerce/portal/internal/http/controllers/tipline"
	mw "github.com/hccommerce/portal/internal/http/middlewares"
	"github.com/hccommerce/portal/internal/identity"
	"github.com/hccommerce/portal/internal/rate"
	"github.com/hccommerce/portal/internal/session"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Auth    *authctrl.Controllers
	Pages   *pagesctrl.Controller
	Tipline *tiplinectrl.Controller
	Health  *healthctrl.HealthController

	Transport *session.Transport
	Store     identity.Store

	RequiredProviders []string
	LoginPath         string
	CompletePath      string

	// Limiters por superficie (cualquiera puede ser nil)
	StartLimiter    rate.Limiter
	CallbackLimiter rate.Limiter
	TiplineLimiter  rate.Limiter
}

// New construye el handler raíz con todos los middlewares aplicados.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares globales, del más externo al más interno
	r.Use(mw.WithRequestID())
	r.Use(mw.WithRecover())
	r.Use(mw.WithSecurityHeaders())
	r.Use(mw.WithSession(d.Transport))
	r.Use(mw.WithLogging())

	gate := mw.WithGate(mw.GateConfig{
		Store:             d.Store,
		RequiredProviders: d.RequiredProviders,
		Transport:         d.Transport,
		LoginPath:         d.LoginPath,
		CompletePath:      d.CompletePath,
	})
	gateJSON := mw.WithGate(mw.GateConfig{
		Store:             d.Store,
		RequiredProviders: d.RequiredProviders,
		Transport:         d.Transport,
		LoginPath:         d.LoginPath,
		CompletePath:      d.CompletePath,
		JSONMode:          true,
	})

	// Flujo de autenticación
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.With(limit(d.StartLimiter)).Get("/auth/start", d.Auth.Start.Start)
		r.With(limit(d.CallbackLimiter)).Get("/auth/callback", d.Auth.Callback.Callback)
		r.Get("/auth/session", d.Auth.Session.Session)
		r.Post("/auth/logout", d.Auth.Logout.Logout)

		r.With(limit(d.StartLimiter)).Post("/auth/providers/{provider}/link", d.Auth.Providers.Link)
		r.Delete("/auth/providers/{provider}/unlink", d.Auth.Providers.Unlink)

		// Páginas navegables del flujo
		r.Get("/auth/login", d.Pages.Login)
		r.Get("/auth/complete", d.Pages.Complete)
	})

	// Rutas protegidas por el gate de vinculación
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), gate)
		r.Get("/profile", d.Pages.Profile)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), gateJSON)
		r.With(limit(d.TiplineLimiter)).Post("/tipline", d.Tipline.Submit)
	})

	// Operacional
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Raíz: al perfil (el gate decide a dónde realmente)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/profile", http.StatusFound)
	})

	return r
}

func limit(l rate.Limiter) func(http.Handler) http.Handler {
	return mw.WithRateLimit(l, mw.IPAndPathRateKey)
}
