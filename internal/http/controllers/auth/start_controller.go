package auth

import (
	"net/http"
	"strings"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/http/helpers"
	"github.com/hccommerce/portal/internal/http/middlewares"
	svc "github.com/hccommerce/portal/internal/http/services/auth"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// StartController inicia el flujo de autorización desde el browser.
type StartController struct {
	begin     *svc.BeginService
	loginPath string
}

func NewStartController(begin *svc.BeginService, loginPath string) *StartController {
	return &StartController{begin: begin, loginPath: loginPath}
}

// Start maneja GET /auth/start?provider=X&intent=login|link&redirect=/...
//
// Es un endpoint de navegación: todo error termina en un redirect a la
// página de login con ?error=<code>, nunca en un 500 al browser.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Start"))

	q := r.URL.Query()
	provider := strings.TrimSpace(q.Get("provider"))
	if provider == "" {
		log.Warn("missing provider")
		helpers.RedirectWithError(w, r, c.loginPath, flow.CodeMissingParams)
		return
	}

	intent := flow.ParseIntent(q.Get("intent"))

	// El intent link exige sesión previa: la identidad nueva se adjunta
	// al usuario autenticado, no crea uno.
	sessionUserID := ""
	if s, ok := middlewares.GetSession(ctx); ok {
		sessionUserID = s.UserID
	}
	if intent == flow.IntentLink && sessionUserID == "" {
		helpers.RedirectWithError(w, r, c.loginPath, flow.CodeSessionExpired)
		return
	}

	res, err := c.begin.Begin(ctx, provider, intent, q.Get("redirect"))
	if err != nil {
		log.Warn("begin failed", logger.Provider(provider), logger.Err(err))
		helpers.RedirectWithError(w, r, c.loginPath, flow.CodeOf(err))
		return
	}

	http.SetCookie(w, res.Cookie)
	http.Redirect(w, r, res.AuthorizeURL, http.StatusFound)
}
