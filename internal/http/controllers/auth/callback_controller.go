package auth

import (
	"net/http"
	"strings"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/http/helpers"
	"github.com/hccommerce/portal/internal/http/middlewares"
	svc "github.com/hccommerce/portal/internal/http/services/auth"
	"github.com/hccommerce/portal/internal/observability/logger"
	"github.com/hccommerce/portal/internal/session"
)

// CallbackController recibe el retorno del IdP.
type CallbackController struct {
	begin     *svc.BeginService
	callback  *svc.CallbackService
	transport *session.Transport
	loginPath string
}

func NewCallbackController(begin *svc.BeginService, callback *svc.CallbackService, transport *session.Transport, loginPath string) *CallbackController {
	return &CallbackController{
		begin:     begin,
		callback:  callback,
		transport: transport,
		loginPath: loginPath,
	}
}

// Callback maneja GET /auth/callback?code=...&state=...
//
// La cookie de transacción se consume siempre, incluso en fallo: una
// transacción no es reutilizable.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Callback"))

	q := r.URL.Query()

	// La transacción se consume pase lo que pase. El header tiene que
	// salir antes de cualquier WriteHeader: un defer llegaría después
	// del redirect y se perdería.
	http.SetCookie(w, c.begin.ClearTxCookie())

	// Error reportado por el propio IdP (p. ej. access_denied)
	if idpErr := strings.TrimSpace(q.Get("error")); idpErr != "" {
		log.Warn("idp returned error",
			logger.ErrorCode(idpErr),
			logger.String("description", q.Get("error_description")),
		)
		helpers.RedirectWithError(w, r, c.loginPath, flow.CodeSignInFailed)
		return
	}

	var txCookie string
	if ck, err := r.Cookie(c.begin.TxCookieName()); err == nil {
		txCookie = ck.Value
	}

	sessionUserID := ""
	if s, ok := middlewares.GetSession(ctx); ok {
		sessionUserID = s.UserID
	}

	result, err := c.callback.Complete(ctx, svc.CallbackRequest{
		State:         strings.TrimSpace(q.Get("state")),
		Code:          strings.TrimSpace(q.Get("code")),
		TxCookie:      txCookie,
		SessionUserID: sessionUserID,
	})
	if err != nil {
		code := flow.CodeOf(err)
		log.Warn("callback failed", logger.ErrorCode(code), logger.Err(err))
		helpers.RedirectWithError(w, r, c.loginPath, code)
		return
	}

	if err := c.transport.Persist(w, result.Session); err != nil {
		log.Error("session persist failed", logger.Err(err))
		helpers.RedirectWithError(w, r, c.loginPath, flow.CodeSignInFailed)
		return
	}

	http.Redirect(w, r, result.Redirect, http.StatusFound)
}
