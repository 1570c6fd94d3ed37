package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/auth/pkce"
	"github.com/hccommerce/portal/internal/identity"
	"github.com/hccommerce/portal/internal/metrics"
	"github.com/hccommerce/portal/internal/oauth/oidc"
	"github.com/hccommerce/portal/internal/observability/logger"
	"github.com/hccommerce/portal/internal/session"
)

// defaultSessionTTL acota la sesión cuando el IdP no informa expiración.
const defaultSessionTTL = 24 * time.Hour

// CallbackService resuelve el retorno del IdP: valida la transacción,
// canjea el código, verifica la identidad y la reconcilia en una sesión.
type CallbackService struct {
	providers  map[string]*oidc.Client
	reconciler identity.Reconciler
	baseURL    string
}

func NewCallbackService(d Deps) *CallbackService {
	return &CallbackService{
		providers:  d.Providers,
		reconciler: d.Reconciler,
		baseURL:    d.BaseURL,
	}
}

// CallbackRequest es lo que llega del browser en /auth/callback.
type CallbackRequest struct {
	State    string
	Code     string
	TxCookie string // valor crudo de la cookie de transacción
	// SessionUserID: usuario de la sesión actual, si la hay (para link).
	SessionUserID string
}

// CallbackResult es la sesión emitida y a dónde mandar el browser.
type CallbackResult struct {
	Session  session.Session
	Redirect string
	Provider string
	Intent   flow.Intent
}

// Complete ejecuta el callback completo. Todo error sale como centinela
// de flow: el controller lo traduce a un redirect con ?error=<code>.
func (s *CallbackService) Complete(ctx context.Context, req CallbackRequest) (CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Callback"))

	if req.State == "" || req.Code == "" {
		return CallbackResult{}, flow.ErrMissingParams
	}
	if req.TxCookie == "" {
		return CallbackResult{}, flow.ErrSessionExpired
	}

	tx, err := pkce.Decode(req.TxCookie)
	if err != nil {
		// Cookie ilegible equivale a transacción inexistente
		return CallbackResult{}, flow.ErrSessionExpired
	}

	if subtle.ConstantTimeCompare([]byte(tx.State), []byte(req.State)) != 1 {
		log.Warn("state mismatch", logger.Provider(tx.Provider))
		return CallbackResult{}, flow.ErrStateMismatch
	}

	client, ok := s.providers[tx.Provider]
	if !ok {
		return CallbackResult{}, flow.ErrNotConfigured
	}

	outcome := func(result string) {
		metrics.AuthFlowCompleted.WithLabelValues(tx.Provider, string(tx.Intent), result).Inc()
	}

	tokens, err := client.Exchange(ctx, req.Code, tx.Verifier, s.baseURL+"/auth/callback")
	if err != nil {
		outcome("exchange_failed")
		return CallbackResult{}, err
	}

	id, err := client.VerifyIDToken(ctx, tokens.IDToken)
	if err != nil {
		outcome("token_invalid")
		return CallbackResult{}, err
	}

	intent := tx.Intent
	if intent == "" {
		intent = flow.IntentLogin
	}

	user, err := s.reconciler.Reconcile(ctx, intent, req.SessionUserID, id)
	if err != nil {
		outcome("reconcile_failed")
		return CallbackResult{}, err
	}

	now := time.Now()
	sess := session.Session{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Picture:     user.Picture,
		Provider:    tx.Provider,
		AccessToken: tokens.AccessToken,
		IDToken:     tokens.IDToken,
		IssuedAt:    now.Unix(),
		ExpiresAt:   sessionExpiry(now, tokens, id),
	}

	outcome("ok")
	metrics.SessionsIssued.Inc()
	log.Info("sign in completed",
		logger.Provider(tx.Provider),
		logger.Intent(string(intent)),
		logger.UserID(user.ID),
	)

	return CallbackResult{
		Session:  sess,
		Redirect: tx.Redirect,
		Provider: tx.Provider,
		Intent:   intent,
	}, nil
}

// sessionExpiry fija la expiración de la sesión a la vida del access
// token; a falta de expires_in usa el exp del id_token, y como último
// recurso un TTL fijo.
func sessionExpiry(now time.Time, tokens *oidc.TokenResponse, id *oidc.Identity) int64 {
	if tokens.ExpiresIn > 0 {
		return now.Add(time.Duration(tokens.ExpiresIn) * time.Second).Unix()
	}
	if !id.ExpiresAt.IsZero() {
		return id.ExpiresAt.Unix()
	}
	return now.Add(defaultSessionTTL).Unix()
}
