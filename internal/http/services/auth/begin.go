package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/auth/pkce"
	"github.com/hccommerce/portal/internal/auth/redirect"
	"github.com/hccommerce/portal/internal/metrics"
	"github.com/hccommerce/portal/internal/oauth/oidc"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// BeginService arma la transacción PKCE y la URL de autorización del IdP.
type BeginService struct {
	providers map[string]*oidc.Client

	baseURL      string
	defaultDest  string
	txCookieName string
	txTTL        time.Duration
	txSecure     bool
}

func NewBeginService(d Deps) *BeginService {
	name := d.TxCookieName
	if name == "" {
		name = pkce.CookieName
	}
	ttl := d.TxTTL
	if ttl <= 0 {
		ttl = pkce.CookieMaxAge * time.Second
	}
	dest := d.DefaultRedirect
	if dest == "" {
		dest = redirect.DefaultTarget
	}
	return &BeginService{
		providers:    d.Providers,
		baseURL:      d.BaseURL,
		defaultDest:  dest,
		txCookieName: name,
		txTTL:        ttl,
		txSecure:     d.TxSecure,
	}
}

// BeginResult es el resultado de iniciar una autorización: a dónde
// mandar el browser y la cookie de transacción que debe acompañarlo.
type BeginResult struct {
	AuthorizeURL string
	Cookie       *http.Cookie
}

// Begin inicia el flujo Authorization Code + PKCE para un provider.
// La transacción completa viaja en la cookie; el server no guarda nada.
func (s *BeginService) Begin(ctx context.Context, provider string, intent flow.Intent, dest string) (BeginResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Begin"))

	client, ok := s.providers[provider]
	if !ok {
		if len(s.providers) == 0 {
			// Sin providers resueltos: error de configuración, no de usuario
			return BeginResult{}, flow.ErrNotConfigured
		}
		return BeginResult{}, flow.ErrUnknownProvider
	}

	tx := pkce.Transaction{
		State:    pkce.NewState(),
		Verifier: pkce.NewVerifier(),
		Redirect: redirect.SanitizeWithDefault(dest, s.defaultDest),
		Intent:   intent,
		Provider: provider,
	}

	authorizeURL := client.AuthorizeURL(oidc.AuthorizeParams{
		State:       tx.State,
		Challenge:   pkce.Challenge(tx.Verifier),
		RedirectURI: s.callbackURL(),
	})

	cookie := &http.Cookie{
		Name:     s.txCookieName,
		Value:    pkce.Encode(tx),
		Path:     "/",
		MaxAge:   int(s.txTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.txSecure,
		SameSite: http.SameSiteLaxMode,
	}

	metrics.AuthFlowStarted.WithLabelValues(provider, string(intent)).Inc()
	log.Info("authorization started",
		logger.Provider(provider),
		logger.Intent(string(intent)),
	)

	return BeginResult{AuthorizeURL: authorizeURL, Cookie: cookie}, nil
}

// ClearTxCookie expira la cookie de transacción.
func (s *BeginService) ClearTxCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.txCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.txSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TxCookieName expone el nombre de la cookie de transacción.
func (s *BeginService) TxCookieName() string { return s.txCookieName }

func (s *BeginService) callbackURL() string {
	return s.baseURL + "/auth/callback"
}
