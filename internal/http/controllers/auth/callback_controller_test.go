package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svc "github.com/hccommerce/portal/internal/http/services/auth"
)

func newCallbackController() *CallbackController {
	services := svc.NewServices(svc.Deps{
		BaseURL:      "http://portal.test",
		TxCookieName: "portal_pkce",
		TxTTL:        5 * time.Minute,
	})
	return NewCallbackController(services.Begin, services.Callback, nil, "/auth/login")
}

func txCookieFrom(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, ck := range res.Cookies() {
		if ck.Name == "portal_pkce" {
			return ck
		}
	}
	require.Fail(t, "response carries no portal_pkce cookie")
	return nil
}

// La cookie de transacción es de un solo uso: el callback la expira
// también cuando termina en redirect de error, y el header tiene que
// llegar al response (un Set-Cookie después del redirect se pierde).
func TestCallbackConsumesTxCookieOnFailure(t *testing.T) {
	c := newCallbackController()

	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	req.AddCookie(&http.Cookie{Name: "portal_pkce", Value: "tx-vieja"})
	rec := httptest.NewRecorder()

	c.Callback(rec, req)

	res := rec.Result()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/auth/login?error=missing_params", res.Header.Get("Location"))

	ck := txCookieFrom(t, res)
	assert.Empty(t, ck.Value)
	assert.Negative(t, ck.MaxAge)
}

func TestCallbackConsumesTxCookieOnIdPError(t *testing.T) {
	c := newCallbackController()

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied&error_description=denegado", nil)
	req.AddCookie(&http.Cookie{Name: "portal_pkce", Value: "tx-vieja"})
	rec := httptest.NewRecorder()

	c.Callback(rec, req)

	res := rec.Result()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/auth/login?error=sign_in_failed", res.Header.Get("Location"))

	ck := txCookieFrom(t, res)
	assert.Negative(t, ck.MaxAge)
}
