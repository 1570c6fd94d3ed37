package session

import (
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/security/cookiebox"
)

func newTransport(t *testing.T) *Transport {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	box, err := cookiebox.New(key)
	require.NoError(t, err)
	return NewTransport(box, "portal_session", false, http.SameSiteLaxMode)
}

func testSession(ttl time.Duration) Session {
	now := time.Now()
	return Session{
		UserID:    "user-1",
		Email:     "ana@example.com",
		Provider:  "discord",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest("GET", "/profile", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestPersistReadRoundTrip(t *testing.T) {
	tr := newTransport(t)
	rec := httptest.NewRecorder()

	require.NoError(t, tr.Persist(rec, testSession(time.Hour)))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "portal_session", c.Name)
	assert.True(t, c.HttpOnly)
	assert.NotContains(t, c.Value, "user-1")
	// max-age pegado a la vida restante de la sesión
	assert.InDelta(t, 3600, c.MaxAge, 5)

	got, err := tr.Read(requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "discord", got.Provider)
}

func TestPersistRejectsExpired(t *testing.T) {
	tr := newTransport(t)
	err := tr.Persist(httptest.NewRecorder(), testSession(-time.Minute))
	assert.ErrorIs(t, err, flow.ErrSessionExpired)
}

func TestReadMissingCookie(t *testing.T) {
	tr := newTransport(t)
	_, err := tr.Read(httptest.NewRequest("GET", "/profile", nil))
	assert.ErrorIs(t, err, flow.ErrSessionExpired)
}

func TestReadTamperedCookie(t *testing.T) {
	tr := newTransport(t)
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Persist(rec, testSession(time.Hour)))

	req := httptest.NewRequest("GET", "/profile", nil)
	c := rec.Result().Cookies()[0]
	c.Value = "x" + c.Value[1:]
	req.AddCookie(c)

	_, err := tr.Read(req)
	assert.ErrorIs(t, err, flow.ErrSessionExpired)
}

func TestReadExpiredSession(t *testing.T) {
	tr := newTransport(t)
	rec := httptest.NewRecorder()
	require.NoError(t, tr.Persist(rec, testSession(time.Second)))

	time.Sleep(1100 * time.Millisecond)

	_, err := tr.Read(requestWithCookies(rec))
	assert.ErrorIs(t, err, flow.ErrSessionExpired)
}

func TestClear(t *testing.T) {
	tr := newTransport(t)
	rec := httptest.NewRecorder()
	tr.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "portal_session", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}
