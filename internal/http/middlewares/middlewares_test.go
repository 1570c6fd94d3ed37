package middlewares

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hccommerce/portal/internal/identity"
	"github.com/hccommerce/portal/internal/rate"
	"github.com/hccommerce/portal/internal/security/cookiebox"
	"github.com/hccommerce/portal/internal/session"
)

// gateStore implementa identity.Store con usuarios y links fijos.
type gateStore struct {
	users map[string]bool
	links map[string][]identity.Link
	err   error
}

func (s *gateStore) CreateUser(ctx context.Context, u identity.User) (identity.User, error) {
	return identity.User{}, identity.ErrConflict
}
func (s *gateStore) GetUser(ctx context.Context, id string) (identity.User, error) {
	if s.users[id] {
		return identity.User{ID: id}, nil
	}
	return identity.User{}, identity.ErrNotFound
}
func (s *gateStore) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	return identity.User{}, identity.ErrNotFound
}
func (s *gateStore) CreateLink(ctx context.Context, l identity.Link) (identity.Link, error) {
	return identity.Link{}, identity.ErrConflict
}
func (s *gateStore) UpdateLink(ctx context.Context, l identity.Link) (identity.Link, error) {
	return identity.Link{}, identity.ErrNotFound
}
func (s *gateStore) GetLink(ctx context.Context, provider, subject string) (identity.Link, error) {
	return identity.Link{}, identity.ErrNotFound
}
func (s *gateStore) ListLinks(ctx context.Context, userID string) ([]identity.Link, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.links[userID], nil
}
func (s *gateStore) DeleteLink(ctx context.Context, userID, provider string) error {
	return identity.ErrNotFound
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withTestSession(r *http.Request, userID string) *http.Request {
	s := session.Session{
		UserID:    userID,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	return r.WithContext(withSession(r.Context(), s))
}

func TestGateRedirectsAnonymousToLogin(t *testing.T) {
	gate := WithGate(GateConfig{
		Store:             &gateStore{},
		RequiredProviders: []string{"discord", "roblox"},
		LoginPath:         "/auth/login",
		CompletePath:      "/auth/complete",
	})

	rec := httptest.NewRecorder()
	gate(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	// preserva el path pedido para retomar post-login
	assert.Equal(t, "/auth/login?redirect=%2Fprofile", rec.Header().Get("Location"))
}

func TestGateRedirectsIncompleteToComplete(t *testing.T) {
	store := &gateStore{
		users: map[string]bool{"u1": true},
		links: map[string][]identity.Link{
			"u1": {{UserID: "u1", Provider: "discord", Subject: "d-1"}},
		},
	}
	gate := WithGate(GateConfig{
		Store:             store,
		RequiredProviders: []string{"discord", "roblox"},
		LoginPath:         "/auth/login",
		CompletePath:      "/auth/complete",
	})

	rec := httptest.NewRecorder()
	req := withTestSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "u1")
	gate(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/complete?redirect=%2Fprofile", rec.Header().Get("Location"))
}

func TestGateAllowsFullyLinked(t *testing.T) {
	store := &gateStore{
		users: map[string]bool{"u1": true},
		links: map[string][]identity.Link{
			"u1": {
				{UserID: "u1", Provider: "discord", Subject: "d-1"},
				{UserID: "u1", Provider: "roblox", Subject: "r-1"},
			},
		},
	}
	gate := WithGate(GateConfig{
		Store:             store,
		RequiredProviders: []string{"discord", "roblox"},
		LoginPath:         "/auth/login",
		CompletePath:      "/auth/complete",
	})

	rec := httptest.NewRecorder()
	req := withTestSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "u1")
	gate(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateJSONMode(t *testing.T) {
	store := &gateStore{
		users: map[string]bool{"u1": true},
		links: map[string][]identity.Link{
			"u1": {{UserID: "u1", Provider: "discord", Subject: "d-1"}},
		},
	}
	gate := WithGate(GateConfig{
		Store:             store,
		RequiredProviders: []string{"discord", "roblox"},
		LoginPath:         "/auth/login",
		CompletePath:      "/auth/complete",
		JSONMode:          true,
	})

	t.Run("sin sesion responde 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		gate(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tipline", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "session_expired", body["code"])
	})

	t.Run("vinculos incompletos responde 403", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withTestSession(httptest.NewRequest(http.MethodPost, "/tipline", nil), "u1")
		gate(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "link_failed", body["code"])
	})
}

func TestGateForcesSignOutWhenUserGone(t *testing.T) {
	// hay cookie de sesión pero el usuario fue borrado por fuera
	store := &gateStore{}
	transport := newTestTransport(t)
	gate := WithGate(GateConfig{
		Store:             store,
		RequiredProviders: []string{"discord", "roblox"},
		Transport:         transport,
		LoginPath:         "/auth/login",
		CompletePath:      "/auth/complete",
	})

	rec := httptest.NewRecorder()
	req := withTestSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "u-borrado")
	gate(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?redirect=%2Fprofile", rec.Header().Get("Location"))

	// la cookie de sesión queda expirada
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "portal_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestGateStoreFailure(t *testing.T) {
	store := &gateStore{users: map[string]bool{"u1": true}, err: context.DeadlineExceeded}
	gate := WithGate(GateConfig{
		Store:             store,
		RequiredProviders: []string{"discord"},
		LoginPath:         "/auth/login",
		CompletePath:      "/auth/complete",
	})

	rec := httptest.NewRecorder()
	req := withTestSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "u1")
	gate(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func newTestTransport(t *testing.T) *session.Transport {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	box, err := cookiebox.New(key)
	require.NoError(t, err)
	return session.NewTransport(box, "portal_session", false, http.SameSiteLaxMode)
}

func TestWithSessionInjectsOpenedCookie(t *testing.T) {
	transport := newTestTransport(t)

	rec := httptest.NewRecorder()
	s := session.Session{
		UserID:    "u1",
		Email:     "u1@example.com",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, transport.Persist(rec, s))

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	var got session.Session
	var found bool
	h := WithSession(transport)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = GetSession(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, found)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "u1@example.com", got.Email)
}

func TestWithSessionIgnoresGarbageCookie(t *testing.T) {
	transport := newTestTransport(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "no-es-una-cookie-sellada"})

	var found bool
	h := WithSession(transport)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// nunca rechaza: deja pasar sin sesión y el gate decide después
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, found)
}

func TestWithRateLimitBlocksAfterMax(t *testing.T) {
	limiter := rate.NewMemoryLimiter(2, time.Minute)
	h := WithRateLimit(limiter, IPOnlyRateKey)(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/start", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/start", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestWithRateLimitNilLimiterIsNoop(t *testing.T) {
	h := WithRateLimit(nil, IPOnlyRateKey)(okHandler())
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/start", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestWithRequestID(t *testing.T) {
	t.Run("propaga el ID del cliente", func(t *testing.T) {
		var inCtx string
		h := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inCtx = GetRequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-abc", inCtx)
		assert.Equal(t, "req-abc", rec.Header().Get("X-Request-ID"))
	})

	t.Run("genera uno si falta", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WithRequestID()(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, rec.Header().Get("X-Request-ID"), 32)
	})
}

func TestWithRecover(t *testing.T) {
	h := WithRecover()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mk("a"), mk("b"), mk("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}
