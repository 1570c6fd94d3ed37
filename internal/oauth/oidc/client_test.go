package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/config"
)

// fakeIdP sirve /.well-known/jwks.json y /oauth/token como un IdP real.
type fakeIdP struct {
	t    *testing.T
	keys map[string]*rsa.PrivateKey // kid -> key

	srv *httptest.Server

	tokenStatus   int
	tokenResponse map[string]any
	lastTokenForm url.Values
	jwksHits      int
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	f := &fakeIdP{
		t:           t,
		keys:        map[string]*rsa.PrivateKey{},
		tokenStatus: http.StatusOK,
	}
	f.addKey("k1")

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", f.serveJWKS)
	mux.HandleFunc("/oauth/token", f.serveToken)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) addKey(kid string) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(f.t, err)
	f.keys[kid] = key
}

func (f *fakeIdP) serveJWKS(w http.ResponseWriter, r *http.Request) {
	f.jwksHits++
	var doc jwksDoc
	for kid, key := range f.keys {
		pub := key.Public().(*rsa.PublicKey)
		doc.Keys = append(doc.Keys, jwk{
			Kty: "RSA",
			Alg: "RS256",
			Kid: kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1}),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (f *fakeIdP) serveToken(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f.lastTokenForm = r.PostForm
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.tokenStatus)
	if f.tokenResponse != nil {
		_ = json.NewEncoder(w).Encode(f.tokenResponse)
	} else {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "server_error"})
	}
}

func (f *fakeIdP) client(name string) *Client {
	return New(name, config.ProviderConfig{
		Domain:       f.srv.URL,
		ClientID:     "portal-client",
		ClientSecret: "portal-secret",
		Audience:     "https://api.portal.test",
		Connection:   name,
	})
}

func (f *fakeIdP) signToken(kid string, claims jwtv5.MapClaims) string {
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(f.keys[kid])
	require.NoError(f.t, err)
	return s
}

func (f *fakeIdP) validClaims() jwtv5.MapClaims {
	now := time.Now()
	return jwtv5.MapClaims{
		"iss":            f.srv.URL + "/",
		"aud":            "portal-client",
		"sub":            "discord|12345",
		"exp":            now.Add(time.Hour).Unix(),
		"iat":            now.Unix(),
		"email":          "ana@example.com",
		"email_verified": true,
		"name":           "Ana",
		"nickname":       "ana",
	}
}

func TestAuthorizeURL(t *testing.T) {
	idp := newFakeIdP(t)
	c := idp.client("discord")

	raw := c.AuthorizeURL(AuthorizeParams{
		State:       "st-123",
		Challenge:   "ch-456",
		RedirectURI: "https://portal.test/auth/callback",
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "portal-client", q.Get("client_id"))
	assert.Equal(t, "https://portal.test/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "st-123", q.Get("state"))
	assert.Equal(t, "ch-456", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "https://api.portal.test", q.Get("audience"))
	assert.Equal(t, "discord", q.Get("connection"))
}

func TestExchangeSendsVerifier(t *testing.T) {
	idp := newFakeIdP(t)
	idp.tokenResponse = map[string]any{
		"access_token": "at",
		"id_token":     "idt",
		"expires_in":   3600,
		"token_type":   "Bearer",
	}
	c := idp.client("discord")

	tr, err := c.Exchange(context.Background(), "the-code", "the-verifier", "https://portal.test/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "at", tr.AccessToken)
	assert.Equal(t, "idt", tr.IDToken)

	form := idp.lastTokenForm
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "the-verifier", form.Get("code_verifier"))
	assert.Equal(t, "portal-client", form.Get("client_id"))
	assert.Equal(t, "https://portal.test/auth/callback", form.Get("redirect_uri"))
}

func TestExchangeUpstreamError(t *testing.T) {
	idp := newFakeIdP(t)
	idp.tokenStatus = http.StatusForbidden
	c := idp.client("discord")

	_, err := c.Exchange(context.Background(), "bad-code", "v", "https://portal.test/auth/callback")
	assert.ErrorIs(t, err, flow.ErrTokenExchange)
}

func TestExchangeMissingIDToken(t *testing.T) {
	idp := newFakeIdP(t)
	idp.tokenResponse = map[string]any{"access_token": "at", "token_type": "Bearer"}
	c := idp.client("discord")

	_, err := c.Exchange(context.Background(), "code", "v", "https://portal.test/auth/callback")
	assert.ErrorIs(t, err, flow.ErrTokenMissing)
}

func TestExchangeMissingAccessToken(t *testing.T) {
	idp := newFakeIdP(t)
	idp.tokenResponse = map[string]any{"id_token": "idt", "token_type": "Bearer"}
	c := idp.client("discord")

	_, err := c.Exchange(context.Background(), "code", "v", "https://portal.test/auth/callback")
	assert.ErrorIs(t, err, flow.ErrTokenMissing)
}

func TestVerifyIDTokenOK(t *testing.T) {
	idp := newFakeIdP(t)
	c := idp.client("discord")

	id, err := c.VerifyIDToken(context.Background(), idp.signToken("k1", idp.validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "discord", id.Provider)
	assert.Equal(t, "discord|12345", id.Subject)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
}

func TestVerifyIDTokenRejects(t *testing.T) {
	idp := newFakeIdP(t)

	cases := []struct {
		name  string
		token func(c *Client) string
	}{
		{"garbage", func(*Client) string { return "not-a-jwt" }},
		{"expired", func(*Client) string {
			cl := idp.validClaims()
			cl["exp"] = time.Now().Add(-time.Hour).Unix()
			return idp.signToken("k1", cl)
		}},
		{"wrong issuer", func(*Client) string {
			cl := idp.validClaims()
			cl["iss"] = "https://evil.example/"
			return idp.signToken("k1", cl)
		}},
		{"wrong audience", func(*Client) string {
			cl := idp.validClaims()
			cl["aud"] = "other-client"
			return idp.signToken("k1", cl)
		}},
		{"missing sub", func(*Client) string {
			cl := idp.validClaims()
			delete(cl, "sub")
			return idp.signToken("k1", cl)
		}},
		{"tampered payload", func(*Client) string {
			tok := idp.signToken("k1", idp.validClaims())
			// Reemplaza el payload conservando la firma original
			cl := idp.validClaims()
			cl["sub"] = "discord|attacker"
			forged := idp.signToken("k1", cl)
			return splitPart(forged, 0) + "." + splitPart(forged, 1) + "." + splitPart(tok, 2)
		}},
		{"hs256 downgrade", func(c *Client) string {
			tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, idp.validClaims())
			tok.Header["kid"] = "k1"
			s, err := tok.SignedString([]byte("portal-client"))
			require.NoError(t, err)
			return s
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := idp.client("discord")
			_, err := c.VerifyIDToken(context.Background(), tc.token(c))
			assert.ErrorIs(t, err, flow.ErrTokenInvalid)
		})
	}
}

func TestVerifyIDTokenKeyRotation(t *testing.T) {
	idp := newFakeIdP(t)
	c := idp.client("discord")

	// Primer token llena el cache con k1
	_, err := c.VerifyIDToken(context.Background(), idp.signToken("k1", idp.validClaims()))
	require.NoError(t, err)
	hitsAfterFirst := idp.jwksHits

	// El IdP rota a k2; el kid desconocido debe forzar un refetch
	idp.addKey("k2")
	id, err := c.VerifyIDToken(context.Background(), idp.signToken("k2", idp.validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "discord|12345", id.Subject)
	assert.Greater(t, idp.jwksHits, hitsAfterFirst)
}

func TestVerifyIDTokenUnknownKid(t *testing.T) {
	idp := newFakeIdP(t)
	c := idp.client("discord")

	cl := idp.validClaims()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, cl)
	tok.Header["kid"] = "nope"
	s, err := tok.SignedString(idp.keys["k1"])
	require.NoError(t, err)

	_, err = c.VerifyIDToken(context.Background(), s)
	assert.ErrorIs(t, err, flow.ErrTokenInvalid)
}

func splitPart(token string, i int) string {
	return strings.Split(token, ".")[i]
}
