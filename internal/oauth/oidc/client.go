// Package oidc implementa el lado relying-party del flujo Authorization
// Code + PKCE contra el IdP: construcción de la URL de autorización,
// intercambio de código por tokens y verificación del id_token (RS256
// contra el JWKS publicado por el IdP).
package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/config"
)

// DefaultScopes son los scopes pedidos en cada autorización.
var DefaultScopes = []string{"openid", "profile", "email"}

// expLeeway tolera drift de reloj entre el portal y el IdP.
const expLeeway = 30 * time.Second

type Client struct {
	// Name identifica la conexión upstream ("discord", "roblox", ...).
	Name string

	cfg    config.ProviderConfig
	scopes []string
	http   *http.Client
	keys   *keyCache
}

// New crea un cliente OIDC para un provider resuelto.
func New(name string, cfg config.ProviderConfig) *Client {
	hc := &http.Client{Timeout: 10 * time.Second}
	return &Client{
		Name:   name,
		cfg:    cfg,
		scopes: DefaultScopes,
		http:   hc,
		keys:   newKeyCache(cfg.JWKSEndpoint(), hc),
	}
}

// AuthorizeParams son los parámetros por-transacción de AuthorizeURL.
type AuthorizeParams struct {
	State       string
	Challenge   string // code_challenge (S256)
	RedirectURI string
}

// AuthorizeURL construye la URL de autorización del IdP con PKCE.
func (c *Client) AuthorizeURL(p AuthorizeParams) string {
	u, _ := url.Parse(c.cfg.AuthorizeEndpoint())
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("scope", strings.Join(c.scopes, " "))
	q.Set("state", p.State)
	q.Set("code_challenge", p.Challenge)
	q.Set("code_challenge_method", "S256")
	if c.cfg.Audience != "" {
		q.Set("audience", c.cfg.Audience)
	}
	if c.cfg.Connection != "" {
		q.Set("connection", c.cfg.Connection)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// Exchange canjea el authorization code por tokens, presentando el
// code_verifier de la transacción. Falla con flow.ErrTokenExchange
// (causa adjunta) ante cualquier respuesta no-2xx del IdP.
func (c *Client) Exchange(ctx context.Context, code, verifier, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("code_verifier", verifier)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.TokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("%w: token http %d: %s %s", flow.ErrTokenExchange, resp.StatusCode, b.Error, b.ErrorDescription)
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", flow.ErrTokenExchange, err)
	}
	if tr.IDToken == "" || tr.AccessToken == "" {
		return nil, flow.ErrTokenMissing
	}
	return &tr, nil
}

// Identity es la identidad externa verificada que sale de un id_token.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Nickname      string
	Picture       string
	ExpiresAt     time.Time
	Raw           jwtv5.MapClaims
}

// VerifyIDToken valida firma RS256 (clave por kid del JWKS), iss, aud y
// exp del id_token. Todo fallo se reporta como flow.ErrTokenInvalid.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad jwt format", flow.ErrTokenInvalid)
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", flow.ErrTokenInvalid, err)
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", flow.ErrTokenInvalid, err)
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("%w: unexpected alg %s", flow.ErrTokenInvalid, header.Alg)
	}

	key, err := c.keys.rsaKeyForKid(ctx, header.Kid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", flow.ErrTokenInvalid, err)
	}

	tok, err := jwtv5.Parse(idToken,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithLeeway(expLeeway),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: signature", flow.ErrTokenInvalid)
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: claims type", flow.ErrTokenInvalid)
	}

	iss, _ := claims["iss"].(string)
	if iss != c.cfg.Issuer() {
		return nil, fmt.Errorf("%w: bad iss %s", flow.ErrTokenInvalid, iss)
	}

	audOK := false
	switch a := claims["aud"].(type) {
	case string:
		audOK = a == c.cfg.ClientID
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == c.cfg.ClientID {
				audOK = true
				break
			}
		}
	}
	if !audOK {
		return nil, fmt.Errorf("%w: bad aud", flow.ErrTokenInvalid)
	}

	sub := strClaim(claims, "sub")
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", flow.ErrTokenInvalid)
	}

	var expiresAt time.Time
	if expf, ok := claims["exp"].(float64); ok {
		expiresAt = time.Unix(int64(expf), 0)
	}

	return &Identity{
		Provider:      c.Name,
		Subject:       sub,
		Email:         strClaim(claims, "email"),
		EmailVerified: boolClaim(claims, "email_verified"),
		Name:          strClaim(claims, "name"),
		Nickname:      strClaim(claims, "nickname"),
		Picture:       strClaim(claims, "picture"),
		ExpiresAt:     expiresAt,
		Raw:           claims,
	}, nil
}

// ForceKeyRefresh invalida el cache JWKS (tests / rotación manual).
func (c *Client) ForceKeyRefresh() { c.keys.invalidate() }

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}

func boolClaim(m jwtv5.MapClaims, k string) bool {
	b, _ := m[k].(bool)
	return b
}

var errKidNotFound = errors.New("kid not found")
