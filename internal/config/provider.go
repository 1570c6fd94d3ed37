package config

import (
	"strings"

	"github.com/hccommerce/portal/internal/auth/flow"
)

// ProviderConfig es la configuración normalizada del identity provider externo.
type ProviderConfig struct {
	// Domain normalizado: con esquema https:// y sin slash final.
	Domain       string
	ClientID     string
	ClientSecret string

	// Opcionales.
	Audience   string
	Connection string
}

// Issuer retorna el issuer esperado en los id_tokens: dominio con slash final.
func (p ProviderConfig) Issuer() string {
	return p.Domain + "/"
}

// AuthorizeEndpoint retorna el endpoint de autorización del IdP.
func (p ProviderConfig) AuthorizeEndpoint() string {
	return p.Domain + "/authorize"
}

// TokenEndpoint retorna el token endpoint del IdP.
func (p ProviderConfig) TokenEndpoint() string {
	return p.Domain + "/oauth/token"
}

// JWKSEndpoint retorna la URL del key set publicado por el IdP.
func (p ProviderConfig) JWKSEndpoint() string {
	return p.Domain + "/.well-known/jwks.json"
}

// Variables de entorno del IdP. El resolver falla cerrado si falta alguna
// de las requeridas: los callers redirigen a "service unavailable", nunca 500.
const (
	EnvIDPDomain       = "IDP_DOMAIN"
	EnvIDPClientID     = "IDP_CLIENT_ID"
	EnvIDPClientSecret = "IDP_CLIENT_SECRET"
	EnvIDPAudience     = "IDP_AUDIENCE"
	EnvIDPConnection   = "IDP_CONNECTION"
)

// ResolveProvider arma la configuración del IdP desde el entorno.
// getenv se inyecta para poder testear sin tocar el entorno del proceso.
// Falla con flow.ErrNotConfigured si domain, client id o client secret faltan.
func ResolveProvider(getenv func(string) string) (*ProviderConfig, error) {
	domain := strings.TrimSpace(getenv(EnvIDPDomain))
	clientID := strings.TrimSpace(getenv(EnvIDPClientID))
	clientSecret := strings.TrimSpace(getenv(EnvIDPClientSecret))

	if domain == "" || clientID == "" || clientSecret == "" {
		return nil, flow.ErrNotConfigured
	}

	return &ProviderConfig{
		Domain:       normalizeDomain(domain),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Audience:     strings.TrimSpace(getenv(EnvIDPAudience)),
		Connection:   strings.TrimSpace(getenv(EnvIDPConnection)),
	}, nil
}

// normalizeDomain: trim, sin slash final, y https:// por defecto si no trae esquema.
func normalizeDomain(raw string) string {
	d := strings.TrimRight(strings.TrimSpace(raw), "/")
	lower := strings.ToLower(d)
	if !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "http://") {
		d = "https://" + d
	}
	return d
}
