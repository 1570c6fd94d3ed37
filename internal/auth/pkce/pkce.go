// Package pkce implementa el codec de la transacción de autorización PKCE.
//
// La transacción vive únicamente en una cookie httpOnly de corta vida
// (~5 minutos); nunca hay estado server-side. El encoding es base64url sin
// padding, sin MAC: state y verifier se validan de forma independiente contra
// el echo del IdP y el check S256 del code_verifier.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hccommerce/portal/internal/auth/flow"
)

const (
	// CookieName es el nombre de la cookie de transacción.
	CookieName = "portal_pkce"

	// CookieMaxAge limita la vida de la transacción (segundos).
	CookieMaxAge = 60 * 5

	// verifierBytes: 32 bytes de entropía para el code_verifier (S256).
	verifierBytes = 32

	// stateBytes: 24 bytes => 192 bits de entropía para el anti-CSRF state.
	stateBytes = 24
)

// ErrMalformed indica un payload de transacción que no parsea o al que le
// faltan campos requeridos.
var ErrMalformed = errors.New("pkce: malformed transaction payload")

// Transaction es la transacción de autorización efímera.
// Se crea en /auth/start y se consume exactamente una vez en /auth/callback.
type Transaction struct {
	State      string      `json:"state"`
	Verifier   string      `json:"verifier"`
	Redirect   string      `json:"redirect"`
	Intent     flow.Intent `json:"intent,omitempty"`
	Provider   string      `json:"provider,omitempty"`
	Connection string      `json:"connection,omitempty"`
}

// NewState genera el token anti-CSRF de la transacción.
func NewState() string {
	return randomURLSafe(stateBytes)
}

// NewVerifier genera el code_verifier PKCE.
func NewVerifier() string {
	return randomURLSafe(verifierBytes)
}

// Challenge deriva el code_challenge S256: base64url(sha256(verifier)), sin padding.
// Debe ser bit-exacto con lo que el IdP recalcula en el token exchange.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Encode serializa la transacción como base64url(JSON), sin padding.
func Encode(t Transaction) string {
	b, _ := json.Marshal(t)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode es el inverso de Encode. Falla con ErrMalformed si el payload no
// parsea o si falta alguno de los campos requeridos (state, verifier, redirect).
func Decode(value string) (Transaction, error) {
	var t Transaction

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		// Tolerar padding por compatibilidad con encoders ajenos.
		raw, err = base64.URLEncoding.DecodeString(value)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if err := json.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if t.State == "" || t.Verifier == "" || t.Redirect == "" {
		return Transaction{}, ErrMalformed
	}
	return t, nil
}

func randomURLSafe(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand no falla en plataformas soportadas; si falla, no hay
		// forma segura de continuar el flujo.
		panic(fmt.Sprintf("pkce: rand.Read: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
