// Package flow define la taxonomía de errores del flujo de autenticación.
//
// Los handlers convierten estos errores en redirects con ?error=<code>;
// ninguno de ellos debe terminar en un 500 hacia el browser.
package flow

import "errors"

// Errores del flujo de autorización/callback.
var (
	// ErrNotConfigured: configuración del IdP incompleta (error de operador, no de usuario).
	ErrNotConfigured = errors.New("identity provider not configured")

	// ErrMissingParams: el callback llegó sin code o sin state.
	ErrMissingParams = errors.New("callback missing code or state")

	// ErrSessionExpired: la cookie de transacción PKCE no está presente (expiró o nunca existió).
	ErrSessionExpired = errors.New("authorization transaction expired")

	// ErrStateMismatch: el state del callback no coincide con el de la transacción.
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrTokenExchange: el token endpoint del IdP respondió non-2xx o no respondió.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrTokenMissing: la respuesta del token endpoint no trae id_token o access_token.
	ErrTokenMissing = errors.New("token response missing tokens")

	// ErrTokenInvalid: firma, issuer, audience o expiración del id_token inválidos.
	ErrTokenInvalid = errors.New("identity token invalid")

	// ErrSignInFailed: la reconciliación no pudo producir una sesión del portal.
	ErrSignInFailed = errors.New("sign in failed")

	// ErrIdentityConflict: la identidad externa ya está vinculada a otro usuario.
	ErrIdentityConflict = errors.New("identity already linked to another user")

	// ErrLinkFailed: fallo genérico al vincular una identidad adicional.
	ErrLinkFailed = errors.New("identity link failed")

	// ErrLastProvider: desvincular dejaría al usuario sin identidades.
	ErrLastProvider = errors.New("cannot unlink the last remaining provider")

	// ErrNotLinked: el proveedor no está vinculado al usuario actual.
	ErrNotLinked = errors.New("provider not linked")

	// ErrUnknownProvider: el proveedor no forma parte del set requerido.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Códigos estables expuestos via ?error= en redirects a la página de login.
const (
	CodeNotConfigured       = "not_configured"
	CodeSessionExpired      = "session_expired"
	CodeStateMismatch       = "state_mismatch"
	CodeMissingParams       = "missing_params"
	CodeTokenExchangeFailed = "token_exchange_failed"
	CodeTokenMissing        = "token_missing"
	CodeInvalidToken        = "invalid_token"
	CodeSignInFailed        = "sign_in_failed"
	CodeIdentityConflict    = "identity_conflict"
	CodeLinkFailed          = "link_failed"

	// CodeEmailMissing queda en la taxonomía para links/clientes viejos;
	// la derivación de email sintético hace que hoy no se emita.
	CodeEmailMissing = "email_missing"
)

// CodeOf mapea un error del flujo a su código estable.
// Errores desconocidos colapsan en sign_in_failed: nunca filtramos detalle upstream.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return CodeNotConfigured
	case errors.Is(err, ErrMissingParams), errors.Is(err, ErrUnknownProvider):
		return CodeMissingParams
	case errors.Is(err, ErrSessionExpired):
		return CodeSessionExpired
	case errors.Is(err, ErrStateMismatch):
		return CodeStateMismatch
	case errors.Is(err, ErrTokenExchange):
		return CodeTokenExchangeFailed
	case errors.Is(err, ErrTokenMissing):
		return CodeTokenMissing
	case errors.Is(err, ErrTokenInvalid):
		return CodeInvalidToken
	case errors.Is(err, ErrIdentityConflict):
		return CodeIdentityConflict
	case errors.Is(err, ErrLinkFailed):
		return CodeLinkFailed
	default:
		return CodeSignInFailed
	}
}

// Intent indica si el flujo inicia sesión o vincula una identidad adicional.
type Intent string

const (
	IntentLogin Intent = "login"
	IntentLink  Intent = "link"
)

// ParseIntent normaliza el intent recibido por query param.
// Cualquier valor desconocido cae en login.
func ParseIntent(s string) Intent {
	if s == string(IntentLink) {
		return IntentLink
	}
	return IntentLogin
}
