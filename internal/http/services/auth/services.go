// Package auth contiene los services del flujo de autenticación del
// portal: inicio de autorización, resolución de callback y gestión de
// vínculos de providers.
package auth

import (
	"time"

	"github.com/hccommerce/portal/internal/identity"
	"github.com/hccommerce/portal/internal/oauth/oidc"
	"github.com/hccommerce/portal/internal/session"
)

// Deps contiene las dependencias para crear los services de auth.
type Deps struct {
	Providers  map[string]*oidc.Client // clientes OIDC por nombre de provider
	Store      identity.Store
	Reconciler identity.Reconciler
	Transport  *session.Transport

	BaseURL           string        // URL pública del portal
	DefaultRedirect   string        // destino post-login por defecto
	RequiredProviders []string      // providers que el gate exige
	TxCookieName      string        // cookie de transacción PKCE
	TxTTL             time.Duration // vida de la transacción
	TxSecure          bool          // Secure flag de la cookie de transacción
}

// Services agrupa todos los services del dominio auth.
type Services struct {
	Begin     *BeginService
	Callback  *CallbackService
	Providers *ProvidersService
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	return Services{
		Begin:     NewBeginService(d),
		Callback:  NewCallbackService(d),
		Providers: NewProvidersService(d),
	}
}
