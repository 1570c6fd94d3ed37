// Package auth contiene los controllers HTTP del flujo de autenticación.
package auth

import (
	svc "github.com/hccommerce/portal/internal/http/services/auth"
	"github.com/hccommerce/portal/internal/session"
)

// Controllers agrupa los controllers del dominio auth.
type Controllers struct {
	Start     *StartController
	Callback  *CallbackController
	Session   *SessionController
	Logout    *LogoutController
	Providers *ProvidersController
}

// Deps contiene las dependencias de los controllers auth.
type Deps struct {
	Services  svc.Services
	Transport *session.Transport
	LoginPath string
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(d Deps) *Controllers {
	return &Controllers{
		Start:     NewStartController(d.Services.Begin, d.LoginPath),
		Callback:  NewCallbackController(d.Services.Begin, d.Services.Callback, d.Transport, d.LoginPath),
		Session:   NewSessionController(d.Services.Providers),
		Logout:    NewLogoutController(d.Transport),
		Providers: NewProvidersController(d.Services.Begin, d.Services.Providers),
	}
}
