package auth

import (
	"net/http"

	"github.com/hccommerce/portal/internal/http/dto"
	"github.com/hccommerce/portal/internal/http/helpers"
	"github.com/hccommerce/portal/internal/session"
)

// LogoutController cierra la sesión local del portal.
type LogoutController struct {
	transport *session.Transport
}

func NewLogoutController(transport *session.Transport) *LogoutController {
	return &LogoutController{transport: transport}
}

// Logout maneja POST /auth/logout. Solo borra la cookie local; no hay
// logout federado contra el IdP, y la limpieza es incondicional.
func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	c.transport.Clear(w)
	helpers.WriteJSON(w, http.StatusOK, dto.LogoutResponse{Success: true})
}
