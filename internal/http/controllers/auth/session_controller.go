package auth

import (
	"net/http"

	"github.com/hccommerce/portal/internal/http/dto"
	httperrors "github.com/hccommerce/portal/internal/http/errors"
	"github.com/hccommerce/portal/internal/http/helpers"
	"github.com/hccommerce/portal/internal/http/middlewares"
	svc "github.com/hccommerce/portal/internal/http/services/auth"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// SessionController expone el estado de sesión al frontend.
type SessionController struct {
	providers *svc.ProvidersService
}

func NewSessionController(providers *svc.ProvidersService) *SessionController {
	return &SessionController{providers: providers}
}

// Session maneja GET /auth/session.
//
// Sin sesión responde 401 con authenticated=false; el body alcanza para
// que el frontend decida qué pintar.
func (c *SessionController) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, ok := middlewares.GetSession(ctx)
	if !ok {
		helpers.WriteJSON(w, http.StatusUnauthorized, dto.SessionResponse{Authenticated: false})
		return
	}

	st, err := c.providers.State(ctx, s.UserID)
	if err != nil {
		logger.From(ctx).Error("session state failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.SessionResponse{
		Authenticated: true,
		User: &dto.UserInfo{
			ID:      s.UserID,
			Email:   s.Email,
			Name:    s.Name,
			Picture: s.Picture,
		},
		Providers: &dto.ProviderState{
			Linked:      st.Linked,
			Missing:     st.Missing,
			Extra:       st.Extra,
			FullyLinked: st.FullyLinked(),
		},
		ExpiresAt: s.ExpiresAt,
	})
}
