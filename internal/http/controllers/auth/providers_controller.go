package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/http/dto"
	httperrors "github.com/hccommerce/portal/internal/http/errors"
	"github.com/hccommerce/portal/internal/http/helpers"
	"github.com/hccommerce/portal/internal/http/middlewares"
	svc "github.com/hccommerce/portal/internal/http/services/auth"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// ProvidersController gestiona vínculos de providers vía API JSON.
type ProvidersController struct {
	begin     *svc.BeginService
	providers *svc.ProvidersService
}

func NewProvidersController(begin *svc.BeginService, providers *svc.ProvidersService) *ProvidersController {
	return &ProvidersController{begin: begin, providers: providers}
}

// Link maneja POST /auth/providers/{provider}/link.
//
// Devuelve la URL de autorización y deja la cookie de transacción
// lista; el frontend navega a la URL para completar la vinculación.
func (c *ProvidersController) Link(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Link"))

	s, ok := middlewares.GetSession(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrSessionExpired)
		return
	}

	provider := strings.TrimSpace(chi.URLParam(r, "provider"))
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	st, err := c.providers.State(ctx, s.UserID)
	if err != nil {
		log.Error("link state failed", logger.UserID(s.UserID), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	for _, p := range append(st.Linked, st.Extra...) {
		if p == provider {
			httperrors.WriteError(w, httperrors.ErrIdentityConflict.WithDetail("provider already linked"))
			return
		}
	}

	res, err := c.begin.Begin(ctx, provider, flow.IntentLink, r.URL.Query().Get("redirect"))
	if err != nil {
		log.Warn("link begin failed", logger.Provider(provider), logger.UserID(s.UserID), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	http.SetCookie(w, res.Cookie)
	helpers.WriteJSON(w, http.StatusOK, dto.LinkStartResponse{AuthorizeURL: res.AuthorizeURL})
}

// Unlink maneja DELETE /auth/providers/{provider}/unlink.
func (c *ProvidersController) Unlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Unlink"))

	s, ok := middlewares.GetSession(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrSessionExpired)
		return
	}

	provider := strings.TrimSpace(chi.URLParam(r, "provider"))
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	st, err := c.providers.Unlink(ctx, s.UserID, provider)
	if err != nil {
		log.Warn("unlink failed", logger.Provider(provider), logger.UserID(s.UserID), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.ProviderState{
		Linked:      st.Linked,
		Missing:     st.Missing,
		Extra:       st.Extra,
		FullyLinked: st.FullyLinked(),
	})
}
