// Package tipline contiene el controller del buzón de avisos.
package tipline

import (
	"errors"
	"net/http"

	"github.com/hccommerce/portal/internal/http/dto"
	httperrors "github.com/hccommerce/portal/internal/http/errors"
	"github.com/hccommerce/portal/internal/http/helpers"
	"github.com/hccommerce/portal/internal/http/middlewares"
	"github.com/hccommerce/portal/internal/metrics"
	"github.com/hccommerce/portal/internal/observability/logger"
	"github.com/hccommerce/portal/internal/tipline"
)

// Controller maneja POST /tipline.
type Controller struct {
	service *tipline.Service
}

func NewController(service *tipline.Service) *Controller {
	return &Controller{service: service}
}

// Submit recibe un tip de un usuario autenticado y completamente
// vinculado (la ruta llega gateada).
func (c *Controller) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TipSubmit"))

	s, ok := middlewares.GetSession(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrSessionExpired)
		return
	}

	var req dto.TipRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	tip, err := c.service.Submit(ctx, s.UserID, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, tipline.ErrInvalid) {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
			return
		}
		log.Error("tip submit failed", logger.UserID(s.UserID), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	metrics.TipsSubmitted.Inc()
	helpers.WriteJSON(w, http.StatusCreated, dto.TipResponse{
		ID:        tip.ID,
		CreatedAt: tip.CreatedAt,
	})
}
