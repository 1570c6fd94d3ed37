package auth

import (
	"context"
	"fmt"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/identity"
	"github.com/hccommerce/portal/internal/linking"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// ProvidersService gestiona el estado de vinculación del usuario.
type ProvidersService struct {
	store    identity.Store
	required []string
}

func NewProvidersService(d Deps) *ProvidersService {
	return &ProvidersService{
		store:    d.Store,
		required: d.RequiredProviders,
	}
}

// Required expone la lista de providers requeridos.
func (s *ProvidersService) Required() []string { return s.required }

// State calcula el estado de vinculación del usuario frente a los
// providers requeridos.
func (s *ProvidersService) State(ctx context.Context, userID string) (linking.State, error) {
	links, err := s.store.ListLinks(ctx, userID)
	if err != nil {
		return linking.State{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, err)
	}
	return linking.Resolve(links, s.required), nil
}

// Unlink desvincula un provider del usuario, respetando la política de
// último vínculo.
func (s *ProvidersService) Unlink(ctx context.Context, userID, provider string) (linking.State, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Unlink"))

	links, err := s.store.ListLinks(ctx, userID)
	if err != nil {
		return linking.State{}, fmt.Errorf("%w: %v", flow.ErrLinkFailed, err)
	}
	if err := linking.CheckUnlink(links, provider); err != nil {
		return linking.State{}, err
	}
	if err := s.store.DeleteLink(ctx, userID, provider); err != nil {
		return linking.State{}, fmt.Errorf("%w: %v", flow.ErrLinkFailed, err)
	}

	log.Info("provider unlinked", logger.Provider(provider), logger.UserID(userID))

	remaining := make([]identity.Link, 0, len(links)-1)
	for _, l := range links {
		if l.Provider != provider {
			remaining = append(remaining, l)
		}
	}
	return linking.Resolve(remaining, s.required), nil
}
