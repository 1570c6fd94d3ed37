package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/oauth/oidc"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// Reconciler mapea una identidad externa verificada a un User local.
// Las estrategias son excluyentes: una sola implementación activa por
// despliegue.
type Reconciler interface {
	Reconcile(ctx context.Context, intent flow.Intent, sessionUserID string, id *oidc.Identity) (User, error)
}

// LinkingReconciler implementa la estrategia de vinculación nativa.
// Cada (provider, subject) apunta a lo sumo a un usuario; el portal
// nunca fabrica credenciales locales ni comparte secretos derivados
// entre sistemas.
type LinkingReconciler struct {
	store Store
	log   *zap.Logger
}

func NewLinkingReconciler(store Store) *LinkingReconciler {
	return &LinkingReconciler{
		store: store,
		log:   logger.Named("identity.reconciler"),
	}
}

// Reconcile resuelve el usuario local para la identidad verificada.
//
// Con intent "link", sessionUserID es el usuario autenticado al que se
// adjunta la identidad: si el par (provider, subject) ya pertenece a
// OTRO usuario, falla con flow.ErrIdentityConflict; si ya pertenece al
// mismo, el re-link es idempotente.
//
// Con intent "login", el vínculo existente manda; si no hay vínculo se
// busca (o crea) el usuario por email y se adjunta el vínculo. Una
// identidad sin email utilizable (ausente o no verificado por el IdP)
// recibe uno sintético derivado del subject, para que la cuenta local
// siempre tenga una clave estable. Un email no verificado jamás entra
// al lookup: permitiría adjuntarse a la cuenta de otro usuario con solo
// declarar su dirección ante el IdP.
func (r *LinkingReconciler) Reconcile(ctx context.Context, intent flow.Intent, sessionUserID string, id *oidc.Identity) (User, error) {
	email := id.Email
	if email == "" || !id.EmailVerified {
		email = SyntheticEmail(id.Provider, id.Subject)
	}

	if intent == flow.IntentLink {
		if sessionUserID == "" {
			return User{}, flow.ErrSessionExpired
		}
		return r.reconcileLink(ctx, sessionUserID, id, email)
	}
	return r.reconcileLogin(ctx, id, email)
}

func (r *LinkingReconciler) reconcileLink(ctx context.Context, sessionUserID string, id *oidc.Identity, email string) (User, error) {
	link, err := r.store.GetLink(ctx, id.Provider, id.Subject)
	switch {
	case err == nil:
		if link.UserID != sessionUserID {
			r.log.Warn("identity already linked to another user",
				logger.Provider(id.Provider), logger.UserID(sessionUserID))
			return User{}, flow.ErrIdentityConflict
		}
		// Re-link idempotente: solo refrescar los datos del vínculo
		if _, err := r.store.UpdateLink(ctx, r.linkRow(link.UserID, id, email)); err != nil {
			return User{}, fmt.Errorf("%w: %v", flow.ErrLinkFailed, err)
		}
	case errors.Is(err, ErrNotFound):
		if _, err := r.store.CreateLink(ctx, r.linkRow(sessionUserID, id, email)); err != nil {
			if !errors.Is(err, ErrConflict) {
				return User{}, fmt.Errorf("%w: %v", flow.ErrLinkFailed, err)
			}
			// Carrera con otro request: releer y decidir por dueño real
			existing, gerr := r.store.GetLink(ctx, id.Provider, id.Subject)
			if gerr != nil {
				return User{}, fmt.Errorf("%w: %v", flow.ErrLinkFailed, gerr)
			}
			if existing.UserID != sessionUserID {
				return User{}, flow.ErrIdentityConflict
			}
		}
	default:
		return User{}, fmt.Errorf("%w: %v", flow.ErrLinkFailed, err)
	}

	user, err := r.store.GetUser(ctx, sessionUserID)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, err)
	}
	return user, nil
}

func (r *LinkingReconciler) reconcileLogin(ctx context.Context, id *oidc.Identity, email string) (User, error) {
	link, err := r.store.GetLink(ctx, id.Provider, id.Subject)
	if err == nil {
		user, uerr := r.store.GetUser(ctx, link.UserID)
		if uerr == nil {
			if _, err := r.store.UpdateLink(ctx, r.linkRow(link.UserID, id, email)); err != nil {
				r.log.Warn("link refresh failed", logger.Provider(id.Provider), logger.Err(err))
			}
			return user, nil
		}
		if !errors.Is(uerr, ErrNotFound) {
			return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, uerr)
		}
		// Vínculo colgante (usuario borrado): limpiar y seguir por email
		r.log.Warn("dangling link, removing", logger.Provider(id.Provider), logger.UserID(link.UserID))
		_ = r.store.DeleteLink(ctx, link.UserID, id.Provider)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, err)
	}

	user, err := r.findOrCreateUser(ctx, id, email)
	if err != nil {
		return User{}, err
	}

	if _, err := r.store.CreateLink(ctx, r.linkRow(user.ID, id, email)); err != nil {
		if !errors.Is(err, ErrConflict) {
			return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, err)
		}
		// Carrera con otro login de la misma identidad: gana el dueño
		existing, gerr := r.store.GetLink(ctx, id.Provider, id.Subject)
		if gerr != nil {
			return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, gerr)
		}
		owner, gerr := r.store.GetUser(ctx, existing.UserID)
		if gerr != nil {
			return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, gerr)
		}
		return owner, nil
	}
	return user, nil
}

func (r *LinkingReconciler) findOrCreateUser(ctx context.Context, id *oidc.Identity, email string) (User, error) {
	user, err := r.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, err)
	}

	user, err = r.store.CreateUser(ctx, User{
		Email:   email,
		Name:    id.Name,
		Picture: id.Picture,
	})
	if err == nil {
		r.log.Info("user created", logger.UserID(user.ID), logger.Provider(id.Provider))
		return user, nil
	}
	if !errors.Is(err, ErrConflict) {
		return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, err)
	}
	// Carrera: otro request creó el usuario con el mismo email
	user, err = r.store.GetUserByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", flow.ErrSignInFailed, err)
	}
	return user, nil
}

// linkRow arma la fila del vínculo. Al patch de metadata solo entran
// claims presentes en el id_token: el merge jsonb del store no debe
// pisar valores guardados con ceros de claims ausentes.
func (r *LinkingReconciler) linkRow(userID string, id *oidc.Identity, email string) Link {
	meta := map[string]any{}
	for _, k := range []string{"name", "nickname", "picture", "email_verified"} {
		if v, ok := id.Raw[k]; ok {
			meta[k] = v
		}
	}
	return Link{
		UserID:   userID,
		Provider: id.Provider,
		Subject:  id.Subject,
		Email:    email,
		Metadata: meta,
	}
}

// SyntheticEmail deriva una dirección estable y no entregable a partir
// del subject, para identidades que no exponen email.
func SyntheticEmail(provider, subject string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, subject)
	return fmt.Sprintf("%s@%s.auth.portal.local", sanitized, provider)
}
