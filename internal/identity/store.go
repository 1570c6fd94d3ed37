package identity

import "context"

// Store es el contrato de persistencia de usuarios y vínculos.
//
// Las implementaciones devuelven ErrNotFound cuando la fila no existe y
// ErrConflict ante violaciones de unicidad (email de usuario, par
// provider+subject de vínculo).
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateLink(ctx context.Context, l Link) (Link, error)
	// UpdateLink refresca email y hace merge (shallow) de metadata sobre
	// el vínculo existente.
	UpdateLink(ctx context.Context, l Link) (Link, error)
	GetLink(ctx context.Context, provider, subject string) (Link, error)
	ListLinks(ctx context.Context, userID string) ([]Link, error)
	DeleteLink(ctx context.Context, userID, provider string) error
}
