// Package dto contiene los contratos JSON expuestos por el portal.
package dto

import "time"

// UserInfo es la vista pública del usuario autenticado.
type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// ProviderState describe la vinculación frente a los providers requeridos.
type ProviderState struct {
	Linked      []string `json:"linked"`
	Missing     []string `json:"missing"`
	Extra       []string `json:"extra,omitempty"`
	FullyLinked bool     `json:"fully_linked"`
}

// SessionResponse es la respuesta de GET /auth/session.
type SessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *UserInfo      `json:"user,omitempty"`
	Providers     *ProviderState `json:"providers,omitempty"`
	ExpiresAt     int64          `json:"expires_at,omitempty"`
}

// LinkStartResponse es la respuesta de POST /auth/providers/{provider}/link.
type LinkStartResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

// LogoutResponse es la respuesta de POST /auth/logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}

// TipRequest es el cuerpo de POST /tipline.
type TipRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TipResponse confirma la recepción de un tip.
type TipResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
