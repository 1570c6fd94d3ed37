// Package session transporta la sesión autenticada del portal como una
// cookie sellada. El cliente nunca ve el contenido; el servidor confía
// solo en lo que logra abrir y que no esté vencido.
package session

import (
	"time"
)

// Session es el estado autenticado que viaja en la cookie.
type Session struct {
	UserID   string `json:"uid"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"` // último provider autenticado

	AccessToken string `json:"at,omitempty"`
	IDToken     string `json:"idt,omitempty"`

	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// Expired indica si la sesión ya venció.
func (s Session) Expired() bool {
	return s.ExpiresAt <= time.Now().Unix()
}

// Remaining devuelve la vida útil restante (0 si venció).
func (s Session) Remaining() time.Duration {
	d := time.Until(time.Unix(s.ExpiresAt, 0))
	if d < 0 {
		return 0
	}
	return d
}
