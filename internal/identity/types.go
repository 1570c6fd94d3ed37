// Package identity modela a los usuarios del portal y sus vínculos con
// identidades externas, y resuelve a qué usuario pertenece cada identidad
// verificada que vuelve del IdP.
package identity

import (
	"errors"
	"time"
)

// User es la cuenta local del portal. Se crea en el primer sign-in y
// acumula vínculos de providers a partir de ahí.
type User struct {
	ID        string
	Email     string
	Name      string
	Picture   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Link vincula una identidad externa (provider, subject) con un User.
// El par (provider, subject) es único en todo el sistema.
type Link struct {
	ID        string
	UserID    string
	Provider  string
	Subject   string
	Email     string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Errores del storage de identidad.
var (
	ErrNotFound = errors.New("identity: not found")
	ErrConflict = errors.New("identity: conflict")
)
