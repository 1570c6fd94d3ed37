// Package linking calcula el estado de vinculación de un usuario frente
// a los providers requeridos y decide el acceso a rutas protegidas.
package linking

import (
	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/identity"
)

// State es el estado de vinculación de un usuario en un instante dado.
type State struct {
	// Linked: providers requeridos que el usuario ya vinculó, en el
	// orden de la lista requerida.
	Linked []string
	// Missing: providers requeridos que faltan, en el mismo orden.
	Missing []string
	// Extra: vínculos del usuario fuera de la lista requerida.
	Extra []string
}

// FullyLinked indica si el usuario cubrió todos los providers requeridos.
func (s State) FullyLinked() bool { return len(s.Missing) == 0 }

// Resolve computa el State de un conjunto de vínculos contra la lista
// de providers requeridos.
func Resolve(links []identity.Link, required []string) State {
	have := make(map[string]bool, len(links))
	for _, l := range links {
		have[l.Provider] = true
	}

	var st State
	req := make(map[string]bool, len(required))
	for _, p := range required {
		req[p] = true
		if have[p] {
			st.Linked = append(st.Linked, p)
		} else {
			st.Missing = append(st.Missing, p)
		}
	}
	for _, l := range links {
		if !req[l.Provider] {
			st.Extra = append(st.Extra, l.Provider)
		}
	}
	return st
}

// Decision es el veredicto del gate para una ruta protegida.
type Decision int

const (
	// Allow: sesión válida y vinculación completa.
	Allow Decision = iota
	// RedirectLogin: no hay sesión utilizable.
	RedirectLogin
	// RedirectComplete: hay sesión pero faltan providers requeridos.
	RedirectComplete
)

// Decide aplica la política de acceso: sin sesión se va a login, con
// sesión incompleta se va a completar vínculos, y solo la vinculación
// total deja pasar.
func Decide(hasSession bool, st State) Decision {
	if !hasSession {
		return RedirectLogin
	}
	if !st.FullyLinked() {
		return RedirectComplete
	}
	return Allow
}

// CheckUnlink valida que se pueda desvincular provider del conjunto
// actual de vínculos. Desvincular algo no vinculado falla con
// flow.ErrNotLinked; quitar el último vínculo dejaría la cuenta sin
// forma de entrar y falla con flow.ErrLastProvider.
func CheckUnlink(links []identity.Link, provider string) error {
	found := false
	for _, l := range links {
		if l.Provider == provider {
			found = true
			break
		}
	}
	if !found {
		return flow.ErrNotLinked
	}
	if len(links) <= 1 {
		return flow.ErrLastProvider
	}
	return nil
}
