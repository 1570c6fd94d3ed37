package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/security/cookiebox"
)

// DefaultCookieName es el nombre de cookie de sesión por defecto.
const DefaultCookieName = "portal_session"

// Transport sella y transporta la Session en una cookie HttpOnly.
//
// El max-age de la cookie es la vida restante de la sesión: la cookie
// nunca sobrevive a los tokens que contiene.
type Transport struct {
	box        *cookiebox.Box
	CookieName string
	Secure     bool
	SameSite   http.SameSite
}

func NewTransport(box *cookiebox.Box, cookieName string, secure bool, sameSite http.SameSite) *Transport {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &Transport{
		box:        box,
		CookieName: cookieName,
		Secure:     secure,
		SameSite:   sameSite,
	}
}

// Persist sella la sesión y la escribe como cookie de respuesta.
func (t *Transport) Persist(w http.ResponseWriter, s Session) error {
	if s.Expired() {
		return flow.ErrSessionExpired
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	sealed, err := t.box.Seal(raw)
	if err != nil {
		return fmt.Errorf("session: seal: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     t.CookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(s.Remaining().Seconds()),
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: t.SameSite,
	})
	return nil
}

// Read abre la cookie de sesión del request. Cookie ausente, ilegible
// o vencida se reporta como flow.ErrSessionExpired: para el caller es
// lo mismo, no hay sesión utilizable.
func (t *Transport) Read(r *http.Request) (Session, error) {
	c, err := r.Cookie(t.CookieName)
	if err != nil || c.Value == "" {
		return Session{}, flow.ErrSessionExpired
	}
	raw, err := t.box.Open(c.Value)
	if err != nil {
		return Session{}, flow.ErrSessionExpired
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, flow.ErrSessionExpired
	}
	if s.UserID == "" || s.Expired() {
		return Session{}, flow.ErrSessionExpired
	}
	return s, nil
}

// Clear expira la cookie de sesión.
func (t *Transport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: t.SameSite,
	})
}
