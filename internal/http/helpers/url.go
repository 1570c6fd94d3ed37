package helpers

import (
	"net/http"
	"net/url"
	"strings"
)

// BaseURL reconstruye la URL base pública del request, respetando
// X-Forwarded-Proto cuando el portal corre detrás de un proxy.
// Si configured no es vacío, manda la configuración.
func BaseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// RedirectWithError redirige a target agregando ?error=<code>.
func RedirectWithError(w http.ResponseWriter, r *http.Request, target, code string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
