// Package pages sirve las páginas HTML mínimas del portal: login,
// completar vínculos y perfil. El frontend pesado vive fuera; esto es
// la superficie de respaldo navegable del flujo de auth.
package pages

import (
	"html/template"
	"net/http"

	"github.com/hccommerce/portal/internal/auth/redirect"
	"github.com/hccommerce/portal/internal/http/middlewares"
	svc "github.com/hccommerce/portal/internal/http/services/auth"
	"github.com/hccommerce/portal/internal/observability/logger"
)

// Controller sirve las páginas del portal.
type Controller struct {
	providers   *svc.ProvidersService
	loginPath   string
	landingPath string
}

func NewController(providers *svc.ProvidersService, loginPath, landingPath string) *Controller {
	if landingPath == "" {
		landingPath = "/profile"
	}
	return &Controller{providers: providers, loginPath: loginPath, landingPath: landingPath}
}

var errorMessages = map[string]string{
	"not_configured":        "El inicio de sesión no está disponible en este momento.",
	"session_expired":       "La sesión expiró, probá de nuevo.",
	"state_mismatch":        "No pudimos validar el retorno del proveedor, probá de nuevo.",
	"missing_params":        "El proveedor devolvió una respuesta incompleta.",
	"token_exchange_failed": "No pudimos completar el inicio de sesión con el proveedor.",
	"token_missing":         "El proveedor no entregó las credenciales esperadas.",
	"invalid_token":         "Las credenciales del proveedor no son válidas.",
	"sign_in_failed":        "No se pudo iniciar sesión, probá de nuevo.",
	"identity_conflict":     "Esa cuenta ya está vinculada a otro usuario.",
	"link_failed":           "No se pudo vincular la cuenta.",
	"email_missing":         "El proveedor no entregó un email utilizable.",
}

var loginTmpl = template.Must(template.New("login").Parse(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>Portal — Ingresar</title></head>
<body>
<h1>Ingresar al portal</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<ul>
{{range .Providers}}
  <li><a href="/auth/start?provider={{.}}&redirect={{$.Redirect}}">Continuar con {{.}}</a></li>
{{end}}
</ul>
</body>
</html>`))

var completeTmpl = template.Must(template.New("complete").Parse(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>Portal — Completar vínculos</title></head>
<body>
<h1>Falta un paso</h1>
<p>Para acceder necesitás vincular todas tus cuentas.</p>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<ul>
{{range .Missing}}
  <li><a href="/auth/start?provider={{.}}&intent=link&redirect=/auth/complete">Vincular {{.}}</a></li>
{{end}}
</ul>
{{if not .Missing}}<p><a href="/profile">Continuar al perfil</a></p>{{end}}
</body>
</html>`))

var profileTmpl = template.Must(template.New("profile").Parse(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>Portal — Perfil</title></head>
<body>
<h1>Hola, {{.Name}}</h1>
<p>{{.Email}}</p>
<h2>Cuentas vinculadas</h2>
<ul>
{{range .Linked}}<li>{{.}}</li>{{end}}
</ul>
<form method="post" action="/auth/logout"><button type="submit">Cerrar sesión</button></form>
</body>
</html>`))

func errorMessage(code string) string {
	if code == "" {
		return ""
	}
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return errorMessages["sign_in_failed"]
}

// Login maneja GET /auth/login.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Providers []string
		Error     string
		Redirect  string
	}{
		Providers: c.providers.Required(),
		Error:     errorMessage(r.URL.Query().Get("error")),
		Redirect:  redirect.SanitizeWithDefault(r.URL.Query().Get("redirect"), c.landingPath),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = loginTmpl.Execute(w, data)
}

// Complete maneja GET /auth/complete: muestra qué providers faltan.
func (c *Controller) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, ok := middlewares.GetSession(ctx)
	if !ok {
		http.Redirect(w, r, c.loginPath, http.StatusFound)
		return
	}

	st, err := c.providers.State(ctx, s.UserID)
	if err != nil {
		logger.From(ctx).Error("complete page state failed", logger.Err(err))
		http.Redirect(w, r, c.loginPath, http.StatusFound)
		return
	}

	// Nada pendiente: fuera de acá
	if st.FullyLinked() {
		dest := redirect.SanitizeWithDefault(r.URL.Query().Get("redirect"), c.landingPath)
		http.Redirect(w, r, dest, http.StatusFound)
		return
	}

	data := struct {
		Missing []string
		Error   string
	}{
		Missing: st.Missing,
		Error:   errorMessage(r.URL.Query().Get("error")),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = completeTmpl.Execute(w, data)
}

// Profile maneja GET /profile. La ruta llega gateada: acá siempre hay
// sesión y vinculación completa.
func (c *Controller) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, _ := middlewares.GetSession(ctx)
	st, err := c.providers.State(ctx, s.UserID)
	if err != nil {
		logger.From(ctx).Error("profile page state failed", logger.Err(err))
		http.Redirect(w, r, c.loginPath, http.StatusFound)
		return
	}

	name := s.Name
	if name == "" {
		name = s.Email
	}
	data := struct {
		Name   string
		Email  string
		Linked []string
	}{
		Name:   name,
		Email:  s.Email,
		Linked: append(st.Linked, st.Extra...),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = profileTmpl.Execute(w, data)
}
