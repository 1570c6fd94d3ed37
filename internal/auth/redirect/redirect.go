// Package redirect centraliza la sanitización del redirect target que llega
// por query/body en los entry points del flujo de auth.
//
// Todos los call sites que aceptan un redirect del caller deben pasar por acá:
// solo se permiten paths relativos a la aplicación (previene open-redirect).
package redirect

import "strings"

// DefaultTarget es el destino post-login cuando el caller no pide uno válido.
const DefaultTarget = "/profile"

// Sanitize valida un redirect target suministrado por el caller.
// Acepta únicamente paths in-app ("/algo"); rechaza URLs absolutas,
// protocolo-relativas ("//evil.example") y cualquier cosa con esquema.
func Sanitize(input string) string {
	return SanitizeWithDefault(input, DefaultTarget)
}

// SanitizeWithDefault es Sanitize con fallback explícito.
func SanitizeWithDefault(input, fallback string) string {
	s := strings.TrimSpace(input)
	if s == "" || !strings.HasPrefix(s, "/") {
		return fallback
	}
	// "//host" y "/\host" son interpretados como URL absoluta por los browsers.
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return fallback
	}
	return s
}
