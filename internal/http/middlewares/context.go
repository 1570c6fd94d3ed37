package middlewares

import (
	"context"

	"github.com/hccommerce/portal/internal/session"
)

type ctxKey string

const (
	// ctxSessionKey guarda la sesión abierta por WithSession
	ctxSessionKey ctxKey = "session"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// withSession inyecta la sesión en el contexto (interno)
func withSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, s)
}

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetSession obtiene la sesión del contexto.
// El bool indica si hay una sesión válida (middleware aplicado y cookie abierta).
func GetSession(ctx context.Context) (session.Session, bool) {
	if v := ctx.Value(ctxSessionKey); v != nil {
		if s, ok := v.(session.Session); ok {
			return s, true
		}
	}
	return session.Session{}, false
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
