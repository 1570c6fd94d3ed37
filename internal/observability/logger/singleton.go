package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init inicializa el logger singleton con la configuración dada.
// Es idempotente: solo la primera llamada tiene efecto.
// Debe llamarse al inicio de la aplicación (main.go).
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L retorna el logger singleton. Si Init() no fue llamado (tests,
// herramientas) crea uno de desarrollo identificado como portal.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info", ServiceName: "portal"})
	}
	return instance
}

// Named retorna un logger de componente. La convención del portal es
// la ruta del paquete en notación de puntos: "identity.reconciler",
// "oidc.jwks", "email.smtp".
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushea cualquier buffer pendiente.
// Debe llamarse con defer en main.go.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
