// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/hccommerce/portal/internal/http/helpers"
)

// Pinger es cualquier dependencia que sepa reportar su salud.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component es una dependencia con nombre para el reporte.
type Component struct {
	Name   string
	Pinger Pinger
}

// HealthController maneja las rutas de health check.
type HealthController struct {
	components []Component
	version    string
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(version string, components ...Component) *HealthController {
	return &HealthController{components: components, version: version}
}

type componentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components []componentStatus `json:"components,omitempty"`
}

// Healthz maneja GET /healthz: liveness pura, sin tocar dependencias.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: c.version})
}

// Readyz maneja GET /readyz: verifica las dependencias con timeout corto.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ready", Version: c.version}
	status := http.StatusOK

	for _, comp := range c.components {
		cs := componentStatus{Name: comp.Name, Status: "ok"}
		if err := comp.Pinger.Ping(ctx); err != nil {
			cs.Status = "unavailable"
			cs.Error = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		resp.Components = append(resp.Components, cs)
	}

	helpers.WriteJSON(w, status, resp)
}
