// Package metrics define las métricas Prometheus del portal en un
// paquete propio para evitar ciclos de import entre HTTP y servicios.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "Requests HTTP atendidos, por método, ruta y status",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_ms",
		Help:    "Duración de requests HTTP en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"method", "route"})

	AuthFlowStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_auth_flow_started_total",
		Help: "Flujos de autorización iniciados, por provider e intent",
	}, []string{"provider", "intent"})

	AuthFlowCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_auth_flow_completed_total",
		Help: "Callbacks resueltos, por provider, intent y resultado",
	}, []string{"provider", "intent", "outcome"})

	SessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_sessions_issued_total",
		Help: "Sesiones emitidas tras un sign-in exitoso",
	})

	TipsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_tips_submitted_total",
		Help: "Tips recibidos por el tipline",
	})
)

// Register registra todas las métricas en el registry dado (o el default).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		HTTPRequests,
		HTTPDuration,
		AuthFlowStarted,
		AuthFlowCompleted,
		SessionsIssued,
		TipsSubmitted,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
