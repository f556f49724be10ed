// Package metrics defines the Prometheus instruments exported by the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors. Construct one per
// process with New and share it across handlers and services.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	TenantsProvisioned prometheus.Counter
}

// New registers the gateway collectors on reg and returns them. Passing a
// fresh registry in tests keeps registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filegateway",
			Name:      "requests_total",
			Help:      "API requests by operation and outcome status.",
		}, []string{"operation", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "filegateway",
			Name:      "request_duration_seconds",
			Help:      "API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		TenantsProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "filegateway",
			Name:      "tenants_provisioned_total",
			Help:      "Tenant namespaces created by lazy provisioning.",
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.TenantsProvisioned)
	return m
}
