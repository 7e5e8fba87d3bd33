// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Flows reported on the logins counter.
const (
	FlowLocal  = "local"
	FlowGoogle = "google"
	FlowJWT    = "jwt"
)

type Metrics struct {
	reg           *prometheus.Registry
	registrations prometheus.Counter
	confirmations prometheus.Counter
	logins        *prometheus.CounterVec
	tokenInfo     prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		reg: reg,
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accounts_registrations_total",
			Help: "Local accounts created.",
		}),
		confirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accounts_confirmations_total",
			Help: "Accounts activated with a confirmation code.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_logins_total",
			Help: "Login attempts by flow and outcome.",
		}, []string{"flow", "outcome"}),
		tokenInfo: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "accounts_google_tokeninfo_seconds",
			Help:    "Latency of Google tokeninfo calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.registrations, m.confirmations, m.logins, m.tokenInfo)
	return m
}

func (m *Metrics) Registered() { m.registrations.Inc() }

func (m *Metrics) Confirmed() { m.confirmations.Inc() }

// Login records one login attempt. outcome is "ok" or a short failure tag.
func (m *Metrics) Login(flow, outcome string) {
	m.logins.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) ObserveTokenInfo(d time.Duration) {
	m.tokenInfo.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
