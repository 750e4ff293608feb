// Package metrics exposes Prometheus counters for the identity service's
// security-relevant events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the identity service's instruments. A nil *Metrics is a
// valid no-op receiver, so tests don't have to register anything.
type Metrics struct {
	loginsTotal        *prometheus.CounterVec
	refreshesTotal     *prometheus.CounterVec
	refreshReuseTotal  prometheus.Counter
	sessionsRevoked    prometheus.Counter
	apiKeysIssued      prometheus.Counter
	apiKeysRevoked     prometheus.Counter
	passkeyCeremonies  *prometheus.CounterVec
	signCountAnomalies prometheus.Counter
}

// New registers the instruments on the default registry.
func New() *Metrics {
	return &Metrics{
		loginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_logins_total",
			Help: "Login attempts by method and result.",
		}, []string{"method", "result"}),

		refreshesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_refreshes_total",
			Help: "Refresh rotations by result.",
		}, []string{"result"}),

		refreshReuseTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identity_refresh_reuse_total",
			Help: "Refresh token replays that revoked a session.",
		}),

		sessionsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identity_sessions_revoked_total",
			Help: "Sessions revoked via logout or explicit revocation.",
		}),

		apiKeysIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identity_api_keys_issued_total",
			Help: "API keys minted.",
		}),

		apiKeysRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identity_api_keys_revoked_total",
			Help: "API key grants revoked.",
		}),

		passkeyCeremonies: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_passkey_ceremonies_total",
			Help: "WebAuthn ceremonies by type and result.",
		}, []string{"type", "result"}),

		signCountAnomalies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identity_passkey_sign_count_anomalies_total",
			Help: "Assertions rejected for a non-advancing sign counter.",
		}),
	}
}

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordLogin(method, result string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(method, result).Inc()
}

func (m *Metrics) RecordRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRefreshReuse() {
	if m == nil {
		return
	}
	m.refreshReuseTotal.Inc()
}

func (m *Metrics) RecordSessionRevoked() {
	if m == nil {
		return
	}
	m.sessionsRevoked.Inc()
}

func (m *Metrics) RecordAPIKeyIssued() {
	if m == nil {
		return
	}
	m.apiKeysIssued.Inc()
}

func (m *Metrics) RecordAPIKeyRevoked() {
	if m == nil {
		return
	}
	m.apiKeysRevoked.Inc()
}

func (m *Metrics) RecordPasskeyCeremony(ceremonyType, result string) {
	if m == nil {
		return
	}
	m.passkeyCeremonies.WithLabelValues(ceremonyType, result).Inc()
}

func (m *Metrics) RecordSignCountAnomaly() {
	if m == nil {
		return
	}
	m.signCountAnomalies.Inc()
}
