package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. The increment
// helpers are nil-safe so tests can pass a zero value.
type Metrics struct {
	ProfilesProvisioned prometheus.Counter
	RecordsCreated      *prometheus.CounterVec
	RecordsUpdated      *prometheus.CounterVec
	RecordsDeleted      *prometheus.CounterVec
	OwnershipDenied     *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ProfilesProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "member_vault_profiles_provisioned_total",
			Help: "Total number of profiles lazily provisioned",
		}),
		RecordsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "member_vault_records_created_total",
			Help: "Owned records created, by kind",
		}, []string{"kind"}),
		RecordsUpdated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "member_vault_records_updated_total",
			Help: "Owned records updated, by kind",
		}, []string{"kind"}),
		RecordsDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "member_vault_records_deleted_total",
			Help: "Owned records deleted, by kind",
		}, []string{"kind"}),
		OwnershipDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "member_vault_ownership_denied_total",
			Help: "Requests rejected by the ownership check, by kind",
		}, []string{"kind"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "member_vault_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) IncProfilesProvisioned() {
	if m == nil || m.ProfilesProvisioned == nil {
		return
	}
	m.ProfilesProvisioned.Inc()
}

func (m *Metrics) IncRecordsCreated(kind string) {
	if m == nil || m.RecordsCreated == nil {
		return
	}
	m.RecordsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncRecordsUpdated(kind string) {
	if m == nil || m.RecordsUpdated == nil {
		return
	}
	m.RecordsUpdated.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncRecordsDeleted(kind string) {
	if m == nil || m.RecordsDeleted == nil {
		return
	}
	m.RecordsDeleted.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncOwnershipDenied(kind string) {
	if m == nil || m.OwnershipDenied == nil {
		return
	}
	m.OwnershipDenied.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil || m.RequestDuration == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}
