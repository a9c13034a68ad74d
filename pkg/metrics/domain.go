package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuthzMetrics counts authorization denials per policy.
type AuthzMetrics struct {
	denied *prometheus.CounterVec
}

// NewAuthzMetrics registers the authorization counters.
func NewAuthzMetrics(reg prometheus.Registerer) *AuthzMetrics {
	if reg == nil {
		return &AuthzMetrics{}
	}
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_denied_total",
		Help: "Authorization denials by requirement and failure mode.",
	}, []string{"requirement", "mode"})
	reg.MustRegister(denied)
	return &AuthzMetrics{denied: denied}
}

// IncDenied increments the denial counter.
func (a *AuthzMetrics) IncDenied(requirement, mode string) {
	if a == nil || a.denied == nil {
		return
	}
	a.denied.WithLabelValues(normalizeLabel(requirement), normalizeLabel(mode)).Inc()
}

// CartMetrics counts cart snapshot persistence outcomes.
type CartMetrics struct {
	persist *prometheus.CounterVec
}

// NewCartMetrics registers the cart persistence counters.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	persist := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_snapshot_writes_total",
		Help: "Cart snapshot writes by operation and result.",
	}, []string{"op", "result"})
	reg.MustRegister(persist)
	return &CartMetrics{persist: persist}
}

// ObservePersist records a snapshot save or delete.
func (c *CartMetrics) ObservePersist(op string, err error) {
	if c == nil || c.persist == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.persist.WithLabelValues(normalizeLabel(op), result).Inc()
}
