package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records checkout and stock alert activity.
type StoreMetrics struct {
	checkoutSuccess prometheus.Counter
	checkoutFailure *prometheus.CounterVec
	alertsRaised    prometheus.Counter
	stockMutations  *prometheus.CounterVec
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	checkoutSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_success_total",
		Help: "Completed checkouts.",
	})
	checkoutFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure_total",
		Help: "Failed checkouts by error code.",
	}, []string{"code"})
	alertsRaised := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_alerts_total",
		Help: "Low stock alerts raised.",
	})
	stockMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mutations_total",
		Help: "Stock mutations by operation.",
	}, []string{"operation"})
	reg.MustRegister(checkoutSuccess, checkoutFailure, alertsRaised, stockMutations)
	return &StoreMetrics{
		checkoutSuccess: checkoutSuccess,
		checkoutFailure: checkoutFailure,
		alertsRaised:    alertsRaised,
		stockMutations:  stockMutations,
	}
}

// IncCheckoutSuccess increments the completed checkout counter.
func (m *StoreMetrics) IncCheckoutSuccess() {
	if m == nil || m.checkoutSuccess == nil {
		return
	}
	m.checkoutSuccess.Inc()
}

// IncCheckoutFailure increments the failed checkout counter for the given code.
func (m *StoreMetrics) IncCheckoutFailure(code string) {
	if m == nil || m.checkoutFailure == nil {
		return
	}
	m.checkoutFailure.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncAlertRaised increments the alerts counter.
func (m *StoreMetrics) IncAlertRaised() {
	if m == nil || m.alertsRaised == nil {
		return
	}
	m.alertsRaised.Inc()
}

// IncStockMutation increments the stock mutation counter for the named operation.
func (m *StoreMetrics) IncStockMutation(operation string) {
	if m == nil || m.stockMutations == nil {
		return
	}
	m.stockMutations.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
