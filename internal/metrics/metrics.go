// Package metrics holds the prometheus collectors for checkout, shipping and jobs.
// Every method is safe to call on a nil receiver.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookshop"

// Shop records checkout and shipping outcomes.
type Shop struct {
	ordersCreated    prometheus.Counter
	checkoutFailures *prometheus.CounterVec
	inconsistencies  *prometheus.CounterVec
	reconcileResults *prometheus.CounterVec
	carrierCalls     *prometheus.CounterVec
}

// NewShop registers the shop metrics on the provided registerer.
func NewShop(reg prometheus.Registerer) *Shop {
	if reg == nil {
		return nil
	}
	s := &Shop{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders placed successfully.",
		}),
		checkoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_failures_total",
			Help:      "Rejected or failed checkouts by error code.",
		}, []string{"code"}),
		inconsistencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_partial_writes_total",
			Help:      "Post-commit checkout steps that failed and were skipped.",
		}, []string{"step"}),
		reconcileResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_results_total",
			Help:      "Per-order delivery reconciliation outcomes.",
		}, []string{"outcome"}),
		carrierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carrier_calls_total",
			Help:      "Carrier API calls by method and result.",
		}, []string{"method", "result"}),
	}
	reg.MustRegister(s.ordersCreated, s.checkoutFailures, s.inconsistencies, s.reconcileResults, s.carrierCalls)
	return s
}

// IncOrderCreated counts a placed order.
func (s *Shop) IncOrderCreated() {
	if s == nil {
		return
	}
	s.ordersCreated.Inc()
}

// IncCheckoutFailure counts a checkout that ended with the given error code.
func (s *Shop) IncCheckoutFailure(code string) {
	if s == nil {
		return
	}
	s.checkoutFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncPartialWrite counts a skipped post-commit step.
func (s *Shop) IncPartialWrite(step string) {
	if s == nil {
		return
	}
	s.inconsistencies.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncReconcileResult counts one reconciled order.
func (s *Shop) IncReconcileResult(outcome string) {
	if s == nil {
		return
	}
	s.reconcileResults.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCarrierCall counts a carrier API call.
func (s *Shop) IncCarrierCall(method string, ok bool) {
	if s == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	s.carrierCalls.WithLabelValues(normalizeLabel(method), result).Inc()
}

// Jobs records metadata for scheduled jobs.
type Jobs struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewJobs registers the job metrics on the provided registerer.
func NewJobs(reg prometheus.Registerer) *Jobs {
	if reg == nil {
		return nil
	}
	j := &Jobs{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled jobs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_success_total",
			Help:      "Successful job executions.",
		}, []string{"job"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failure_total",
			Help:      "Failed job executions.",
		}, []string{"job"}),
	}
	reg.MustRegister(j.duration, j.success, j.failure)
	return j
}

// ObserveDuration records the duration for the named job.
func (j *Jobs) ObserveDuration(job string, duration time.Duration) {
	if j == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (j *Jobs) IncSuccess(job string) {
	if j == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (j *Jobs) IncFailure(job string) {
	if j == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
