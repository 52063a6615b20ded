package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dytgt"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	streakCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streak",
			Name:      "completions_total",
			Help:      "Completions recorded, by streak transition.",
		},
		[]string{"transition"},
	)

	streakPersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streak",
			Name:      "persist_failures_total",
			Help:      "Streak writes that failed after the in-memory state changed.",
		},
	)

	entitlementRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "refresh_total",
			Help:      "Entitlement refreshes, by result.",
		},
		[]string{"result"},
	)

	purchaseAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entitlement",
			Name:      "purchase_attempts_total",
			Help:      "Purchase and restore attempts, by plan and outcome.",
		},
		[]string{"plan", "outcome"},
	)

	billingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "request_duration_seconds",
			Help:      "Duration of billing API calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"op", "status"},
	)
)

func init() {
	Registry.MustRegister(
		streakCompletions,
		streakPersistFailures,
		entitlementRefreshes,
		purchaseAttempts,
		billingDuration,
	)
}

// RecordStreakCompletion counts a completion by its transition (started, continued, held, restarted)
func RecordStreakCompletion(transition string) {
	streakCompletions.WithLabelValues(transition).Inc()
}

func RecordStreakPersistFailure() {
	streakPersistFailures.Inc()
}

// RecordEntitlementRefresh counts a refresh as entitled, unentitled or failed
func RecordEntitlementRefresh(result string) {
	entitlementRefreshes.WithLabelValues(result).Inc()
}

// RecordPurchaseAttempt counts a purchase or restore by plan and outcome
func RecordPurchaseAttempt(plan, outcome string) {
	purchaseAttempts.WithLabelValues(plan, outcome).Inc()
}

// RecordBillingCall observes a billing API call
func RecordBillingCall(op string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	billingDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}

// Sample is a flattened counter value for terminal output
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Counters gathers every counter in Registry, sorted by name then labels
func Counters() ([]Sample, error) {
	families, err := Registry.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			samples = append(samples, Sample{
				Name:   mf.GetName(),
				Labels: strings.Join(labels, ","),
				Value:  m.GetCounter().GetValue(),
			})
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}
