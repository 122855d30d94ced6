// Package metrics exposes the Prometheus instrumentation for the dispenser
// core and the Telegram relay. Collectors are registered at init time and
// safe for concurrent use. Label cardinality is kept bounded: outcomes and
// relay methods come from small fixed vocabularies, never from user input.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// dispenseReqs counts media requests by outcome
	// (delivered, banned, insufficient_balance, exhausted, delivery_failed, error).
	dispenseReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_dispense_requests_total",
			Help: "Total number of media requests handled by the dispenser.",
		},
		[]string{"outcome"},
	)

	// itemsDelivered counts individual media items copied to users.
	itemsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_items_delivered_total",
			Help: "Total number of media items delivered to users.",
		},
	)

	// selfHealPurges counts catalog entries removed after the relay reported
	// them permanently invalid.
	selfHealPurges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_selfheal_purges_total",
			Help: "Total number of broken catalog entries purged by the dispenser.",
		},
	)

	// broadcastMsgs counts broadcast fan-out deliveries by result.
	broadcastMsgs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_broadcast_messages_total",
			Help: "Total number of broadcast messages attempted.",
		},
		[]string{"result"},
	)

	// relayLat records Bot API call duration by method and result.
	relayLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_relay_request_duration_seconds",
			Help:    "Duration of Telegram Bot API calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "result"},
	)
)

func init() {
	prometheus.MustRegister(dispenseReqs, itemsDelivered, selfHealPurges, broadcastMsgs, relayLat)
}

// CountDispense records one dispenser request with the given outcome label.
func CountDispense(outcome string) {
	dispenseReqs.WithLabelValues(outcome).Inc()
}

// CountDelivered records n successfully delivered items.
func CountDelivered(n int) {
	itemsDelivered.Add(float64(n))
}

// CountSelfHeal records one purged catalog entry.
func CountSelfHeal() {
	selfHealPurges.Inc()
}

// CountBroadcast records one broadcast delivery attempt.
func CountBroadcast(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	broadcastMsgs.WithLabelValues(result).Inc()
}

// ObserveRelayCall records the duration of one Bot API call.
func ObserveRelayCall(method string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	relayLat.WithLabelValues(method, result).Observe(d.Seconds())
}
