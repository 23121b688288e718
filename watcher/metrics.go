package watcher

import "github.com/prometheus/client_golang/prometheus"

// Event outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeReplayed = "replayed"
	outcomeIgnored  = "ignored"
	outcomeStale    = "stale"
)

var eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wave_portal",
	Name:      "contract_events_total",
	Help:      "Contract events seen by the watcher, by event and outcome.",
}, []string{"event", "outcome"})

var subscriptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wave_portal",
	Name:      "subscriptions_total",
	Help:      "Watcher subscription attempts, by result.",
}, []string{"result"})

func init() {
	prometheus.MustRegister(eventsTotal, subscriptionsTotal)
}
