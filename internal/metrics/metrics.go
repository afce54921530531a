// Package metrics exposes Prometheus collectors for the relay and the
// assistant. All collectors are registered on the default registry and
// served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayConnections tracks currently open relay connections.
	RelayConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aidesk_relay_connections",
		Help: "Number of open relay websocket connections.",
	})

	// RelayEvents counts events fanned out by the relay, per event name.
	RelayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aidesk_relay_events_total",
		Help: "Events published through the relay.",
	}, []string{"event"})

	// RelayDropped counts events dropped because a member's send buffer
	// was full or its connection was gone.
	RelayDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aidesk_relay_dropped_total",
		Help: "Events dropped during fan-out.",
	})

	// AssistantResponses counts assistant outcomes: replied, escalated,
	// auto_resolved.
	AssistantResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aidesk_assistant_responses_total",
		Help: "Assistant responses by outcome.",
	}, []string{"outcome"})

	// TicketTransitions counts lifecycle transitions by target status.
	TicketTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aidesk_ticket_transitions_total",
		Help: "Ticket status transitions by target status.",
	}, []string{"to"})
)
