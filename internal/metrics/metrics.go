// Package metrics exposes prometheus instrumentation for the messaging
// layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_messages_consumed_total",
		Help: "Messages fetched and dispatched to a handler.",
	}, []string{"topic"})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_handler_failures_total",
		Help: "Handler invocations that returned an error.",
	}, []string{"topic"})

	RetriesExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_retries_exhausted_total",
		Help: "Messages whose immediate retry budget ran out.",
	}, []string{"topic"})

	RedeliveriesScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_redeliveries_scheduled_total",
		Help: "Messages parked for delayed redelivery.",
	}, []string{"topic"})

	DeadLetters = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_dead_letters_total",
		Help: "Messages captured by dead letter storage.",
	}, []string{"topic"})

	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messaging_outbox_published_total",
		Help: "Outbox rows successfully published to the broker.",
	}, []string{"topic"})
)
