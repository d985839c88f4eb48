// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus metrics for the session pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	reconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_reconnects_total",
		Help: "Session restarts by disconnect cause",
	}, []string{"cause"}) // cause=transient|unknown

	dialFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatd_dial_failures_total",
		Help: "Handshake failures while dialing a new connection handle",
	})

	connectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chatd_connection_state",
		Help: "Current connection state (1 for the active state, 0 otherwise)",
	}, []string{"state"}) // state=connecting|open|closed

	// Event pipeline metrics
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatd_event_batches_total",
		Help: "Event batches processed by the dispatcher",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_events_total",
		Help: "Events processed by category",
	}, []string{"category"})

	handlerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_handler_failures_total",
		Help: "Contained per-category handler failures",
	}, []string{"category"})

	staleBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatd_stale_batches_total",
		Help: "Batches dropped because they belonged to a torn-down handle",
	})

	// Command metrics
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_commands_total",
		Help: "Label commands by verb and outcome",
	}, []string{"verb", "outcome"}) // outcome=applied|unknown_label|not_ready|error

	// Side-effect metrics
	credentialSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_credential_saves_total",
		Help: "Credential persistence attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	pictureRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_profile_picture_refresh_total",
		Help: "Profile picture URL resolutions by outcome",
	}, []string{"outcome"}) // outcome=resolved|missing|error

	labelsKnown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatd_labels_known",
		Help: "Number of labels in the mirrored label set (last sync)",
	})
)

func IncReconnect(cause string)    { reconnectsTotal.WithLabelValues(cause).Inc() }
func IncDialFailure()              { dialFailuresTotal.Inc() }
func IncBatch()                    { batchesTotal.Inc() }
func IncEvent(category string)     { eventsTotal.WithLabelValues(category).Inc() }
func IncHandlerFailure(cat string) { handlerFailuresTotal.WithLabelValues(cat).Inc() }
func IncStaleBatch()               { staleBatchesTotal.Inc() }

func IncCommand(verb, outcome string) { commandsTotal.WithLabelValues(verb, outcome).Inc() }

func IncCredentialSave(outcome string) { credentialSavesTotal.WithLabelValues(outcome).Inc() }
func IncPictureRefresh(outcome string) { pictureRefreshTotal.WithLabelValues(outcome).Inc() }

func RecordLabelsKnown(n int) { labelsKnown.Set(float64(n)) }

// SetConnectionState records the active connection state, clearing the
// other state gauges.
func SetConnectionState(state string) {
	for _, s := range []string{"connecting", "open", "closed"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		connectionState.WithLabelValues(s).Set(v)
	}
}
