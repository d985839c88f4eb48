// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetConnectionStateIsExclusive(t *testing.T) {
	SetConnectionState("open")
	assert.Equal(t, 1.0, testutil.ToFloat64(connectionState.WithLabelValues("open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(connectionState.WithLabelValues("connecting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(connectionState.WithLabelValues("closed")))

	SetConnectionState("closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(connectionState.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(connectionState.WithLabelValues("closed")))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(commandsTotal.WithLabelValues("label", "applied"))
	IncCommand("label", "applied")
	assert.Equal(t, before+1, testutil.ToFloat64(commandsTotal.WithLabelValues("label", "applied")))

	before = testutil.ToFloat64(reconnectsTotal.WithLabelValues("transient"))
	IncReconnect("transient")
	assert.Equal(t, before+1, testutil.ToFloat64(reconnectsTotal.WithLabelValues("transient")))
}

func TestLabelsKnownGauge(t *testing.T) {
	RecordLabelsKnown(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(labelsKnown))
}
