package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("http_error"))

	RecordSubmission("http_error", 0.2)

	assert.Equal(t, before+1, testutil.ToFloat64(SubmissionsTotal.WithLabelValues("http_error")))
}

func TestRecordRejected(t *testing.T) {
	before := testutil.ToFloat64(SubmissionsRejected.WithLabelValues("busy"))

	RecordRejected("busy")
	RecordRejected("busy")

	assert.Equal(t, before+2, testutil.ToFloat64(SubmissionsRejected.WithLabelValues("busy")))
}

func TestSSEConnectionGauge(t *testing.T) {
	before := testutil.ToFloat64(SSEConnectionsActive)

	IncrementSSEConnections()
	assert.Equal(t, before+1, testutil.ToFloat64(SSEConnectionsActive))

	DecrementSSEConnections()
	assert.Equal(t, before, testutil.ToFloat64(SSEConnectionsActive))
}
