package metric

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics()

	m.RecordEnvelopeEmitted("TEXT_CONTENT")
	m.RecordEnvelopeEmitted("TEXT_CONTENT")
	m.RecordEnvelopeEmitted("STATE_DELTA")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnvelopesEmitted.WithLabelValues("TEXT_CONTENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnvelopesEmitted.WithLabelValues("STATE_DELTA")))

	m.RecordFrameDropped(DropMalformed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesDropped.WithLabelValues(DropMalformed)))

	m.RecordDedupSuppressed(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DedupSuppressed))

	m.RecordRetry()
	m.RecordInterrupt()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Interrupts))

	m.RecordStreamError("STREAM_ERROR")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamErrors.WithLabelValues("STREAM_ERROR")))

	m.ActiveStreams.Inc()
	m.ActiveSessions.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveStreams))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))

	m.RecordNATSStatus(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))
	m.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NATSConnected))

	m.RecordStreamDuration(150 * time.Millisecond)
}

func TestRegistry_HandlerServesMetrics(t *testing.T) {
	r := NewRegistry()
	r.Core().RecordEnvelopeEmitted("ERROR")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
