package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSession(t *testing.T) {
	m := DefaultMetrics
	before := testutil.ToFloat64(m.SessionsActive)

	m.RecordSessionStart()
	if got := testutil.ToFloat64(m.SessionsActive); got != before+1 {
		t.Errorf("expected active %v, got %v", before+1, got)
	}

	m.RecordSessionEnd(12)
	if got := testutil.ToFloat64(m.SessionsActive); got != before {
		t.Errorf("expected active back to %v, got %v", before, got)
	}
}

func TestRecordFrame(t *testing.T) {
	m := DefaultMetrics
	frames := testutil.ToFloat64(m.FramesRelayed.WithLabelValues("inbound"))
	bytes := testutil.ToFloat64(m.BytesRelayed.WithLabelValues("inbound"))

	m.RecordFrame("inbound", 160)

	if got := testutil.ToFloat64(m.FramesRelayed.WithLabelValues("inbound")); got != frames+1 {
		t.Errorf("expected %v frames, got %v", frames+1, got)
	}
	if got := testutil.ToFloat64(m.BytesRelayed.WithLabelValues("inbound")); got != bytes+160 {
		t.Errorf("expected %v bytes, got %v", bytes+160, got)
	}
}

func TestRecordUpstreamError_EmptyCode(t *testing.T) {
	m := DefaultMetrics
	before := testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("unknown"))

	m.RecordUpstreamError("")

	if got := testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("unknown")); got != before+1 {
		t.Errorf("expected unknown code counted, got %v", got)
	}
}

func TestRecordKafkaPublish_Error(t *testing.T) {
	m := DefaultMetrics
	before := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("t", "candidate"))

	m.RecordKafkaPublish("t", "candidate", errors.New("broker down"), 0.01)
	m.RecordKafkaPublish("t", "candidate", nil, 0.01)

	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("t", "candidate")); got != before+1 {
		t.Errorf("expected one error recorded, got %v", got-before)
	}
}
