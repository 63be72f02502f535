package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/:ticket_id/", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets/:ticket_id/", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/accounts/customer/signup/", "POST", "VALIDATION_FAILED")

	snap := m.Snapshot()
	if len(snap.Requests) != 1 || len(snap.Errors) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	req := snap.Requests[0]
	if req.Count != 2 || req.Label != "200" || req.Path != "/tickets/:ticket_id/" {
		t.Fatalf("request counter = %+v", req)
	}
	if req.AvgLatencyMS != 20 {
		t.Fatalf("avg latency = %v", req.AvgLatencyMS)
	}
	if snap.Errors[0].Label != "VALIDATION_FAILED" {
		t.Fatalf("error counter = %+v", snap.Errors[0])
	}

	var nilMetrics *Metrics
	nilMetrics.RecordRequest("/", "GET", 200, time.Millisecond)
}
