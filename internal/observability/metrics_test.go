package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets", "GET", 200, 2*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 4*time.Millisecond)
	m.RecordRequest("/api/sessions", "POST", 401, time.Millisecond)
	m.RecordError("/api/sessions", "POST", "UNAUTHORIZED")

	snap := m.Snapshot()
	if len(snap.Requests) != 2 {
		t.Fatalf("expected 2 request keys, got %d", len(snap.Requests))
	}
	if snap.Requests[0].Key != "/api/sessions|POST|401" {
		t.Fatalf("expected sorted keys, got %s", snap.Requests[0].Key)
	}
	tickets := snap.Requests[1]
	if tickets.Count != 2 || tickets.AvgDurationMs != 3 {
		t.Fatalf("unexpected ticket stats: %+v", tickets)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Count != 1 {
		t.Fatalf("unexpected errors: %+v", snap.Errors)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Fatalf("expected empty snapshot")
	}
}
