package recommend

import (
	"testing"
	"time"

	"github.com/kvlens/kvlens/pkg/event"
)

func TestSuggestCapacityModeNoData(t *testing.T) {
	s := newTestEngine(nil).SuggestCapacityMode()
	if s.Mode != ModeOnDemand {
		t.Fatalf("expected on_demand for empty buffer, got %s", s.Mode)
	}
}

func TestSuggestCapacityModeSteadyTraffic(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	// Three consecutive hours, 50 evenly spaced events each.
	for hour := 0; hour < 3; hour++ {
		for i := 0; i < 50; i++ {
			events = append(events, event.Event{
				Kind:      event.KindRead,
				Timestamp: base.Add(time.Duration(hour)*time.Hour + time.Duration(i)*time.Minute),
			})
		}
	}

	s := newTestEngine(events).SuggestCapacityMode()
	if s.Mode != ModeProvisioned {
		t.Fatalf("expected provisioned for steady traffic, got %s (%s)", s.Mode, s.Reason)
	}
	if s.Hours != 3 || s.MeanHourly != 50 {
		t.Errorf("unexpected bins: %+v", s)
	}
	if s.Variability != 0 {
		t.Errorf("expected zero variability, got %v", s.Variability)
	}
}

func TestSuggestCapacityModeIdlePeriods(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 100; i++ {
		events = append(events, event.Event{Kind: event.KindRead, Timestamp: base.Add(time.Duration(i) * 30 * time.Second)})
	}
	for i := 0; i < 10; i++ {
		events = append(events, event.Event{Kind: event.KindRead, Timestamp: base.Add(time.Hour + time.Duration(i)*30*time.Second)})
	}

	s := newTestEngine(events).SuggestCapacityMode()
	if s.Mode != ModeOnDemand {
		t.Fatalf("expected on_demand for gappy traffic, got %s (%s)", s.Mode, s.Reason)
	}
}

func TestSuggestCapacityModeHighVariability(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	// 200 vs 20 vs 200: CV well above the 0.5 bar.
	for _, hourCount := range []int{200, 20, 200} {
		for i := 0; i < hourCount; i++ {
			events = append(events, event.Event{Kind: event.KindRead, Timestamp: base.Add(time.Duration(i) * time.Second)})
		}
		base = base.Add(time.Hour)
	}

	s := newTestEngine(events).SuggestCapacityMode()
	if s.Mode != ModeOnDemand {
		t.Fatalf("expected on_demand, got %s (%s)", s.Mode, s.Reason)
	}
	if s.Variability <= 0.5 {
		t.Errorf("expected CV above 0.5, got %v", s.Variability)
	}
}

func TestDetectSlowOperations(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindQuery, LatencyMs: 1500},
		{Kind: event.KindQuery, LatencyMs: 2500},
		{Kind: event.KindRead, LatencyMs: 5},
	}
	got := newTestEngine(events).DetectSlowOperations()
	if len(got) != 1 {
		t.Fatalf("expected one aggregate finding, got %d", len(got))
	}
	if got[0].Details["count"] != "2" || got[0].Details["avg_latency_ms"] != "2000.0" {
		t.Errorf("unexpected details: %+v", got[0].Details)
	}

	if got := newTestEngine(events[2:]).DetectSlowOperations(); len(got) != 0 {
		t.Errorf("expected no finding for fast ops, got %+v", got)
	}
}

func TestDetectHighCapacityUsage(t *testing.T) {
	events := []event.Event{
		{Kind: event.KindQuery, ReadUnits: event.Float64(250)},
		{Kind: event.KindQuery, ReadUnits: event.Float64(50)},
		{Kind: event.KindWrite, WriteUnits: event.Float64(300)},
		{Kind: event.KindWrite}, // unreported units: excluded
	}
	got := newTestEngine(events).DetectHighCapacityUsage()
	if len(got) != 2 {
		t.Fatalf("expected read and write findings, got %d: %+v", len(got), got)
	}
	if got[0].Category != CategoryHighReadUnits || got[1].Category != CategoryHighWriteUnits {
		t.Errorf("unexpected categories: %s, %s", got[0].Category, got[1].Category)
	}
}
