package collector

import (
	"math/rand"
	"testing"
	"time"

	"github.com/kvlens/kvlens/pkg/event"
)

func newTestCollector(t *testing.T, cfg Config) *Collector {
	t.Helper()
	c, err := NewWithSource(cfg, rand.NewSource(1))
	if err != nil {
		t.Fatalf("NewWithSource: %v", err)
	}
	return c
}

func TestNewRejectsInvalidSampleRate(t *testing.T) {
	for _, rate := range []float64{-0.1, 1.5, 2} {
		cfg := DefaultConfig()
		cfg.SampleRate = rate
		if _, err := New(cfg); err == nil {
			t.Errorf("expected error for sample rate %v", rate)
		}
	}
}

func TestRecordDisabledIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	c := newTestCollector(t, cfg)

	c.Record(event.Event{Kind: event.KindRead, Timestamp: time.Now()})
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty buffer, got %d events", got)
	}
}

func TestSamplingAdmitsRoughlyHalf(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0.5
	c := newTestCollector(t, cfg)

	const n = 1000
	for i := 0; i < n; i++ {
		c.Record(event.Event{Kind: event.KindRead, Timestamp: time.Now()})
	}

	got := c.Len()
	if got < 425 || got > 575 {
		t.Fatalf("expected ~500 admitted events (±15%%), got %d", got)
	}
}

func TestRecordNormalizes(t *testing.T) {
	c := newTestCollector(t, DefaultConfig())
	c.Record(event.Event{Kind: event.KindRead, Timestamp: time.Now()})

	events := c.Export()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].TableName != event.DefaultTable {
		t.Errorf("expected table %q, got %q", event.DefaultTable, events[0].TableName)
	}
	if events[0].ItemCount == nil || *events[0].ItemCount != 0 {
		t.Errorf("expected ItemCount normalized to 0, got %v", events[0].ItemCount)
	}
}

func TestStatsByKind(t *testing.T) {
	c := newTestCollector(t, DefaultConfig())
	c.Record(event.Event{Kind: event.KindRead, LatencyMs: 10, ReadUnits: event.Float64(2)})
	c.Record(event.Event{Kind: event.KindRead, LatencyMs: 30, ReadUnits: event.Float64(4)})
	c.Record(event.Event{Kind: event.KindWrite, LatencyMs: 5, WriteUnits: event.Float64(1)})

	stats := c.Stats()
	rs := stats.ByKind[event.KindRead]
	if rs.Count != 2 {
		t.Fatalf("expected 2 reads, got %d", rs.Count)
	}
	if rs.TotalLatencyMs != 40 || rs.AvgLatencyMs != 20 {
		t.Errorf("expected total=40 avg=20, got total=%v avg=%v", rs.TotalLatencyMs, rs.AvgLatencyMs)
	}
	if rs.TotalReadUnits != 6 {
		t.Errorf("expected 6 read units, got %v", rs.TotalReadUnits)
	}
	ws := stats.ByKind[event.KindWrite]
	if ws.Count != 1 || ws.TotalWriteUnits != 1 {
		t.Errorf("unexpected write stats: %+v", ws)
	}
}

func TestStatsByPatternRunningMean(t *testing.T) {
	c := newTestCollector(t, DefaultConfig())
	c.Record(event.Event{Kind: event.KindQuery, LatencyMs: 10, ItemCount: event.Int(4), AccessPattern: "orders"})
	c.Record(event.Event{Kind: event.KindQuery, LatencyMs: 20, ItemCount: event.Int(8), AccessPattern: "orders"})
	c.Record(event.Event{Kind: event.KindQuery, LatencyMs: 60, ItemCount: event.Int(0), AccessPattern: "orders"})
	c.Record(event.Event{Kind: event.KindQuery, LatencyMs: 999}) // unlabeled, excluded

	stats := c.Stats()
	ps, ok := stats.ByPattern["orders"]
	if !ok {
		t.Fatal("expected pattern stats for orders")
	}
	if ps.Count != 3 {
		t.Fatalf("expected 3 events, got %d", ps.Count)
	}
	if ps.AvgLatencyMs != 30 {
		t.Errorf("expected avg latency 30, got %v", ps.AvgLatencyMs)
	}
	if ps.AvgItemsReturned != 4 {
		t.Errorf("expected avg items 4, got %v", ps.AvgItemsReturned)
	}
}

func TestStatsIdempotent(t *testing.T) {
	c := newTestCollector(t, DefaultConfig())
	c.Record(event.Event{Kind: event.KindRead, LatencyMs: 7, AccessPattern: "p"})
	c.Record(event.Event{Kind: event.KindScan, LatencyMs: 80})

	first := c.Stats()
	second := c.Stats()
	if len(first.ByKind) != len(second.ByKind) || len(first.ByPattern) != len(second.ByPattern) {
		t.Fatal("stats changed between calls with no intervening record")
	}
	for k, v := range first.ByKind {
		if second.ByKind[k] != v {
			t.Errorf("kind %s: %+v != %+v", k, v, second.ByKind[k])
		}
	}
}

func TestResetEmptiesBuffer(t *testing.T) {
	c := newTestCollector(t, DefaultConfig())
	for i := 0; i < 10; i++ {
		c.Record(event.Event{Kind: event.KindRead})
	}
	c.Reset()

	if c.Len() != 0 {
		t.Fatalf("expected empty buffer after reset, got %d", c.Len())
	}
	stats := c.Stats()
	if len(stats.ByKind) != 0 || len(stats.ByPattern) != 0 {
		t.Fatalf("expected empty aggregates after reset, got %+v", stats)
	}
}

func TestExportIsDefensiveCopy(t *testing.T) {
	c := newTestCollector(t, DefaultConfig())
	c.Record(event.Event{
		Kind:         event.KindRead,
		PartitionKey: "pk1",
		ReadUnits:    event.Float64(3),
		Metadata:     map[string]string{"source": "orm"},
	})

	first := c.Export()
	first[0].PartitionKey = "mutated"
	*first[0].ReadUnits = 999
	first[0].Metadata["source"] = "mutated"

	second := c.Export()
	if second[0].PartitionKey != "pk1" {
		t.Errorf("export shared string state: %q", second[0].PartitionKey)
	}
	if *second[0].ReadUnits != 3 {
		t.Errorf("export shared pointer state: %v", *second[0].ReadUnits)
	}
	if second[0].Metadata["source"] != "orm" {
		t.Errorf("export shared map state: %q", second[0].Metadata["source"])
	}
}

func TestOperationFilters(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCollector(t, DefaultConfig())
	c.Record(event.Event{Kind: event.KindRead, Timestamp: base, AccessPattern: "a"})
	c.Record(event.Event{Kind: event.KindWrite, Timestamp: base.Add(time.Minute), AccessPattern: "b"})
	c.Record(event.Event{Kind: event.KindRead, Timestamp: base.Add(2 * time.Minute), AccessPattern: "a"})

	if got := c.OperationsByKind(event.KindRead); len(got) != 2 {
		t.Errorf("expected 2 reads, got %d", len(got))
	}
	if got := c.OperationsByPattern("b"); len(got) != 1 {
		t.Errorf("expected 1 event for pattern b, got %d", len(got))
	}
	// Bounds are inclusive on both ends.
	got := c.OperationsInRange(base, base.Add(time.Minute))
	if len(got) != 2 {
		t.Errorf("expected 2 events in range, got %d", len(got))
	}
}

func TestConcurrentRecord(t *testing.T) {
	c := newTestCollector(t, DefaultConfig())
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func() {
			for i := 0; i < 100; i++ {
				c.Record(event.Event{Kind: event.KindRead})
			}
			done <- struct{}{}
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}
	if got := c.Len(); got != 800 {
		t.Fatalf("expected 800 events, got %d", got)
	}
}
