package detect

import (
	"testing"
	"time"

	"github.com/kvlens/kvlens/pkg/event"
)

func readAt(key string, ts time.Time) event.Event {
	return event.Event{Kind: event.KindRead, PartitionKey: key, Timestamp: ts}
}

func writeAt(key string, ts time.Time) event.Event {
	return event.Event{Kind: event.KindWrite, PartitionKey: key, Timestamp: ts}
}

func TestReadBeforeWriteFlagsRepeatedSequences(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Second)
		events = append(events, readAt("K", ts), writeAt("K", ts.Add(time.Second)))
	}

	d := New(sliceSource(events))
	got := d.DetectReadBeforeWrite()
	if len(got) != 1 {
		t.Fatalf("expected exactly one recommendation, got %d: %+v", len(got), got)
	}
	if got[0].Details["key"] != "K#" {
		t.Errorf("expected key K# referenced, got %+v", got[0].Details)
	}
	if got[0].Details["matches"] != "5" {
		t.Errorf("expected 5 matches, got %+v", got[0].Details)
	}
}

func TestReadBeforeWriteDifferentKeysDoNotMatch(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Second)
		events = append(events, readAt("K1", ts), writeAt("K2", ts.Add(time.Second)))
	}

	d := New(sliceSource(events))
	if got := d.DetectReadBeforeWrite(); len(got) != 0 {
		t.Fatalf("expected no recommendations, got %+v", got)
	}
}

func TestReadBeforeWriteOutsideWindow(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		// Writes land 10s after each read, beyond the 5s window.
		events = append(events, readAt("K", ts), writeAt("K", ts.Add(10*time.Second)))
	}

	d := New(sliceSource(events))
	if got := d.DetectReadBeforeWrite(); len(got) != 0 {
		t.Fatalf("expected no recommendations, got %+v", got)
	}
}

func TestReadBeforeWriteBelowPairMinimum(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	events := []event.Event{
		readAt("K", base), writeAt("K", base.Add(time.Second)),
		readAt("K", base.Add(time.Minute)), writeAt("K", base.Add(time.Minute+time.Second)),
	}

	d := New(sliceSource(events))
	if got := d.DetectReadBeforeWrite(); len(got) != 0 {
		t.Fatalf("expected no recommendation for 2 pairs, got %+v", got)
	}
}

func TestReadBeforeWriteSortKeyDistinguishesItems(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Second)
		r := readAt("K", ts)
		r.SortKey = "a"
		w := writeAt("K", ts.Add(time.Second))
		w.SortKey = "b" // different item under the same partition key
		events = append(events, r, w)
	}

	d := New(sliceSource(events))
	if got := d.DetectReadBeforeWrite(); len(got) != 0 {
		t.Fatalf("expected no recommendation across sort keys, got %+v", got)
	}
}
