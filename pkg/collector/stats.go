package collector

import (
	"github.com/kvlens/kvlens/pkg/event"
)

// KindStats aggregates the retained events of one operation kind.
type KindStats struct {
	Count           int     `json:"count"`
	TotalLatencyMs  float64 `json:"total_latency_ms"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	TotalReadUnits  float64 `json:"total_read_units"`
	TotalWriteUnits float64 `json:"total_write_units"`
}

// PatternStats aggregates the retained events of one access pattern.
// Averages are maintained as incremental running means so no per-pattern
// event list is retained during the pass.
type PatternStats struct {
	Count            int     `json:"count"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	AvgItemsReturned float64 `json:"avg_items_returned"`
}

// Stats is one on-demand aggregation snapshot of the buffer.
type Stats struct {
	ByKind    map[event.Kind]KindStats `json:"by_kind"`
	ByPattern map[string]PatternStats  `json:"by_pattern"`
}

// Stats recomputes aggregates from the current buffer. It has no side
// effects: calling it twice without an intervening Record yields identical
// results.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		ByKind:    make(map[event.Kind]KindStats),
		ByPattern: make(map[string]PatternStats),
	}

	for i := range c.events {
		ev := &c.events[i]

		ks := s.ByKind[ev.Kind]
		ks.Count++
		ks.TotalLatencyMs += ev.LatencyMs
		ks.AvgLatencyMs = ks.TotalLatencyMs / float64(ks.Count)
		if ev.ReadUnits != nil {
			ks.TotalReadUnits += *ev.ReadUnits
		}
		if ev.WriteUnits != nil {
			ks.TotalWriteUnits += *ev.WriteUnits
		}
		s.ByKind[ev.Kind] = ks

		if ev.AccessPattern == "" {
			continue
		}
		ps := s.ByPattern[ev.AccessPattern]
		ps.Count++
		// Running mean: avg += (x - avg) / n
		ps.AvgLatencyMs += (ev.LatencyMs - ps.AvgLatencyMs) / float64(ps.Count)
		ps.AvgItemsReturned += (float64(ev.Items()) - ps.AvgItemsReturned) / float64(ps.Count)
		s.ByPattern[ev.AccessPattern] = ps
	}
	return s
}
