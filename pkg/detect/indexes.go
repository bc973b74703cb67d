package detect

import (
	"fmt"
	"sort"
	"time"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// DetectUnusedIndexes flags table:index groups whose most recent use is
// older than the tuned age, relative to the time of the call. Only events
// that report an index name participate. Results are sorted stalest first.
func (d *Detector) DetectUnusedIndexes() []IndexUsage {
	return d.unusedIndexes(d.src.Events(), time.Now())
}

func (d *Detector) unusedIndexes(events []event.Event, now time.Time) []IndexUsage {
	type group struct {
		table, index string
		count        int
		lastUsed     time.Time
	}
	groups := make(map[string]*group)
	for i := range events {
		ev := &events[i]
		if ev.IndexName == "" {
			continue
		}
		g := groups[ev.IndexKey()]
		if g == nil {
			g = &group{table: ev.Table(), index: ev.IndexName}
			groups[ev.IndexKey()] = g
		}
		g.count++
		if ev.Timestamp.After(g.lastUsed) {
			g.lastUsed = ev.Timestamp
		}
	}

	cutoff := now.Add(-d.tuning.UnusedIndexAge)
	var out []IndexUsage
	for _, g := range groups {
		if g.lastUsed.Before(cutoff) {
			out = append(out, IndexUsage{
				Table:      g.table,
				Index:      g.index,
				EventCount: g.count,
				LastUsed:   g.lastUsed,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LastUsed.Before(out[j].LastUsed) })

	metrics.FindingsEmitted.WithLabelValues("unused_index").Add(float64(len(out)))
	return out
}

// DetectKeyDesignHints emits an informational suggestion for table:index
// groups seeing heavy use: frequent index traffic is treated as a signal
// that structured multi-attribute keys may serve better than manually
// concatenated key strings.
func (d *Detector) DetectKeyDesignHints() []Recommendation {
	return d.keyDesignHints(d.src.Events())
}

func (d *Detector) keyDesignHints(events []event.Event) []Recommendation {
	counts := make(map[string]int)
	for i := range events {
		counts[events[i].IndexKey()]++
	}

	keys := make([]string, 0, len(counts))
	for k, n := range counts {
		if n > d.tuning.KeyDesignMinEvents {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []Recommendation
	for _, k := range keys {
		out = append(out, NewRecommendation(
			CategoryKeyDesign,
			SeverityInfo,
			fmt.Sprintf("index group %q is heavily used (%d events); consider structured multi-attribute keys over concatenated key strings", k, counts[k]),
			map[string]string{
				"group":       k,
				"event_count": fmt.Sprintf("%d", counts[k]),
			},
		))
	}

	metrics.FindingsEmitted.WithLabelValues(CategoryKeyDesign).Add(float64(len(out)))
	return out
}
