package detect

import (
	"fmt"
	"sort"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// DetectReadBeforeWrite finds keys that repeatedly see a point read followed
// shortly by a write to the same item, a sequence that loses updates under
// concurrency and should be an atomic update instead.
//
// Per key, write timestamps are sorted once and each read binary-searches
// for the first write landing inside the window after it. Each read matches
// at most one write; writes are not consumed, so two reads may match the
// same write. A key is flagged once its match count reaches the tuned
// minimum.
func (d *Detector) DetectReadBeforeWrite() []Recommendation {
	return d.readBeforeWrite(d.src.Events())
}

func (d *Detector) readBeforeWrite(events []event.Event) []Recommendation {
	type keyOps struct {
		reads  []int64 // unix ms
		writes []int64
	}
	byKey := make(map[string]*keyOps)
	for i := range events {
		ev := &events[i]
		var ops *keyOps
		switch ev.Kind {
		case event.KindRead, event.KindWrite:
			ops = byKey[ev.ItemKey()]
			if ops == nil {
				ops = &keyOps{}
				byKey[ev.ItemKey()] = ops
			}
		default:
			continue
		}
		ts := ev.Timestamp.UnixMilli()
		if ev.Kind == event.KindRead {
			ops.reads = append(ops.reads, ts)
		} else {
			ops.writes = append(ops.writes, ts)
		}
	}

	windowMs := d.tuning.ReadBeforeWriteWindow.Milliseconds()

	var flagged []string
	matches := make(map[string]int)
	for key, ops := range byKey {
		if len(ops.reads) == 0 || len(ops.writes) == 0 {
			continue
		}
		sort.Slice(ops.writes, func(i, j int) bool { return ops.writes[i] < ops.writes[j] })

		n := 0
		for _, r := range ops.reads {
			// First write at or after the read.
			idx := sort.Search(len(ops.writes), func(i int) bool { return ops.writes[i] >= r })
			if idx < len(ops.writes) && ops.writes[idx]-r <= windowMs {
				n++
			}
		}
		if n >= d.tuning.ReadBeforeWriteMinPairs {
			flagged = append(flagged, key)
			matches[key] = n
		}
	}
	sort.Strings(flagged)

	var out []Recommendation
	for _, key := range flagged {
		out = append(out, NewRecommendation(
			CategoryReadBeforeWrite,
			SeverityWarning,
			fmt.Sprintf("key %q saw %d read-then-write sequences within %v; replace with an atomic update to avoid lost updates", key, matches[key], d.tuning.ReadBeforeWriteWindow),
			map[string]string{
				"key":     key,
				"matches": fmt.Sprintf("%d", matches[key]),
			},
		))
	}

	metrics.FindingsEmitted.WithLabelValues(CategoryReadBeforeWrite).Add(float64(len(out)))
	return out
}
