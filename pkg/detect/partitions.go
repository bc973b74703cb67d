package detect

import (
	"sort"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// DetectHotPartitions groups events by partition key (falling back to
// table:index when the event carries no partition key) and flags every group
// whose share of the grouped traffic exceeds the tuned threshold. Results
// are sorted hottest first.
func (d *Detector) DetectHotPartitions() []HotPartition {
	return d.hotPartitions(d.src.Events())
}

func (d *Detector) hotPartitions(events []event.Event) []HotPartition {
	if len(events) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for i := range events {
		key := events[i].PartitionKey
		if key == "" {
			key = events[i].IndexKey()
		}
		counts[key]++
	}

	total := len(events)
	var out []HotPartition
	for key, n := range counts {
		share := float64(n) / float64(total)
		if share > d.tuning.HotPartitionShare {
			out = append(out, HotPartition{Key: key, Count: n, Share: share})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Share != out[j].Share {
			return out[i].Share > out[j].Share
		}
		return out[i].Key < out[j].Key
	})

	metrics.FindingsEmitted.WithLabelValues("hot_partition").Add(float64(len(out)))
	return out
}
