package recommend

import (
	"fmt"
	"sort"

	"github.com/kvlens/kvlens/pkg/detect"
	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

func sortByTimestamp(events []event.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
}

// firstCluster slides a window over timestamp-sorted events and returns the
// size of the first run of at least min events all landing within the window
// of the run's first event. Returns 0 when no run qualifies.
func (e *Engine) firstCluster(sorted []event.Event, min int) int {
	for i := 0; i < len(sorted); i++ {
		j := i + 1
		for j < len(sorted) && sorted[j].Timestamp.Sub(sorted[i].Timestamp) <= e.tuning.BatchWindow {
			j++
		}
		if j-i >= min {
			return j - i
		}
	}
	return 0
}

// allClusters partitions timestamp-sorted events into contiguous clusters,
// each bounded by the window measured from its first event, and returns the
// sizes of every cluster of at least min events.
func (e *Engine) allClusters(sorted []event.Event, min int) []int {
	var sizes []int
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Timestamp.Sub(sorted[i].Timestamp) <= e.tuning.BatchWindow {
			j++
		}
		if j-i >= min {
			sizes = append(sizes, j-i)
		}
		i = j
	}
	return sizes
}

// DetectBatchReadOpportunities reports the first burst of point reads dense
// enough to collapse into bulk read calls.
func (e *Engine) DetectBatchReadOpportunities() []detect.Recommendation {
	return e.batchReads(e.src.Events())
}

func (e *Engine) batchReads(events []event.Event) []detect.Recommendation {
	reads := eventsOfKinds(events, event.KindRead)
	n := e.firstCluster(reads, e.tuning.BatchMinReads)
	if n == 0 {
		return nil
	}
	calls := (n + e.tuning.ReadBatchPage - 1) / e.tuning.ReadBatchPage

	metrics.FindingsEmitted.WithLabelValues(CategoryBatchRead).Inc()
	return []detect.Recommendation{detect.NewRecommendation(
		CategoryBatchRead,
		detect.SeverityInfo,
		fmt.Sprintf("%d point reads within %v could collapse into %d bulk read call(s)", n, e.tuning.BatchWindow, calls),
		map[string]string{
			"cluster_size": fmt.Sprintf("%d", n),
			"batch_calls":  fmt.Sprintf("%d", calls),
		},
	)}
}

// DetectBatchWriteOpportunities reports every burst of sequential writes
// (puts and deletes combined) dense enough to collapse into bulk write calls.
func (e *Engine) DetectBatchWriteOpportunities() []detect.Recommendation {
	return e.batchWrites(e.src.Events())
}

func (e *Engine) batchWrites(events []event.Event) []detect.Recommendation {
	writes := eventsOfKinds(events, event.KindWrite, event.KindDelete)
	sizes := e.allClusters(writes, e.tuning.BatchMinWrites)

	var out []detect.Recommendation
	for _, n := range sizes {
		calls := (n + e.tuning.WriteBatchPage - 1) / e.tuning.WriteBatchPage
		out = append(out, detect.NewRecommendation(
			CategoryBatchWrite,
			detect.SeverityInfo,
			fmt.Sprintf("%d sequential writes within %v could collapse into %d bulk write call(s)", n, e.tuning.BatchWindow, calls),
			map[string]string{
				"cluster_size": fmt.Sprintf("%d", n),
				"batch_calls":  fmt.Sprintf("%d", calls),
			},
		))
	}

	metrics.FindingsEmitted.WithLabelValues(CategoryBatchWrite).Add(float64(len(out)))
	return out
}
