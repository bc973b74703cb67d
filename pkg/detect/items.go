package detect

import (
	"fmt"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// DetectOversizedItems reports, as a single aggregate finding, the events
// whose transferred item size exceeds the tuned limit. Severity escalates to
// warning when any item crosses the larger warn limit.
func (d *Detector) DetectOversizedItems() []Recommendation {
	return d.oversizedItems(d.src.Events())
}

func (d *Detector) oversizedItems(events []event.Event) []Recommendation {
	var (
		count      int
		totalBytes int64
		maxBytes   int64
	)
	for i := range events {
		sz := events[i].ItemSizeBytes
		if sz == nil || *sz <= d.tuning.OversizedItemBytes {
			continue
		}
		count++
		totalBytes += *sz
		if *sz > maxBytes {
			maxBytes = *sz
		}
	}
	if count == 0 {
		return nil
	}

	sev := SeverityInfo
	if maxBytes > d.tuning.OversizedWarnBytes {
		sev = SeverityWarning
	}
	avg := totalBytes / int64(count)

	out := []Recommendation{NewRecommendation(
		CategoryOversizedItems,
		sev,
		fmt.Sprintf("%d items exceeded %d bytes (avg %d bytes); split large items or move blobs to object storage", count, d.tuning.OversizedItemBytes, avg),
		map[string]string{
			"count":     fmt.Sprintf("%d", count),
			"avg_bytes": fmt.Sprintf("%d", avg),
			"max_bytes": fmt.Sprintf("%d", maxBytes),
		},
	)}

	metrics.FindingsEmitted.WithLabelValues(CategoryOversizedItems).Inc()
	return out
}
