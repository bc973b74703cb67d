package detect

import (
	"fmt"
	"sort"

	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// DetectInefficientScans flags scan operations whose returned/examined ratio
// falls below the tuned minimum. Scans that did not report a scanned count
// (or scanned zero items) are skipped. Results are sorted worst first.
func (d *Detector) DetectInefficientScans() []InefficientScan {
	return d.inefficientScans(d.src.Events())
}

func (d *Detector) inefficientScans(events []event.Event) []InefficientScan {
	var out []InefficientScan
	for i := range events {
		ev := &events[i]
		if ev.Kind != event.KindScan || ev.ScannedCount == nil || *ev.ScannedCount <= 0 {
			continue
		}
		eff := float64(ev.Items()) / float64(*ev.ScannedCount)
		if eff < d.tuning.ScanEfficiencyMin {
			out = append(out, InefficientScan{
				Table:        ev.Table(),
				Timestamp:    ev.Timestamp,
				ItemCount:    ev.Items(),
				ScannedCount: *ev.ScannedCount,
				Efficiency:   eff,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Efficiency < out[j].Efficiency })

	metrics.FindingsEmitted.WithLabelValues("inefficient_scan").Add(float64(len(out)))
	return out
}

// DetectMissingIndexes recommends a secondary index for tables that absorb
// repeated full scans. The check only applies once enough scans have been
// observed overall.
func (d *Detector) DetectMissingIndexes() []Recommendation {
	return d.missingIndexes(d.src.Events())
}

func (d *Detector) missingIndexes(events []event.Event) []Recommendation {
	perTable := make(map[string]int)
	total := 0
	for i := range events {
		if events[i].Kind == event.KindScan {
			perTable[events[i].Table()]++
			total++
		}
	}
	if total <= d.tuning.MissingIndexMinScans {
		return nil
	}

	tables := make([]string, 0, len(perTable))
	for t, n := range perTable {
		if n > d.tuning.MissingIndexTableScans {
			tables = append(tables, t)
		}
	}
	sort.Strings(tables)

	var out []Recommendation
	for _, t := range tables {
		out = append(out, NewRecommendation(
			CategoryMissingIndex,
			SeverityWarning,
			fmt.Sprintf("table %q absorbed %d full scans; add a secondary index covering the scanned attributes", t, perTable[t]),
			map[string]string{
				"table":      t,
				"scan_count": fmt.Sprintf("%d", perTable[t]),
			},
		))
	}

	metrics.FindingsEmitted.WithLabelValues(CategoryMissingIndex).Add(float64(len(out)))
	return out
}
