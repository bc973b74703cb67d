package recommend

import (
	"fmt"
	"sort"

	"github.com/kvlens/kvlens/pkg/detect"
	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// DetectProjectionOpportunities flags read-capable kinds that rarely specify
// an attribute projection. An event with no UsedProjection field counts as
// unprojected. Point and batch reads use a lower volume bar than queries and
// scans, which tend to move more data per call.
func (e *Engine) DetectProjectionOpportunities() []detect.Recommendation {
	return e.projections(e.src.Events())
}

func (e *Engine) projections(events []event.Event) []detect.Recommendation {
	type usage struct {
		total     int
		projected int
	}
	byKind := make(map[event.Kind]*usage)
	for i := range events {
		ev := &events[i]
		if !event.IsReadKind(ev.Kind) {
			continue
		}
		u := byKind[ev.Kind]
		if u == nil {
			u = &usage{}
			byKind[ev.Kind] = u
		}
		u.total++
		if ev.UsedProjection != nil && *ev.UsedProjection {
			u.projected++
		}
	}

	kinds := make([]event.Kind, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var out []detect.Recommendation
	for _, k := range kinds {
		u := byKind[k]
		rate := float64(u.projected) / float64(u.total)
		unprojected := u.total - u.projected
		if rate >= e.tuning.ProjectionMinRate || unprojected <= e.projectionMinFor(k) {
			continue
		}
		out = append(out, detect.NewRecommendation(
			CategoryProjection,
			detect.SeverityInfo,
			fmt.Sprintf("%d of %d %s operations fetched full items; add an attribute projection to cut transferred bytes", unprojected, u.total, k),
			map[string]string{
				"kind":        string(k),
				"total":       fmt.Sprintf("%d", u.total),
				"unprojected": fmt.Sprintf("%d", unprojected),
			},
		))
	}

	metrics.FindingsEmitted.WithLabelValues(CategoryProjection).Add(float64(len(out)))
	return out
}

// projectionMinFor returns the unprojected-count bar for a kind.
func (e *Engine) projectionMinFor(k event.Kind) int {
	switch k {
	case event.KindQuery, event.KindScan:
		return e.tuning.ProjectionMinScan
	default:
		return e.tuning.ProjectionMinPoint
	}
}
