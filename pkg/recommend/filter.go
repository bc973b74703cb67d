package recommend

import (
	"fmt"
	"sort"

	"github.com/kvlens/kvlens/pkg/detect"
	"github.com/kvlens/kvlens/pkg/event"
	"github.com/kvlens/kvlens/pkg/metrics"
)

// defaultPattern groups query events recorded without an access-pattern label.
const defaultPattern = "(unlabeled)"

// DetectFetchToFilter flags access patterns whose queries fetch far more
// items than they keep, a sign that filtering happens after the fetch
// instead of in the key condition. Queries that did not report a scanned
// count are treated as fully efficient.
func (e *Engine) DetectFetchToFilter() []detect.Recommendation {
	return e.fetchToFilter(e.src.Events())
}

func (e *Engine) fetchToFilter(events []event.Event) []detect.Recommendation {
	type group struct {
		count   int
		meanEff float64
	}
	groups := make(map[string]*group)
	for i := range events {
		ev := &events[i]
		if ev.Kind != event.KindQuery {
			continue
		}
		name := ev.AccessPattern
		if name == "" {
			name = defaultPattern
		}
		g := groups[name]
		if g == nil {
			g = &group{}
			groups[name] = g
		}
		eff := 1.0
		if ev.ScannedCount != nil && *ev.ScannedCount > 0 {
			eff = float64(ev.Items()) / float64(*ev.ScannedCount)
		}
		g.count++
		g.meanEff += (eff - g.meanEff) / float64(g.count)
	}

	names := make([]string, 0, len(groups))
	for name, g := range groups {
		if g.count >= e.tuning.FilterMinEvents && g.meanEff < e.tuning.FilterEfficiency {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []detect.Recommendation
	for _, name := range names {
		g := groups[name]
		sev := detect.SeverityInfo
		if g.meanEff < e.tuning.FilterWarnAt {
			sev = detect.SeverityWarning
		}
		out = append(out, detect.NewRecommendation(
			CategoryFetchFilter,
			sev,
			fmt.Sprintf("access pattern %q keeps %.0f%% of fetched items across %d queries; move the filter into the key condition", name, g.meanEff*100, g.count),
			map[string]string{
				"pattern":         name,
				"query_count":     fmt.Sprintf("%d", g.count),
				"mean_efficiency": fmt.Sprintf("%.3f", g.meanEff),
			},
		))
	}

	metrics.FindingsEmitted.WithLabelValues(CategoryFetchFilter).Add(float64(len(out)))
	return out
}
