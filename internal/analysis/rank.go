package analysis

import (
	"sort"

	"perpscan-go/internal/signal"
)

// Filter drops neutral signals and anything scoring below minScore (the
// boundary is inclusive). A non-empty types list restricts the output to
// those directions. The result is sorted by score descending; equal scores
// keep their input order.
func Filter(signals []signal.Aggregated, minScore float64, types []signal.Direction) []signal.Aggregated {
	allowed := make(map[signal.Direction]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}

	filtered := make([]signal.Aggregated, 0, len(signals))
	for _, s := range signals {
		if s.Type == signal.Neutral {
			continue
		}
		if s.TotalScore < minScore {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[s.Type]; !ok {
				continue
			}
		}
		filtered = append(filtered, s)
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].TotalScore > filtered[j].TotalScore })
	return filtered
}

// Ranked partitions signals into the top-N long and short lists.
type Ranked struct {
	Long  []signal.Aggregated
	Short []signal.Aggregated
}

// Rank splits signals by direction, sorts each side by score descending, and
// truncates both sides to topN.
func Rank(signals []signal.Aggregated, topN int) Ranked {
	var ranked Ranked
	for _, s := range signals {
		switch s.Type {
		case signal.Long:
			ranked.Long = append(ranked.Long, s)
		case signal.Short:
			ranked.Short = append(ranked.Short, s)
		}
	}
	sort.SliceStable(ranked.Long, func(i, j int) bool { return ranked.Long[i].TotalScore > ranked.Long[j].TotalScore })
	sort.SliceStable(ranked.Short, func(i, j int) bool { return ranked.Short[i].TotalScore > ranked.Short[j].TotalScore })

	if topN > 0 {
		if len(ranked.Long) > topN {
			ranked.Long = ranked.Long[:topN]
		}
		if len(ranked.Short) > topN {
			ranked.Short = ranked.Short[:topN]
		}
	}
	return ranked
}
