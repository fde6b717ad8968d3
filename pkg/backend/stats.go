package backend

import (
	"math"

	"github.com/dyluth/murdash/pkg/model"
	"github.com/samber/lo"
)

// ComputeStats derives dashboard statistics from the given collections.
// Archived patterns count toward TotalPatterns only. AvgConfidence is rounded to two
// decimal places and is 0 when no pattern is active. Every maturity stage is present in
// the distribution.
func ComputeStats(patterns []model.Pattern, workflows []model.Workflow) model.DashboardStats {
	active := lo.Reject(patterns, func(p model.Pattern, _ int) bool { return p.IsArchived() })

	distribution := make(map[model.Maturity]int, len(model.Maturities))
	for _, m := range model.Maturities {
		distribution[m] = 0
	}
	for _, p := range active {
		if _, known := distribution[p.Maturity]; known {
			distribution[p.Maturity]++
		}
	}

	var avg float64
	if len(active) > 0 {
		avg = lo.SumBy(active, func(p model.Pattern) float64 { return p.Confidence }) / float64(len(active))
	}

	return model.DashboardStats{
		TotalPatterns:        len(patterns),
		TotalWorkflows:       len(workflows),
		AvgConfidence:        math.Round(avg*100) / 100,
		ActivePatterns:       len(active),
		MaturityDistribution: distribution,
	}
}
