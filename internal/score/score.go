// Package score combines per-category scores into the overall audit score.
package score

import (
	"math"

	"github.com/Bahjat/site-audit/internal/model"
)

// Weight is one category's share of the overall score.
type Weight struct {
	Category model.Category
	Weight   float64
}

var weights = []Weight{
	{model.CategorySecurity, 0.25},
	{model.CategoryPerformance, 0.25},
	{model.CategorySEO, 0.20},
	{model.CategoryUX, 0.20},
	{model.CategoryAccessibility, 0.10},
}

// Weights returns the weight table in report order. The weights sum to 1.
func Weights() []Weight {
	return append([]Weight(nil), weights...)
}

// Overall returns the weighted sum of the five category scores rounded to
// one decimal. The Overall field of s is ignored.
func Overall(s model.Scores) float64 {
	total := 0.0
	for _, w := range weights {
		total += s.Get(w.Category) * w.Weight
	}
	return math.Round(total*10) / 10
}

// Rating buckets a score the way summaries and reports describe it.
func Rating(v float64) string {
	switch {
	case v >= 80:
		return "excellent"
	case v >= 60:
		return "good"
	case v >= 40:
		return "fair"
	default:
		return "poor"
	}
}
