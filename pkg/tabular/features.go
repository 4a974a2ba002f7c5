package tabular

import (
	"math"

	"exoplanet-classifier-be/pkg/exo"
)

// FeatureNames is the column order the forest was trained on.
var FeatureNames = []string{
	"period",
	"duration",
	"depth",
	"prad",
	"teq",
	"depth_per_duration",
	"radius_squared",
	"period_per_radius",
	"temp_per_period",
}

// Features expands a validated row into the raw and engineered feature vector.
func Features(row exo.Row) ([]float64, error) {
	if err := row.Validate(); err != nil {
		return nil, err
	}
	period := *row.Period
	duration := *row.Duration
	depth := *row.Depth
	prad := *row.PlanetaryRadius
	teq := *row.EquilibriumTemperature

	return []float64{
		period,
		duration,
		depth,
		prad,
		teq,
		safeDivide(depth, duration),
		prad * prad,
		safeDivide(period, prad),
		safeDivide(teq, period),
	}, nil
}

// safeDivide yields 0 for a zero denominator or a non-finite quotient.
func safeDivide(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	q := num / den
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}
