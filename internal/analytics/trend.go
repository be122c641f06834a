package analytics

import "math"

// Direction summarises the sign of the fitted slope
type Direction string

const (
	// Increasing means incidents are growing month over month.
	Increasing Direction = "increasing"
	// StableOrImproving covers a flat or falling line.
	StableOrImproving Direction = "stable_or_improving"
)

// TrendResult is an ordinary least-squares line over a monthly series
type TrendResult struct {
	// Fitted has one point per input month plus one projected month.
	Fitted    []float64 `json:"fitted"`
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	NextValue float64   `json:"next_value"`
	Direction Direction `json:"direction"`
}

// ProjectTrend fits y = m*x + b with x = 0..n-1 and evaluates the line on
// 0..n. The projected value for month n is clamped at zero because it
// stands for a count.
//
// Returns nil if fewer than 2 points are given or the fit is degenerate.
func ProjectTrend(series []int) *TrendResult {
	n := len(series)
	if n < 2 {
		return nil
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range series {
		x, y := float64(i), float64(v)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denominator := fn*sumXX - sumX*sumX
	if denominator == 0 {
		return nil
	}

	slope := (fn*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / fn
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil
	}

	fitted := make([]float64, n+1)
	for i := range fitted {
		fitted[i] = slope*float64(i) + intercept
	}

	direction := StableOrImproving
	if slope > 0 {
		direction = Increasing
	}

	return &TrendResult{
		Fitted:    fitted,
		Slope:     slope,
		Intercept: intercept,
		NextValue: math.Max(0, fitted[n]),
		Direction: direction,
	}
}
