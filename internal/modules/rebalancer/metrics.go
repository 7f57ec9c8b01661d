package rebalancer

import (
	"gonum.org/v1/gonum/stat"
)

// CurveMetrics summarizes an equity curve
type CurveMetrics struct {
	TotalReturn float64 `json:"total_return"`
	Volatility  float64 `json:"volatility"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// ComputeCurveMetrics returns the total return, the sample standard deviation of
// step returns and the largest peak-to-trough decline (as a positive fraction).
func ComputeCurveMetrics(curve []float64) CurveMetrics {
	var m CurveMetrics
	if len(curve) == 0 {
		return m
	}
	m.TotalReturn = curve[len(curve)-1]/curve[0] - 1

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] != 0 {
			returns = append(returns, curve[i]/curve[i-1]-1)
		}
	}
	// StdDev of fewer than 2 samples is NaN, which JSON cannot carry
	if len(returns) >= 2 {
		m.Volatility = stat.StdDev(returns, nil)
	}

	peak := curve[0]
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
	}
	return m
}
