package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ZeroStdDevEpsilon replaces a sample standard deviation of exactly zero in
// the 3σ rule so the comparison never divides by or multiplies with zero.
const ZeroStdDevEpsilon = 1e-4

// CleanSeries drops missing readings and keeps the production order. The
// input is not modified.
func CleanSeries(series []*float64) []float64 {
	values := make([]float64, 0, len(series))
	for _, v := range series {
		if v != nil {
			values = append(values, *v)
		}
	}
	return values
}

// meanStdDev returns the arithmetic mean and the sample standard deviation
// (n-1 denominator). Callers guarantee len(values) >= 2.
func meanStdDev(values []float64) (float64, float64) {
	return stat.MeanStdDev(values, nil)
}

func mean(values []float64) float64 {
	return stat.Mean(values, nil)
}

func spread(values []float64) float64 {
	return floats.Max(values) - floats.Min(values)
}

// Summarize computes descriptive statistics for a cleaned series. Mean, min,
// max and range need one value; the standard deviation needs two. A
// statistic that overflows float64 is left nil.
func Summarize(values []float64) Summary {
	s := Summary{N: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Mean = finite(mean(values))
	s.Min = finite(floats.Min(values))
	s.Max = finite(floats.Max(values))
	s.Range = finite(spread(values))
	if len(values) >= 2 {
		_, sd := meanStdDev(values)
		s.StdDev = finite(sd)
	}
	return s
}

// allFinite reports whether no value is NaN or ±Inf.
func allFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// movingRanges returns |x[i] - x[i-1]| for i >= 1.
func movingRanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	mr := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d < 0 {
			d = -d
		}
		mr[i-1] = d
	}
	return mr
}
