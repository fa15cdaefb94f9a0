package analysis

import "math"

// CapabilityClass is the verbal rating of a Cp or Cpk value.
type CapabilityClass string

const (
	ClassUnknown    CapabilityClass = ""
	ClassInadequate CapabilityClass = "inadequate"
	ClassMarginal   CapabilityClass = "marginal"
	ClassAcceptable CapabilityClass = "acceptable"
	ClassExcellent  CapabilityClass = "excellent"
)

// Thresholds are the lower bounds of the marginal, acceptable and excellent
// classes. Values below Marginal are inadequate.
type Thresholds struct {
	Marginal   float64 `json:"marginal" yaml:"marginal" validate:"gt=0"`
	Acceptable float64 `json:"acceptable" yaml:"acceptable" validate:"gtfield=Marginal"`
	Excellent  float64 `json:"excellent" yaml:"excellent" validate:"gtfield=Acceptable"`
}

var (
	// DefaultThresholds rate 1.67 and above as excellent.
	DefaultThresholds = Thresholds{Marginal: 1.0, Acceptable: 1.33, Excellent: 1.67}
	// DashboardThresholds use the coarser 2.0 boundary for excellent shown on
	// the statistics dashboard.
	DashboardThresholds = Thresholds{Marginal: 1.0, Acceptable: 1.33, Excellent: 2.0}
)

// Classify rates a capability index. A nil value is ClassUnknown.
func Classify(v *float64, th Thresholds) CapabilityClass {
	if v == nil {
		return ClassUnknown
	}
	switch {
	case *v < th.Marginal:
		return ClassInadequate
	case *v < th.Acceptable:
		return ClassMarginal
	case *v < th.Excellent:
		return ClassAcceptable
	default:
		return ClassExcellent
	}
}

// ComputeCapability returns Cp and Cpk for a process with the given mean and
// sample standard deviation against limits.
//
// A non-positive stdev leaves both indices nil; no epsilon is substituted
// here. Cp needs both limits. Cpk uses whichever limits exist and is nil when
// neither does.
func ComputeCapability(mean, stdev float64, limits Limits) Capability {
	var c Capability
	if !(stdev > 0) || math.IsInf(stdev, 0) {
		return c
	}
	if limits.Lower != nil && limits.Upper != nil {
		c.Cp = finite((*limits.Upper - *limits.Lower) / (6 * stdev))
	}
	upper, lower := math.Inf(1), math.Inf(1)
	if limits.Upper != nil {
		upper = (*limits.Upper - mean) / (3 * stdev)
	}
	if limits.Lower != nil {
		lower = (mean - *limits.Lower) / (3 * stdev)
	}
	c.Cpk = finite(math.Min(upper, lower))
	return c
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return ptr(v)
}
