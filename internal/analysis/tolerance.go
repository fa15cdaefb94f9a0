package analysis

import (
	"fmt"
	"math"
)

// Interpretation controls how stored minimum/maximum values are read when a
// nominal is present.
type Interpretation string

const (
	// InterpretAuto applies the half-nominal heuristic.
	InterpretAuto Interpretation = "auto"
	// InterpretDeviation always reads stored values as deviations from nominal.
	InterpretDeviation Interpretation = "deviation"
	// InterpretAbsolute always reads stored values as absolute limits.
	InterpretAbsolute Interpretation = "absolute"
)

// ParseInterpretation maps a config/API string to an Interpretation. The
// empty string is InterpretAuto.
func ParseInterpretation(s string) (Interpretation, error) {
	switch Interpretation(s) {
	case "", InterpretAuto:
		return InterpretAuto, nil
	case InterpretDeviation, InterpretAbsolute:
		return Interpretation(s), nil
	}
	return "", fmt.Errorf("unknown tolerance interpretation %q", s)
}

// ResolveLimits turns a stored tolerance into absolute engineering limits
// using the automatic heuristic.
//
// Without a nominal, minimum and maximum are returned unchanged. With a
// nominal, each side is resolved independently: an absent value collapses to
// the nominal, a value whose magnitude is strictly below |nominal|/2 is a
// deviation (nominal ∓ |v|), anything else is an absolute limit. A nominal of
// zero makes every nonzero stored value absolute.
func ResolveLimits(spec ToleranceSpec) Limits {
	return ResolveLimitsWith(spec, InterpretAuto)
}

// ResolveLimitsWith is ResolveLimits with a forced interpretation. Forcing has
// no effect when the nominal is absent.
func ResolveLimitsWith(spec ToleranceSpec, mode Interpretation) Limits {
	if spec.Nominal == nil {
		return Limits{Lower: copyPtr(spec.Minimum), Upper: copyPtr(spec.Maximum)}
	}
	nominal := *spec.Nominal
	return Limits{
		Lower: resolveSide(nominal, spec.Minimum, -1, mode),
		Upper: resolveSide(nominal, spec.Maximum, +1, mode),
	}
}

func resolveSide(nominal float64, stored *float64, sign float64, mode Interpretation) *float64 {
	if stored == nil {
		return ptr(nominal)
	}
	v := *stored
	var deviation bool
	switch mode {
	case InterpretDeviation:
		deviation = true
	case InterpretAbsolute:
	default:
		deviation = math.Abs(v) < math.Abs(nominal)/2
	}
	if deviation {
		return ptr(nominal + sign*math.Abs(v))
	}
	return ptr(v)
}

// WithinLimits reports whether v lies inside the closed interval given by
// limits. A missing bound does not constrain.
func WithinLimits(v float64, limits Limits) bool {
	if limits.Lower != nil && v < *limits.Lower {
		return false
	}
	if limits.Upper != nil && v > *limits.Upper {
		return false
	}
	return true
}

// HasLimits reports whether at least one bound is known.
func (l Limits) HasLimits() bool {
	return l.Lower != nil || l.Upper != nil
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
