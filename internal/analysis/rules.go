package analysis

import (
	"fmt"
	"math"
)

const (
	runWindow         = 9
	trendWindow       = 6
	alternationWindow = 14
)

// Detect scans a cleaned, chronologically ordered series for out-of-control
// signatures:
//
//   - BEYOND_3SIGMA (danger): every point farther than 3σ from the mean.
//   - RUN_9 (warning): 9 consecutive points strictly on one side of the mean.
//   - TREND_6 (warning): 6 consecutive points strictly rising or falling.
//   - ALTERNATION_14 (info): 14 consecutive points alternating up and down.
//
// Run, trend and alternation report only their first occurrence, at the last
// index of the triggering window. Fewer than two points yield no violations.
func Detect(values []float64) []Violation {
	violations := make([]Violation, 0)
	if len(values) < 2 {
		return violations
	}
	m, sd := meanStdDev(values)
	if sd == 0 {
		sd = ZeroStdDevEpsilon
	}

	violations = append(violations, beyondSigma(values, m, sd)...)
	if v, ok := firstRun(values, m); ok {
		violations = append(violations, v)
	}
	if v, ok := firstTrend(values); ok {
		violations = append(violations, v)
	}
	if v, ok := firstAlternation(values); ok {
		violations = append(violations, v)
	}
	return violations
}

func beyondSigma(values []float64, m, sd float64) []Violation {
	var out []Violation
	limit := 3 * sd
	for i, v := range values {
		if math.Abs(v-m) > limit {
			out = append(out, Violation{
				Rule:     RuleBeyond3Sigma,
				Index:    i,
				Severity: SeverityDanger,
				Description: fmt.Sprintf("point %d (%.4f) is beyond 3σ of the mean %.4f (σ=%.4f)",
					i+1, v, m, sd),
			})
		}
	}
	return out
}

func firstRun(values []float64, m float64) (Violation, bool) {
	for end := runWindow - 1; end < len(values); end++ {
		window := values[end-runWindow+1 : end+1]
		above, below := true, true
		for _, v := range window {
			if v <= m {
				above = false
			}
			if v >= m {
				below = false
			}
		}
		if above || below {
			side := "above"
			if below {
				side = "below"
			}
			return Violation{
				Rule:     RuleRun9,
				Index:    end,
				Severity: SeverityWarning,
				Description: fmt.Sprintf("%d consecutive points %s the mean %.4f, ending at point %d; the process center may have shifted",
					runWindow, side, m, end+1),
			}, true
		}
	}
	return Violation{}, false
}

func firstTrend(values []float64) (Violation, bool) {
	for end := trendWindow - 1; end < len(values); end++ {
		rising, falling := true, true
		for i := end - trendWindow + 2; i <= end; i++ {
			d := values[i] - values[i-1]
			if d <= 0 {
				rising = false
			}
			if d >= 0 {
				falling = false
			}
		}
		if rising || falling {
			dir := "increasing"
			if falling {
				dir = "decreasing"
			}
			return Violation{
				Rule:     RuleTrend6,
				Index:    end,
				Severity: SeverityWarning,
				Description: fmt.Sprintf("%d consecutive points steadily %s, ending at point %d; possible tool wear or thermal drift",
					trendWindow, dir, end+1),
			}, true
		}
	}
	return Violation{}, false
}

func firstAlternation(values []float64) (Violation, bool) {
	for end := alternationWindow - 1; end < len(values); end++ {
		if alternates(values[end-alternationWindow+1 : end+1]) {
			return Violation{
				Rule:     RuleAlternation14,
				Index:    end,
				Severity: SeverityInfo,
				Description: fmt.Sprintf("%d consecutive points alternate up and down, ending at point %d; check the measuring method or fixturing",
					alternationWindow, end+1),
			}, true
		}
	}
	return Violation{}, false
}

// alternates reports whether consecutive differences in window are all
// nonzero and strictly alternate in sign.
func alternates(window []float64) bool {
	prev := 0.0
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d == 0 {
			return false
		}
		if i > 1 && (d > 0) == (prev > 0) {
			return false
		}
		prev = d
	}
	return true
}
