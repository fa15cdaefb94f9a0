package analysis

import (
	"fmt"
	"math"
)

// Rules raised by CheckLatest.
const (
	RuleLimitOut  Rule = "LIMIT_OUT"
	RuleTrendUp   Rule = "TREND_UP"
	RuleTrendDown Rule = "TREND_DOWN"
	RuleBiasUp    Rule = "BIAS_UP"
	RuleBiasDown  Rule = "BIAS_DOWN"
)

const (
	latestTrendWindow = 6
	latestBiasWindow  = 7
)

// Alert is feedback about the most recent reading, shown to the operator as
// soon as a piece is measured.
type Alert struct {
	Rule     Rule     `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// CheckLatest evaluates the last value of a cleaned series: whether it is out
// of the engineering limits, whether the last six values form a monotonic
// trend, and whether the last seven sit on one side of the nominal (or of the
// series mean when no nominal is given).
func CheckLatest(values []float64, limits Limits, nominal *float64) []Alert {
	alerts := make([]Alert, 0)
	if len(values) == 0 {
		return alerts
	}
	last := values[len(values)-1]

	switch {
	case limits.Lower != nil && last < *limits.Lower:
		alerts = append(alerts, Alert{
			Rule:     RuleLimitOut,
			Severity: SeverityDanger,
			Message: fmt.Sprintf("reading %.4f is below the lower limit %g by %.4f; scrap or rework the piece",
				last, *limits.Lower, math.Abs(*limits.Lower-last)),
		})
	case limits.Upper != nil && last > *limits.Upper:
		alerts = append(alerts, Alert{
			Rule:     RuleLimitOut,
			Severity: SeverityDanger,
			Message: fmt.Sprintf("reading %.4f is above the upper limit %g by %.4f; check the tool offset",
				last, *limits.Upper, math.Abs(last-*limits.Upper)),
		})
	}

	if len(values) >= latestTrendWindow {
		tail := values[len(values)-latestTrendWindow:]
		rising, falling := true, true
		for i := 1; i < len(tail); i++ {
			d := tail[i] - tail[i-1]
			rising = rising && d > 0
			falling = falling && d < 0
		}
		if rising {
			alerts = append(alerts, Alert{
				Rule:     RuleTrendUp,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%d consecutive pieces increasing in size; possible tool wear or thermal drift", latestTrendWindow),
			})
		} else if falling {
			alerts = append(alerts, Alert{
				Rule:     RuleTrendDown,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%d consecutive pieces decreasing in size; verify process stability", latestTrendWindow),
			})
		}
	}

	center := mean(values)
	if nominal != nil {
		center = *nominal
	}
	if len(values) >= latestBiasWindow {
		tail := values[len(values)-latestBiasWindow:]
		above, below := true, true
		for _, v := range tail {
			above = above && v > center
			below = below && v < center
		}
		if above {
			alerts = append(alerts, Alert{
				Rule:     RuleBiasUp,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%d consecutive pieces above the center %g; re-center the process", latestBiasWindow, center),
			})
		} else if below {
			alerts = append(alerts, Alert{
				Rule:     RuleBiasDown,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%d consecutive pieces below the center %g; re-center the process", latestBiasWindow, center),
			})
		}
	}
	return alerts
}
