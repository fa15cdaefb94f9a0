package analysis

import "fmt"

// Analyze runs the full SPC pipeline over a chronological series: missing
// readings are dropped, the tolerance is resolved to absolute limits, and the
// X-bar/R chart, individuals chart, rule violations, capability indices and
// conformance counts are computed. The series is not modified.
//
// Too few values never fail the call: XR is nil below SubgroupSize values and
// everything sigma-based is skipped below two values, with the matching
// Insufficient flag set.
func Analyze(series []*float64, spec ToleranceSpec, opts Options) Result {
	opts = opts.withDefaults()
	values := CleanSeries(series)
	limits := ResolveLimitsWith(spec, opts.Interpretation)

	res := Result{
		Limits:      limits,
		Summary:     Summarize(values),
		Violations:  make([]Violation, 0),
		Conformance: Conform(values, limits),
	}
	res.Summary.Nominal = copyPtr(spec.Nominal)
	if res.Summary.Nominal == nil {
		res.Summary.Nominal = copyPtr(res.Summary.Mean)
	}

	res.XR = Aggregate(values, opts.SubgroupSize)
	res.InsufficientSubgroups = res.XR == nil

	if len(values) < 2 {
		res.InsufficientStatistics = true
		return res
	}
	m, sd := meanStdDev(values)
	ind := individualsChart(values, m, sd)
	if !allFinite(m, sd, ind.UCL, ind.LCL, ind.MRBar, ind.MRUCL, ind.MRLCL) {
		// Readings too large for float64 arithmetic: report what Summarize
		// could compute and nothing derived from the overflowed moments.
		res.InsufficientStatistics = true
		return res
	}
	res.Individuals = ind
	res.Violations = Detect(values)

	res.Capability = ComputeCapability(m, sd, limits)
	res.CpClass = Classify(res.Capability.Cp, opts.Thresholds)
	res.CpkClass = Classify(res.Capability.Cpk, opts.Thresholds)
	if cpk := res.Capability.Cpk; cpk != nil && *cpk < opts.Thresholds.Marginal {
		res.Violations = append(res.Violations, Violation{
			Rule:     RuleLowCapability,
			Index:    len(values) - 1,
			Severity: SeverityDanger,
			Description: fmt.Sprintf("Cpk %.2f is below %.2f; process spread exceeds the allowed tolerance",
				*cpk, opts.Thresholds.Marginal),
		})
	}
	return res
}

func (o Options) withDefaults() Options {
	if o.SubgroupSize <= 0 {
		o.SubgroupSize = DefaultSubgroupSize
	}
	if o.Interpretation == "" {
		o.Interpretation = InterpretAuto
	}
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds
	}
	return o
}

// individualsChart uses mean ± 3σ for the individuals chart and the n=2
// moving range for its companion range chart.
func individualsChart(values []float64, m, sd float64) *Individuals {
	f, _ := FactorsFor(2)
	ind := &Individuals{
		Mean: m,
		UCL:  m + 3*sd,
		LCL:  m - 3*sd,
	}
	if mr := movingRanges(values); len(mr) > 0 {
		ind.MRBar = mean(mr)
	}
	ind.MRUCL = f.D4 * ind.MRBar
	ind.MRLCL = f.D3 * ind.MRBar
	return ind
}
