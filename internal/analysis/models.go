package analysis

// ToleranceSpec is the engineering specification for one characteristic as it
// is stored: Minimum and Maximum may hold either absolute limits or deviations
// from Nominal.
type ToleranceSpec struct {
	Nominal *float64 `json:"nominal" yaml:"nominal"`
	Minimum *float64 `json:"minimum" yaml:"minimum"`
	Maximum *float64 `json:"maximum" yaml:"maximum"`
}

// Limits holds resolved engineering limits, always on the measurement scale.
type Limits struct {
	Lower *float64 `json:"lower"`
	Upper *float64 `json:"upper"`
}

// Kind tags a characteristic as numeric or pass/fail. Only numeric
// characteristics reach the SPC engine.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindPassFail Kind = "pass_fail"
)

// Severity of a rule violation or alert.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule identifies an out-of-control signature.
type Rule string

const (
	RuleBeyond3Sigma  Rule = "BEYOND_3SIGMA"
	RuleRun9          Rule = "RUN_9"
	RuleTrend6        Rule = "TREND_6"
	RuleAlternation14 Rule = "ALTERNATION_14"
	RuleLowCapability Rule = "LOW_CAPABILITY"
)

// Violation is one detected pattern. Index points into the cleaned series
// (missing readings removed).
type Violation struct {
	Rule        Rule     `json:"rule"`
	Index       int      `json:"index"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// ControlFactors are the X-bar/R chart constants for one subgroup size.
type ControlFactors struct {
	A2 float64 `json:"a2"`
	D3 float64 `json:"d3"`
	D4 float64 `json:"d4"`
}

// XRData is the X-bar/R chart for a series split into fixed-size subgroups.
type XRData struct {
	SubgroupSize int            `json:"subgroup_size"`
	Count        int            `json:"subgroup_count"`
	Means        []float64      `json:"x_bars"`
	Ranges       []float64      `json:"ranges"`
	GrandMean    float64        `json:"grand_mean"`
	AvgRange     float64        `json:"avg_range"`
	UCLX         float64        `json:"ucl_x"`
	LCLX         float64        `json:"lcl_x"`
	UCLR         float64        `json:"ucl_r"`
	LCLR         float64        `json:"lcl_r"`
	Factors      ControlFactors `json:"factors"`
	// FactorsApproximated is set when SubgroupSize has no row in the factor
	// table and the n=2 row was used instead.
	FactorsApproximated bool `json:"factors_approximated"`
}

// Individuals holds the individuals (mean ± 3σ) and moving-range chart limits.
type Individuals struct {
	Mean  float64 `json:"mean"`
	UCL   float64 `json:"ucl"`
	LCL   float64 `json:"lcl"`
	MRBar float64 `json:"mr_bar"`
	MRUCL float64 `json:"mr_ucl"`
	MRLCL float64 `json:"mr_lcl"`
}

// Summary is descriptive statistics of the cleaned series.
type Summary struct {
	N       int      `json:"n"`
	Mean    *float64 `json:"mean"`
	StdDev  *float64 `json:"stdev"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Range   *float64 `json:"range"`
	Nominal *float64 `json:"nominal"`
}

// Capability holds process capability indices. Either may be nil when undefined.
type Capability struct {
	Cp  *float64 `json:"cp"`
	Cpk *float64 `json:"cpk"`
}

// Conformance counts pieces inside and outside the engineering limits.
type Conformance struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// Result is everything one analysis call produces.
type Result struct {
	Limits      Limits          `json:"limits"`
	Summary     Summary         `json:"summary"`
	XR          *XRData         `json:"xr"`
	Individuals *Individuals    `json:"individuals"`
	Violations  []Violation     `json:"violations"`
	Capability  Capability      `json:"capability"`
	CpClass     CapabilityClass `json:"cp_class"`
	CpkClass    CapabilityClass `json:"cpk_class"`
	Conformance Conformance     `json:"conformance"`

	// InsufficientSubgroups is set when fewer than SubgroupSize usable values
	// exist or the chart statistics overflow; XR is nil in that case.
	InsufficientSubgroups bool `json:"insufficient_subgroups"`
	// InsufficientStatistics is set when fewer than two usable values exist
	// or their mean or deviation overflows float64; capability, individuals
	// and rule detection are skipped.
	InsufficientStatistics bool `json:"insufficient_statistics"`
}

// Options tunes one Analyze call.
type Options struct {
	SubgroupSize   int
	Interpretation Interpretation
	Thresholds     Thresholds
}

// DefaultSubgroupSize is the subgroup size used when none is given.
const DefaultSubgroupSize = 5

// DefaultOptions returns subgroups of five, the automatic tolerance heuristic
// and DefaultThresholds.
func DefaultOptions() Options {
	return Options{
		SubgroupSize:   DefaultSubgroupSize,
		Interpretation: InterpretAuto,
		Thresholds:     DefaultThresholds,
	}
}

func ptr(v float64) *float64 {
	return &v
}
