package analysis

// Conform counts values inside and outside limits. With no limits at all
// every value is approved.
func Conform(values []float64, limits Limits) Conformance {
	c := Conformance{Total: len(values)}
	for _, v := range values {
		if WithinLimits(v, limits) {
			c.Approved++
		} else {
			c.Rejected++
		}
	}
	return c
}

// SummarizePassFail counts the results of a pass/fail characteristic. Nil
// entries are pieces not yet inspected and are not counted.
func SummarizePassFail(results []*bool) Conformance {
	var c Conformance
	for _, r := range results {
		if r == nil {
			continue
		}
		if *r {
			c.Approved++
		} else {
			c.Rejected++
		}
		c.Total++
	}
	return c
}
