package analysis

// controlFactors is the published X-bar/R constant table for subgroup sizes
// 2 through 10. It is read-only.
var controlFactors = map[int]ControlFactors{
	2:  {A2: 1.880, D3: 0, D4: 3.267},
	3:  {A2: 1.023, D3: 0, D4: 2.574},
	4:  {A2: 0.729, D3: 0, D4: 2.282},
	5:  {A2: 0.577, D3: 0, D4: 2.114},
	6:  {A2: 0.483, D3: 0, D4: 2.004},
	7:  {A2: 0.419, D3: 0.076, D4: 1.924},
	8:  {A2: 0.373, D3: 0.136, D4: 1.864},
	9:  {A2: 0.337, D3: 0.184, D4: 1.816},
	10: {A2: 0.308, D3: 0.223, D4: 1.777},
}

// FactorsFor returns the control-chart factors for subgroup size n. Sizes
// outside [2,10] get the n=2 row and approximated=true.
func FactorsFor(n int) (factors ControlFactors, approximated bool) {
	if f, ok := controlFactors[n]; ok {
		return f, false
	}
	return controlFactors[2], true
}

// Subgroups splits values into consecutive, non-overlapping groups of n. A
// trailing group shorter than n is dropped.
func Subgroups(values []float64, n int) [][]float64 {
	if n < 1 {
		return nil
	}
	count := len(values) / n
	groups := make([][]float64, 0, count)
	for i := 0; i < count; i++ {
		groups = append(groups, values[i*n:(i+1)*n:(i+1)*n])
	}
	return groups
}

// Aggregate builds the X-bar/R chart for values split into subgroups of n.
// It returns nil when fewer than n values are available, n < 1, or the
// chart statistics overflow float64.
func Aggregate(values []float64, n int) *XRData {
	if n < 1 || len(values) < n {
		return nil
	}
	groups := Subgroups(values, n)

	xr := &XRData{
		SubgroupSize: n,
		Count:        len(groups),
		Means:        make([]float64, len(groups)),
		Ranges:       make([]float64, len(groups)),
	}
	for i, g := range groups {
		xr.Means[i] = mean(g)
		xr.Ranges[i] = spread(g)
	}
	xr.GrandMean = mean(xr.Means)
	xr.AvgRange = mean(xr.Ranges)

	xr.Factors, xr.FactorsApproximated = FactorsFor(n)
	xr.UCLX = xr.GrandMean + xr.Factors.A2*xr.AvgRange
	xr.LCLX = xr.GrandMean - xr.Factors.A2*xr.AvgRange
	xr.UCLR = xr.Factors.D4 * xr.AvgRange
	xr.LCLR = xr.Factors.D3 * xr.AvgRange
	if !allFinite(xr.Means...) || !allFinite(xr.Ranges...) ||
		!allFinite(xr.GrandMean, xr.AvgRange, xr.UCLX, xr.LCLX, xr.UCLR, xr.LCLR) {
		return nil
	}
	return xr
}
