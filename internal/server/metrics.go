package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
	"github.com/CARsoftAR/medicionProcesos/internal/spc"
)

// Metrics are the Prometheus collectors of the API.
type Metrics struct {
	analyses        *prometheus.CounterVec
	analysisSeconds prometheus.Histogram
	violations      *prometheus.CounterVec
	capability      *prometheus.CounterVec
	recorded        *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spc_analyses_total",
			Help: "Characteristic analyses by outcome (ok, insufficient_data, pass_fail).",
		}, []string{"outcome"}),
		analysisSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "spc_analysis_duration_seconds",
			Help:    "Duration of analysis requests, including store reads.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spc_rule_violations_total",
			Help: "Rule violations reported by analyses, by rule.",
		}, []string{"rule"}),
		capability: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spc_cpk_class_total",
			Help: "Analyses by Cpk classification.",
		}, []string{"class"}),
		recorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spc_measurements_recorded_total",
			Help: "Measurements recorded, by whether they were within the engineering limits.",
		}, []string{"within_spec"}),
	}
}

func (m *Metrics) observeResult(cr spc.CharacteristicResult) {
	if cr.PassFail != nil {
		m.analyses.WithLabelValues("pass_fail").Inc()
		return
	}
	if cr.Result != nil {
		m.observe(*cr.Result)
	}
}

func (m *Metrics) observe(res analysis.Result) {
	outcome := "ok"
	if res.InsufficientStatistics {
		outcome = "insufficient_data"
	}
	m.analyses.WithLabelValues(outcome).Inc()
	for _, v := range res.Violations {
		m.violations.WithLabelValues(string(v.Rule)).Inc()
	}
	class := string(res.CpkClass)
	if class == "" {
		class = "unknown"
	}
	m.capability.WithLabelValues(class).Inc()
}

func (m *Metrics) observeRecorded(within *bool) {
	label := "unknown"
	if within != nil {
		label = "false"
		if *within {
			label = "true"
		}
	}
	m.recorded.WithLabelValues(label).Inc()
}
