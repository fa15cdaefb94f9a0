package server

import (
	"github.com/CARsoftAR/medicionProcesos/internal/analysis"
	"github.com/CARsoftAR/medicionProcesos/internal/spc"
	"github.com/CARsoftAR/medicionProcesos/internal/store"
)

// OptionsOverride lets a request change the configured analysis options.
type OptionsOverride struct {
	SubgroupSize int `json:"subgroup_size" form:"subgroup_size" validate:"omitempty,min=1,max=100"`
	// Interpretation forces how stored tolerances are read.
	Interpretation string `json:"interpretation" form:"interpretation" validate:"omitempty,oneof=auto deviation absolute"`
	// ExcellentThreshold replaces the lower bound of the excellent class,
	// e.g. 1.67 or 2.0.
	ExcellentThreshold float64 `json:"excellent_threshold" form:"excellent_threshold" validate:"omitempty,gt=0"`
}

// AnalyzeRequest is the body of POST /v1/spc/analyze.
type AnalyzeRequest struct {
	// Series holds readings in production order; null is an unmeasured piece.
	Series    []*float64             `json:"series" validate:"required,max=100000"`
	Tolerance analysis.ToleranceSpec `json:"tolerance"`
	OptionsOverride
}

// AnalyzeResponse wraps one engine result.
type AnalyzeResponse struct {
	ID     string          `json:"id"`
	Result analysis.Result `json:"result"`
}

// CharacteristicResponse wraps the analysis of a stored characteristic.
type CharacteristicResponse struct {
	ID string `json:"id"`
	spc.CharacteristicResult
}

// StructureResponse is the analysis of every characteristic of a structure.
type StructureResponse struct {
	ID              string                     `json:"id"`
	Structure       string                     `json:"structure"`
	Characteristics []spc.CharacteristicResult `json:"characteristics"`
}

// ToleranceRequest is the body of PUT /v1/tolerances/:structure/:characteristic.
type ToleranceRequest struct {
	Nominal  *float64 `json:"nominal"`
	Minimum  *float64 `json:"minimum"`
	Maximum  *float64 `json:"maximum"`
	PassFail bool     `json:"pass_fail"`
}

// ToleranceResponse echoes a stored tolerance with its resolved limits.
type ToleranceResponse struct {
	Key       store.Key       `json:"key"`
	Tolerance store.Tolerance `json:"tolerance"`
	Limits    analysis.Limits `json:"limits"`
}

// MeasurementRequest is the body of POST /v1/measurements/:structure/:characteristic.
// Exactly one of Value and Result must be set.
type MeasurementRequest struct {
	Piece  int      `json:"piece" validate:"required,min=1"`
	Value  *float64 `json:"value" validate:"required_without=Result,excluded_with=Result"`
	Result *bool    `json:"result" validate:"required_without=Value,excluded_with=Value"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
