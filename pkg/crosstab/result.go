package crosstab

import (
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Result is an analyzer result backed by a crosstab
type Result interface {
	result.AnalyzerResult
	Crosstab() *Crosstab
}

// BasicResult is a Result carrying its result type and table
type BasicResult struct {
	Type  string
	Table *Crosstab
}

// NewResult wraps table as a result of the given type
func NewResult(resultType string, table *Crosstab) *BasicResult {
	return &BasicResult{Type: resultType, Table: table}
}

// ResultType implements result.AnalyzerResult
func (r *BasicResult) ResultType() string {
	return r.Type
}

// Crosstab returns the table
func (r *BasicResult) Crosstab() *Crosstab {
	return r.Table
}
