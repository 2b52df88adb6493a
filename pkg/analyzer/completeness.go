package analyzer

import (
	"context"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Completeness categories and options
const (
	CompletenessType = "completeness"

	CategoryValid   = "VALID"
	CategoryInvalid = "INVALID"

	// OptionEvaluationMode is "any" (a row is invalid when any column is
	// missing) or "all" (invalid only when every column is missing)
	OptionEvaluationMode = "evaluation_mode"
	EvaluationAnyField   = "any"
	EvaluationAllFields  = "all"
)

// CompletenessDescriptor describes the completeness analyzer
func CompletenessDescriptor() Descriptor {
	return Descriptor{
		Type:        CompletenessType,
		Description: "Splits rows into VALID and INVALID by whether the columns hold values",
		ResultType:  CompletenessType,
		New:         NewCompletenessAnalyzer,
		NewReducer:  CategoryReducer,
	}
}

// CompletenessAnalyzer files each row under VALID or INVALID. Null values
// and blank text are missing.
type CompletenessAnalyzer struct {
	store     annotation.Store
	columns   []string
	allFields bool
	valid     annotation.ID
	invalid   annotation.ID
	res       *result.Categorized
}

// NewCompletenessAnalyzer creates a completeness analyzer
func NewCompletenessAnalyzer(ctx context.Context, c Context) (Analyzer, error) {
	if err := c.validate(CompletenessType); err != nil {
		return nil, err
	}
	mode := c.StringOption(OptionEvaluationMode, EvaluationAnyField)
	if mode != EvaluationAnyField && mode != EvaluationAllFields {
		return nil, errors.New(errors.ErrorTypeConfig, "unknown evaluation mode").
			WithDetail(OptionEvaluationMode, mode)
	}
	ids, err := annotateAll(ctx, c.Store, 2)
	if err != nil {
		return nil, err
	}

	res := result.NewCategorized(CompletenessType, c.Store, c.Columns...)
	res.Register(CategoryValid, ids[0])
	res.Register(CategoryInvalid, ids[1])
	return &CompletenessAnalyzer{
		store:     c.Store,
		columns:   c.Columns,
		allFields: mode == EvaluationAllFields,
		valid:     ids[0],
		invalid:   ids[1],
		res:       res,
	}, nil
}

// Process implements Analyzer
func (a *CompletenessAnalyzer) Process(ctx context.Context, row models.Row) error {
	missingCount := 0
	for _, col := range a.columns {
		v, _ := row.Get(col)
		if missing(v) {
			missingCount++
		}
	}

	invalid := missingCount > 0
	if a.allFields {
		invalid = missingCount == len(a.columns)
	}
	if invalid {
		return a.store.Annotate(ctx, a.invalid, row)
	}
	return a.store.Annotate(ctx, a.valid, row)
}

// Result implements Analyzer
func (a *CompletenessAnalyzer) Result(context.Context) (result.AnalyzerResult, error) {
	return a.res, nil
}

// Close implements Analyzer
func (a *CompletenessAnalyzer) Close() error {
	return nil
}

// CategoryReducer merges category-membership results
func CategoryReducer(reduce.Options) reduce.ResultReducer {
	return reduce.Adapt[*result.Categorized](reduce.CategoryReducer{})
}
