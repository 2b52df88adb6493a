package analyzer

import (
	"context"
	"strings"
	"unicode"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
	stringpool "github.com/ajitpratap0/nebula-profiler/pkg/strings"
)

// Pattern analyzer constants
const (
	PatternType = "pattern"

	// OptionDiscriminateCase maps upper case letters to "A" instead of "a"
	OptionDiscriminateCase = "discriminate_case"

	PatternNull  = "<null>"
	PatternBlank = "<blank>"
)

// PatternDescriptor describes the pattern analyzer. It profiles one column
// per component.
func PatternDescriptor() Descriptor {
	return Descriptor{
		Type:        PatternType,
		Description: "Groups the values of a column by their character pattern",
		ResultType:  PatternType,
		MaxColumns:  1,
		New:         NewPatternAnalyzer,
		NewReducer:  CategoryReducer,
	}
}

// PatternAnalyzer keeps one annotated bucket per value pattern
type PatternAnalyzer struct {
	store        annotation.Store
	column       string
	discriminate bool
	patterns     []string
	ids          map[string]annotation.ID
}

// NewPatternAnalyzer creates a pattern analyzer
func NewPatternAnalyzer(_ context.Context, c Context) (Analyzer, error) {
	if err := c.validate(PatternType); err != nil {
		return nil, err
	}
	if len(c.Columns) != 1 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "pattern analyzer takes one column, got %d", len(c.Columns))
	}
	return &PatternAnalyzer{
		store:        c.Store,
		column:       c.Columns[0],
		discriminate: c.BoolOption(OptionDiscriminateCase, false),
		ids:          make(map[string]annotation.ID),
	}, nil
}

// Process implements Analyzer
func (a *PatternAnalyzer) Process(ctx context.Context, row models.Row) error {
	v, _ := row.Get(a.column)
	pattern := PatternOf(v, a.discriminate)

	id, ok := a.ids[pattern]
	if !ok {
		var err error
		if id, err = a.store.NewAnnotation(ctx); err != nil {
			return err
		}
		a.ids[pattern] = id
		a.patterns = append(a.patterns, pattern)
	}
	return a.store.Annotate(ctx, id, row)
}

// Result implements Analyzer. The result is a future completed by a
// goroutine that snapshots the buckets seen so far.
func (a *PatternAnalyzer) Result(context.Context) (result.AnalyzerResult, error) {
	patterns := append([]string(nil), a.patterns...)
	ids := make(map[string]annotation.ID, len(a.ids))
	for k, v := range a.ids {
		ids[k] = v
	}
	return result.Go(func() (result.AnalyzerResult, error) {
		res := result.NewCategorized(PatternType, a.store, a.column)
		for _, p := range patterns {
			res.Register(p, ids[p])
		}
		return res, nil
	}), nil
}

// Close implements Analyzer
func (a *PatternAnalyzer) Close() error {
	return nil
}

// PatternOf maps letters to "a" (or "A" for upper case when discriminating),
// digits to "9" and keeps other characters. Runs of the same letter or digit
// symbol collapse to one.
func PatternOf(v interface{}, discriminateCase bool) string {
	text, ok := textOf(v)
	if !ok {
		return PatternNull
	}
	if strings.TrimSpace(text) == "" {
		return PatternBlank
	}

	b := stringpool.GetBuilder()
	defer stringpool.PutBuilder(b)
	var last rune
	for _, r := range text {
		symbol := r
		switch {
		case unicode.IsLetter(r):
			symbol = 'a'
			if discriminateCase && unicode.IsUpper(r) {
				symbol = 'A'
			}
		case unicode.IsDigit(r):
			symbol = '9'
		}
		if symbol == last && (symbol == 'a' || symbol == 'A' || symbol == '9') {
			continue
		}
		b.WriteRune(symbol)
		last = symbol
	}
	return b.String()
}
