package analyzer

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/reduce"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// String analyzer measures
const (
	StringType = "string"

	MeasureBlankCount     = "Blank count"
	MeasureUppercaseCount = "Entirely uppercase count"
	MeasureLowercaseCount = "Entirely lowercase count"
	MeasureTotalCharCount = "Total char count"
	MeasureMaxChars       = "Max chars"
	MeasureMinChars       = "Min chars"
	MeasureAvgChars       = "Avg chars"
	MeasureMaxWords       = "Max words"
	MeasureMinWords       = "Min words"
	MeasureWordCount      = "Word count"
	MeasureUppercaseChars = "Uppercase chars"
	MeasureLowercaseChars = "Lowercase chars"
	MeasureDigitChars     = "Digit chars"
	MeasureNonLetterChars = "Non-letter chars"
	MeasureDiacriticChars = "Diacritic chars"
	MeasureWhiteSpaces    = "White spaces"
	MeasureAvgWhiteSpaces = "Avg white spaces"
)

var stringMeasures = []string{
	MeasureRowCount,
	MeasureNullCount,
	MeasureBlankCount,
	MeasureUppercaseCount,
	MeasureLowercaseCount,
	MeasureTotalCharCount,
	MeasureMaxChars,
	MeasureMinChars,
	MeasureAvgChars,
	MeasureWhiteSpaces,
	MeasureAvgWhiteSpaces,
	MeasureUppercaseChars,
	MeasureLowercaseChars,
	MeasureDigitChars,
	MeasureDiacriticChars,
	MeasureNonLetterChars,
	MeasureWordCount,
	MeasureMaxWords,
	MeasureMinWords,
}

// StringDescriptor describes the string analyzer
func StringDescriptor() Descriptor {
	return Descriptor{
		Type:        StringType,
		Description: "Character, word and casing statistics of text columns",
		ResultType:  StringType,
		New:         NewStringAnalyzer,
		NewReducer:  StringReducer,
	}
}

type stringColumn struct {
	name   string
	ids    map[string]annotation.ID
	counts map[string]int64
	// seen is false until the first non-null value
	seen               bool
	maxChars, minChars int64
	maxWords, minWords int64
}

// StringAnalyzer computes text statistics per column. Non-text values are
// measured through their default string form. A value made only of white
// space is blank.
type StringAnalyzer struct {
	store   annotation.Store
	columns []*stringColumn
}

// annotated string measures, in the order their annotations are created
var stringAnnotated = []string{MeasureNullCount, MeasureBlankCount, MeasureUppercaseCount, MeasureLowercaseCount}

// NewStringAnalyzer creates a string analyzer
func NewStringAnalyzer(ctx context.Context, c Context) (Analyzer, error) {
	if err := c.validate(StringType); err != nil {
		return nil, err
	}
	a := &StringAnalyzer{store: c.Store}
	for _, name := range c.Columns {
		ids, err := annotateAll(ctx, c.Store, len(stringAnnotated))
		if err != nil {
			return nil, err
		}
		col := &stringColumn{name: name, ids: map[string]annotation.ID{}, counts: map[string]int64{}}
		for i, measure := range stringAnnotated {
			col.ids[measure] = ids[i]
		}
		a.columns = append(a.columns, col)
	}
	return a, nil
}

// Process implements Analyzer
func (a *StringAnalyzer) Process(ctx context.Context, row models.Row) error {
	for _, col := range a.columns {
		col.counts[MeasureRowCount]++
		raw, _ := row.Get(col.name)
		text, ok := textOf(raw)
		if !ok {
			col.counts[MeasureNullCount]++
			if err := a.store.Annotate(ctx, col.ids[MeasureNullCount], row); err != nil {
				return err
			}
			continue
		}

		chars := int64(utf8.RuneCountInString(text))
		words := int64(len(strings.Fields(text)))
		var letters, upper, lower, digits, diacritics, nonLetters, spaces int64
		for _, r := range text {
			switch {
			case unicode.IsLetter(r):
				letters++
				if unicode.IsUpper(r) {
					upper++
				} else {
					lower++
				}
				if isDiacritic(r) {
					diacritics++
				}
			default:
				nonLetters++
				if unicode.IsDigit(r) {
					digits++
				}
				if unicode.IsSpace(r) {
					spaces++
				}
			}
		}

		col.counts[MeasureTotalCharCount] += chars
		col.counts[MeasureWordCount] += words
		col.counts[MeasureUppercaseChars] += upper
		col.counts[MeasureLowercaseChars] += lower
		col.counts[MeasureDigitChars] += digits
		col.counts[MeasureDiacriticChars] += diacritics
		col.counts[MeasureNonLetterChars] += nonLetters
		col.counts[MeasureWhiteSpaces] += spaces

		if !col.seen {
			col.seen = true
			col.maxChars, col.minChars = chars, chars
			col.maxWords, col.minWords = words, words
		}
		col.maxChars = max(col.maxChars, chars)
		col.minChars = min(col.minChars, chars)
		col.maxWords = max(col.maxWords, words)
		col.minWords = min(col.minWords, words)

		var flags []string
		if strings.TrimSpace(text) == "" {
			flags = append(flags, MeasureBlankCount)
		}
		if letters > 0 && text == strings.ToUpper(text) {
			flags = append(flags, MeasureUppercaseCount)
		}
		if letters > 0 && text == strings.ToLower(text) {
			flags = append(flags, MeasureLowercaseCount)
		}
		for _, measure := range flags {
			col.counts[measure]++
			if err := a.store.Annotate(ctx, col.ids[measure], row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Result implements Analyzer
func (a *StringAnalyzer) Result(ctx context.Context) (result.AnalyzerResult, error) {
	ct := newMeasureCrosstab(stringMeasures)
	for _, col := range a.columns {
		nav := ct.Where(DimensionColumn, col.name)
		for _, measure := range []string{
			MeasureRowCount, MeasureNullCount, MeasureBlankCount, MeasureUppercaseCount, MeasureLowercaseCount,
		} {
			if err := nav.Where(DimensionMeasure, measure).Put(col.counts[measure], true); err != nil {
				return nil, err
			}
			if id, ok := col.ids[measure]; ok && col.counts[measure] > 0 {
				if err := attachSamples(ctx, nav, a.store, id, col.name); err != nil {
					return nil, err
				}
			}
		}
		if !col.seen {
			continue
		}

		values := map[string]interface{}{
			MeasureTotalCharCount:   col.counts[MeasureTotalCharCount],
			MeasureWordCount:        col.counts[MeasureWordCount],
			MeasureUppercaseChars:   col.counts[MeasureUppercaseChars],
			MeasureLowercaseChars:   col.counts[MeasureLowercaseChars],
			MeasureDigitChars:       col.counts[MeasureDigitChars],
			MeasureDiacriticChars:   col.counts[MeasureDiacriticChars],
			MeasureNonLetterChars:   col.counts[MeasureNonLetterChars],
			MeasureWhiteSpaces:      col.counts[MeasureWhiteSpaces],
			MeasureMaxChars:         col.maxChars,
			MeasureMinChars:         col.minChars,
			MeasureMaxWords:         col.maxWords,
			MeasureMinWords:         col.minWords,
		}
		for measure, v := range values {
			if err := nav.Where(DimensionMeasure, measure).Put(v, true); err != nil {
				return nil, err
			}
		}
	}
	if err := deriveStringMeasures(ctx, ct); err != nil {
		return nil, err
	}
	return crosstab.NewResult(StringType, ct), nil
}

// Close implements Analyzer
func (a *StringAnalyzer) Close() error {
	return nil
}

// StringReducer merges string results and derives the averages again from
// the merged totals
func StringReducer(opts reduce.Options) reduce.ResultReducer {
	return reduce.Adapt[crosstab.Result](&reduce.CrosstabReducer{
		ResultType: StringType,
		Options:    opts,
		Merge:      mergeStringValues,
		Finalize:   deriveStringMeasures,
	})
}

func mergeStringValues(categories []string, values []interface{}) (interface{}, error) {
	switch categories[1] {
	case MeasureMaxChars, MeasureMaxWords:
		return reduce.Max(values...)
	case MeasureMinChars, MeasureMinWords:
		return reduce.Min(values...)
	case MeasureAvgChars, MeasureAvgWhiteSpaces:
		return nil, nil
	default:
		return reduce.Sum(values...)
	}
}

// deriveStringMeasures computes the per-value averages over non-null values
func deriveStringMeasures(_ context.Context, ct *crosstab.Crosstab) error {
	column, ok := ct.Dimension(DimensionColumn)
	if !ok {
		return nil
	}
	for _, name := range column.Categories() {
		nav := ct.Where(DimensionColumn, name)
		rows := reduce.ToFloat64(nav.Where(DimensionMeasure, MeasureRowCount).SafeGet(int64(0)))
		nulls := reduce.ToFloat64(nav.Where(DimensionMeasure, MeasureNullCount).SafeGet(int64(0)))
		n := rows - nulls
		if n <= 0 {
			continue
		}
		chars := nav.Where(DimensionMeasure, MeasureTotalCharCount).SafeGet(nil)
		if chars != nil {
			if err := nav.Where(DimensionMeasure, MeasureAvgChars).Put(reduce.ToFloat64(chars)/n, true); err != nil {
				return err
			}
		}
		spaces := nav.Where(DimensionMeasure, MeasureWhiteSpaces).SafeGet(nil)
		if spaces != nil {
			if err := nav.Where(DimensionMeasure, MeasureAvgWhiteSpaces).Put(reduce.ToFloat64(spaces)/n, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// isDiacritic reports non-ASCII Latin letters such as é or ñ
func isDiacritic(r rune) bool {
	return r > unicode.MaxASCII && unicode.In(r, unicode.Latin)
}
