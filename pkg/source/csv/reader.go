// Package csv reads delimited text data sets into rows and splits them into
// disjoint partitions for profiling.
package csv

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	stringpool "github.com/ajitpratap0/nebula-profiler/pkg/strings"
)

// internLimit bounds the distinct text values shared between rows
const internLimit = 4096

// Field types reported in the inferred schema
const (
	FieldTypeString  = "string"
	FieldTypeInteger = "integer"
	FieldTypeFloat   = "float"
	FieldTypeBoolean = "boolean"
)

// Options controls parsing
type Options struct {
	Delimiter rune
	// HasHeader takes column names from the first record; otherwise
	// columns are named field_0, field_1 and so on
	HasHeader bool
	// InferTypes converts values of integer, float and boolean columns
	InferTypes bool
	// Comment skips lines starting with this rune when non-zero
	Comment rune
}

// DefaultOptions returns comma separated parsing with a header row and
// type inference
func DefaultOptions() Options {
	return Options{
		Delimiter:  ',',
		HasHeader:  true,
		InferTypes: true,
	}
}

// Dataset is a fully read data set
type Dataset struct {
	Schema models.Schema
	Rows   []models.Row
}

// ReadFile reads the data set at path
func ReadFile(ctx context.Context, path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open data set").
			WithDetail("path", path)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Read(ctx, f, name, opts)
}

// Read parses a data set. Empty values become nulls and every row is
// identified by its line number. Text values are kept verbatim so that
// whitespace stays visible to the analyzers.
func Read(ctx context.Context, r io.Reader, name string, opts Options) (*Dataset, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.Comment = opts.Comment
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false
	intern := stringpool.NewIntern(internLimit)

	var headers []string
	if opts.HasHeader {
		record, err := reader.Read()
		if err == io.EOF {
			return &Dataset{Schema: models.Schema{Name: name}}, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read header")
		}
		headers = make([]string, len(record))
		for i, h := range record {
			headers[i] = intern.Get(strings.TrimSpace(h))
		}
	}

	var (
		rows  []models.Row
		lines []int
		raw   [][]string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "reading interrupted")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read record")
		}
		line, _ := reader.FieldPos(0)
		for len(headers) < len(record) {
			headers = append(headers, "field_"+strconv.Itoa(len(headers)))
		}
		raw = append(raw, record)
		lines = append(lines, line)
	}

	types := make([]string, len(headers))
	for i := range headers {
		types[i] = FieldTypeString
		if opts.InferTypes {
			types[i] = inferColumnType(raw, i)
		}
	}

	rows = make([]models.Row, len(raw))
	for n, record := range raw {
		row := models.NewRow(strconv.Itoa(lines[n]))
		for i, h := range headers {
			if i >= len(record) || record[i] == "" {
				row.Values[h] = nil
				continue
			}
			v := convertValue(record[i], types[i])
			if text, ok := v.(string); ok {
				v = intern.Get(text)
			}
			row.Values[h] = v
		}
		rows[n] = row
	}

	schema := models.Schema{Name: name, Fields: make([]models.Field, len(headers))}
	for i, h := range headers {
		schema.Fields[i] = models.Field{Name: h, Type: types[i]}
	}
	return &Dataset{Schema: schema, Rows: rows}, nil
}

// inferColumnType picks the narrowest type every non-empty value of the
// column parses as
func inferColumnType(records [][]string, column int) string {
	integer, float, boolean, seen := true, true, true, false
	for _, record := range records {
		if column >= len(record) {
			continue
		}
		v := strings.TrimSpace(record[column])
		if v == "" {
			continue
		}
		seen = true
		if integer {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				integer = false
			}
		}
		if float {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				float = false
			}
		}
		if boolean {
			if _, err := strconv.ParseBool(v); err != nil {
				boolean = false
			}
		}
	}

	switch {
	case !seen:
		return FieldTypeString
	case integer:
		return FieldTypeInteger
	case float:
		return FieldTypeFloat
	case boolean:
		return FieldTypeBoolean
	default:
		return FieldTypeString
	}
}

func convertValue(value, fieldType string) interface{} {
	trimmed := strings.TrimSpace(value)
	switch fieldType {
	case FieldTypeInteger:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
	case FieldTypeFloat:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	case FieldTypeBoolean:
		if v, err := strconv.ParseBool(trimmed); err == nil {
			return v
		}
	}
	return value
}

// Split cuts rows into n contiguous partitions whose sizes differ by at
// most one. n below one is treated as one.
func Split(rows []models.Row, n int) [][]models.Row {
	if n < 1 {
		n = 1
	}
	parts := make([][]models.Row, n)
	size, extra := len(rows)/n, len(rows)%n
	start := 0
	for i := range parts {
		end := start + size
		if i < extra {
			end++
		}
		parts[i] = rows[start:end:end]
		start = end
	}
	return parts
}
