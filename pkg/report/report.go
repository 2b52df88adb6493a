// Package report turns the outcome of a profiling run into a serializable
// report and writes it as JSON or as a compressed archive.
package report

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ajitpratap0/nebula-profiler/internal/partition"
	"github.com/ajitpratap0/nebula-profiler/pkg/analyzer"
	"github.com/ajitpratap0/nebula-profiler/pkg/compression"
	"github.com/ajitpratap0/nebula-profiler/pkg/crosstab"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/job"
	"github.com/ajitpratap0/nebula-profiler/pkg/json"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Report is the final report of a run
type Report struct {
	JobName     string        `json:"job_name"`
	RunID       string        `json:"run_id"`
	Partitions  int           `json:"partitions"`
	Rows        int           `json:"rows"`
	Duration    time.Duration `json:"duration_ns"`
	GeneratedAt time.Time     `json:"generated_at"`
	Components  []Component   `json:"components"`
}

// Component is the report section of one component key
type Component struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	ResultType string   `json:"result_type"`
	Columns    []string `json:"columns"`

	// Cells and Table describe crosstab results
	Cells int    `json:"cells,omitempty"`
	Table string `json:"table,omitempty"`
	// Categories holds the row count per category of categorized results
	Categories map[string]int64 `json:"categories,omitempty"`
	// Combinations is the ranked value combination table, when the result
	// has one
	Combinations string `json:"combinations,omitempty"`
	// Distribution lists the value counts per group of value distributions
	Distribution []Distribution `json:"distribution,omitempty"`
}

// Distribution is the value distribution of one group
type Distribution struct {
	Group        string                `json:"group"`
	Total        int64                 `json:"total"`
	Nulls        int64                 `json:"nulls"`
	Distinct     int                   `json:"distinct"`
	UniqueValues []string              `json:"unique_values,omitempty"`
	TopValues    []analyzer.ValueCount `json:"top_values"`
}

// combinationRanker is implemented by results that rank value combinations
type combinationRanker interface {
	ValueCombinations(ctx context.Context) (*crosstab.Crosstab, error)
}

// Build assembles the report. renderLimit bounds the cells rendered per
// table; a negative limit renders everything.
func Build(ctx context.Context, j *job.Job, out *partition.Outcome, renderLimit int) (*Report, error) {
	r := &Report{
		JobName:     j.Name,
		RunID:       out.RunID,
		Partitions:  out.Partitions,
		Rows:        out.Rows,
		Duration:    out.Duration,
		GeneratedAt: time.Now().UTC(),
		Components:  make([]Component, 0, len(out.Results)),
	}

	for _, kr := range out.Results {
		c := Component{
			Key:        kr.Key,
			Name:       kr.Name,
			Type:       kr.Type,
			ResultType: kr.Result.ResultType(),
			Columns:    kr.Columns,
		}

		switch res := kr.Result.(type) {
		case crosstab.Result:
			if ct := res.Crosstab(); ct != nil {
				c.Cells = ct.Len()
				c.Table = ct.Render(renderLimit)
			}
		case *result.Categorized:
			counts, err := res.Counts(ctx)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to count categories").
					WithDetail("component_key", kr.Key)
			}
			c.Categories = counts
		}

		if vd, ok := kr.Result.(*analyzer.ValueDistributionResult); ok {
			c.Distribution = distributionOf(vd)
		}
		if ranker, ok := kr.Result.(combinationRanker); ok {
			combos, err := ranker.ValueCombinations(ctx)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to rank value combinations").
					WithDetail("component_key", kr.Key)
			}
			if combos != nil {
				c.Combinations = combos.Render(renderLimit)
			}
		}
		r.Components = append(r.Components, c)
	}
	return r, nil
}

func distributionOf(vd *analyzer.ValueDistributionResult) []Distribution {
	out := make([]Distribution, 0, len(vd.Groups()))
	for _, name := range vd.Groups() {
		g, _ := vd.Group(name)
		out = append(out, Distribution{
			Group:        name,
			Total:        g.Total(),
			Nulls:        g.Nulls(),
			Distinct:     g.Distinct(),
			UniqueValues: g.UniqueValues(),
			TopValues:    g.TopValues(vd.TopValues()),
		})
	}
	return out
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, r *Report) error {
	if err := json.MarshalToWriter(w, r, "  "); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}
	return nil
}

// WriteFile writes the report as JSON to path
func WriteFile(path string, r *Report) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write report").WithDetail("path", path)
	}
	return nil
}

// WriteArchive streams the report as JSON compressed with algorithm to path
func WriteArchive(path string, r *Report, algorithm compression.Algorithm) error {
	comp, err := newCompressor(algorithm)
	if err != nil {
		return err
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(json.MarshalToWriter(pw, r, ""))
	}()
	if err := comp.CompressStream(f, pr); err != nil {
		pr.CloseWithError(err)
		_ = f.Close()
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress report").
			WithDetail("algorithm", string(algorithm))
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write archive").WithDetail("path", path)
	}
	return nil
}

// ReadArchive reads a report written by WriteArchive, decompressing and
// decoding in one pass
func ReadArchive(path string, algorithm compression.Algorithm) (*Report, error) {
	comp, err := newCompressor(algorithm)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read archive").WithDetail("path", path)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := comp.DecompressStream(pw, f)
		pw.CloseWithError(err)
		done <- err
	}()

	var r Report
	decodeErr := json.UnmarshalFromReader(pr, &r)
	// unblock the decompressor when the decoder stopped early
	_ = pr.Close()
	streamErr := <-done

	if streamErr != nil && !stderrors.Is(streamErr, io.ErrClosedPipe) {
		return nil, errors.Wrap(streamErr, errors.ErrorTypeData, "failed to decompress archive").WithDetail("path", path)
	}
	if decodeErr != nil {
		return nil, errors.Wrap(decodeErr, errors.ErrorTypeData, "failed to decode archive").WithDetail("path", path)
	}
	return &r, nil
}

func newCompressor(algorithm compression.Algorithm) (compression.Compressor, error) {
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: algorithm, Level: compression.Default})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid archive compression").
			WithDetail("algorithm", string(algorithm))
	}
	return comp, nil
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").WithDetail("path", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create report file").WithDetail("path", path)
	}
	return f, nil
}
