package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-profiler/internal/partition"
	"github.com/ajitpratap0/nebula-profiler/pkg/analyzer"
	"github.com/ajitpratap0/nebula-profiler/pkg/annotation"
	"github.com/ajitpratap0/nebula-profiler/pkg/compression"
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/job"
	"github.com/ajitpratap0/nebula-profiler/pkg/json"
	"github.com/ajitpratap0/nebula-profiler/pkg/models"
	"github.com/ajitpratap0/nebula-profiler/pkg/registry"
	"github.com/ajitpratap0/nebula-profiler/pkg/testutil"
)

func buildReport(t *testing.T, renderLimit int) *Report {
	t.Helper()
	ctx := testutil.TestContext(t)

	rows := testutil.Rows([]string{"age", "active", "verified"},
		[]interface{}{int64(30), true, true},
		[]interface{}{int64(41), true, false},
		[]interface{}{nil, false, false},
		[]interface{}{int64(25), true, true},
	)
	j := &job.Job{
		Name: "members",
		Components: []job.Component{
			{Type: analyzer.NumberType, Name: "ages", Columns: []string{"age"}},
			{Type: analyzer.BooleanType, Columns: []string{"active", "verified"}},
			{Type: analyzer.CompletenessType, Columns: []string{"age"}},
			{Type: analyzer.ValueDistributionType, Columns: []string{"active"}},
		},
	}

	store := annotation.NewMemoryStore(5)
	t.Cleanup(func() { _ = store.Close() })
	runner := partition.NewRunner(registry.Default(), store, partition.DefaultConfig(), testutil.TestLogger(t))
	out, err := runner.Run(ctx, j, [][]models.Row{rows[:2], rows[2:]})
	require.NoError(t, err)

	r, err := Build(ctx, j, out, renderLimit)
	require.NoError(t, err)
	return r
}

func TestBuild(t *testing.T) {
	r := buildReport(t, -1)

	assert.Equal(t, "members", r.JobName)
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, 2, r.Partitions)
	assert.Equal(t, 4, r.Rows)
	require.Len(t, r.Components, 4)

	number := r.Components[0]
	assert.Equal(t, "0", number.Key)
	assert.Equal(t, "ages", number.Name)
	assert.Equal(t, analyzer.NumberType, number.ResultType)
	assert.Positive(t, number.Cells)
	assert.Contains(t, number.Table, "age^Null count: 1")
	assert.Contains(t, number.Table, "age^Highest value: 41")

	boolean := r.Components[1]
	assert.Contains(t, boolean.Table, "active^True count: 3")
	assert.Contains(t, boolean.Combinations, "Frequency^Most frequent: 2")

	completeness := r.Components[2]
	assert.Empty(t, completeness.Table)
	assert.Equal(t, map[string]int64{
		analyzer.CategoryValid:   3,
		analyzer.CategoryInvalid: 1,
	}, completeness.Categories)

	distribution := r.Components[3]
	assert.Contains(t, distribution.Table, "active^Distinct count: 2")
	require.Len(t, distribution.Distribution, 1)
	d := distribution.Distribution[0]
	assert.Equal(t, "active", d.Group)
	assert.EqualValues(t, 4, d.Total)
	assert.Equal(t, []string{"false"}, d.UniqueValues)
	assert.Equal(t, []analyzer.ValueCount{{Value: "true", Count: 3}, {Value: "false", Count: 1}}, d.TopValues)
}

func TestBuildRenderLimit(t *testing.T) {
	full := buildReport(t, -1)
	limited := buildReport(t, 2)
	assert.Less(t, len(limited.Components[0].Table), len(full.Components[0].Table))
	assert.Equal(t, full.Components[0].Cells, limited.Components[0].Cells)
}

func TestWriteJSON(t *testing.T) {
	r := buildReport(t, -1)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Equal(t, r.Components, decoded.Components)
}

func TestWriteFile(t *testing.T) {
	r := buildReport(t, -1)
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, WriteFile(path, r))
	assert.FileExists(t, path)
}

func TestArchiveRoundTrip(t *testing.T) {
	r := buildReport(t, -1)

	for _, algorithm := range []compression.Algorithm{compression.Zstd, compression.LZ4, compression.Gzip, compression.S2, compression.None} {
		t.Run(string(algorithm), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "report.json."+string(algorithm))
			require.NoError(t, WriteArchive(path, r, algorithm))

			back, err := ReadArchive(path, algorithm)
			require.NoError(t, err)
			assert.Equal(t, r.JobName, back.JobName)
			assert.Equal(t, r.Components, back.Components)
		})
	}
}

func TestArchiveErrors(t *testing.T) {
	r := buildReport(t, -1)
	dir := t.TempDir()

	err := WriteArchive(filepath.Join(dir, "report.bin"), r, compression.Algorithm("brotli"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = ReadArchive(filepath.Join(dir, "missing.bin"), compression.Zstd)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestReadArchiveRejectsCorruptData(t *testing.T) {
	r := buildReport(t, -1)
	path := filepath.Join(t.TempDir(), "report.json.zst")
	require.NoError(t, WriteArchive(path, r, compression.Zstd))

	packed, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, packed[:len(packed)/2], 0o600))

	_, err = ReadArchive(path, compression.Zstd)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	plain := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(plain, []byte("not json"), 0o600))
	_, err = ReadArchive(plain, compression.None)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}
