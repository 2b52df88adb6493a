package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides base functionality for end-to-end
// profiling tests
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "nebula-profiler-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir

	s.T().Logf("Integration test suite started in %s", s.tempDir)
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()

	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}

	s.T().Logf("Integration test suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the suite's temporary directory
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// CreateTempFile writes content to name inside the suite directory
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	require.NoError(s.T(), os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(s.T(), os.WriteFile(path, content, 0o600))
	return path
}

// IntegrationTest skips the calling test in short mode
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// CustomerColumns are the columns written by CustomerCSV
var CustomerColumns = []string{"id", "name", "email", "age", "score", "active", "verified"}

// CustomerCSV generates a deterministic customer data set with n rows.
// Nulls, blanks, case variants and mixed number kinds are spread over the
// rows so that every analyzer sees interesting values.
func CustomerCSV(n int) []byte {
	names := []string{"Alice", "bob", "CAROL", "Dan O'Neil", "  ", "", "Émile", "eve2"}
	domains := []string{"example.com", "example.org", "mail.io"}

	var b strings.Builder
	b.WriteString(strings.Join(CustomerColumns, ","))
	b.WriteByte('\n')
	for i := 0; i < n; i++ {
		name := names[i%len(names)]

		email := ""
		if i%7 != 3 {
			email = fmt.Sprintf("user%d@%s", i, domains[i%len(domains)])
		}

		age := ""
		if i%11 != 5 {
			age = fmt.Sprint(18 + (i*13)%60)
		}

		score := fmt.Sprintf("%.2f", float64((i*37)%1000)/8)
		if i%9 == 4 {
			score = ""
		}

		active := fmt.Sprint(i%3 != 0)
		verified := fmt.Sprint(i%4 == 1)
		if i%10 == 9 {
			verified = ""
		}

		fmt.Fprintf(&b, "%d,%q,%s,%s,%s,%s,%s\n", i+1, name, email, age, score, active, verified)
	}
	return []byte(b.String())
}
