// Package testutil provides testing utilities for the profiler
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/nebula-profiler/pkg/models"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout that is
// cancelled when the test completes.
func TestContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Rows builds rows from column names and value tuples. Row IDs are the
// 1-based tuple positions.
func Rows(columns []string, values ...[]interface{}) []models.Row {
	rows := make([]models.Row, len(values))
	for i, tuple := range values {
		r := models.NewRow(fmt.Sprint(i + 1))
		for j, col := range columns {
			if j < len(tuple) {
				r.Values[col] = tuple[j]
			}
		}
		rows[i] = r
	}
	return rows
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
