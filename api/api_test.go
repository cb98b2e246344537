package api

import (
	"context"
	"testing"
	"time"

	"github.com/soundwave/tracker/clock"
	"github.com/soundwave/tracker/policy"
	"github.com/soundwave/tracker/tests/helpers"
	"github.com/soundwave/tracker/tracker"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	s := helpers.NewTestSQLiteStore(t)
	formatter, err := clock.NewFormatter("Asia/Kolkata")
	if err != nil {
		t.Fatalf("NewFormatter failed: %v", err)
	}
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	processor := tracker.NewProcessor(s, clock.SystemClock{}, formatter, 5*time.Second)
	query := tracker.NewQuery(s, formatter, 5*time.Second)
	return NewHandler(processor, query, engine)
}
