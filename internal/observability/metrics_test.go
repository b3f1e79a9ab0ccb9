package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRunTracksLastSuccess(t *testing.T) {
	DefaultMetrics.LastSuccessfulRun.Set(0)

	RecordRun("error", 0.1, 5)
	if got := testutil.ToFloat64(DefaultMetrics.LastSuccessfulRun); got != 0 {
		t.Errorf("failed run must not advance the last-success timestamp, got %v", got)
	}

	RecordRun("ok", 0.1, 5)
	if got := testutil.ToFloat64(DefaultMetrics.LastSuccessfulRun); got <= 0 {
		t.Errorf("successful run must set the last-success timestamp, got %v", got)
	}
}

func TestRecordEntryRejected(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.EntriesRejected)
	RecordEntryRejected()
	if got := testutil.ToFloat64(DefaultMetrics.EntriesRejected); got != before+1 {
		t.Errorf("expected rejected-entry counter %v, got %v", before+1, got)
	}
}

func TestRecordDBQuery(t *testing.T) {
	errCounter := DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert_run")

	before := testutil.ToFloat64(errCounter)
	RecordDBQuery("postgres", "insert_run", 0.01, nil)
	if got := testutil.ToFloat64(errCounter); got != before {
		t.Errorf("successful query must not count as an error, got %v want %v", got, before)
	}

	RecordDBQuery("postgres", "insert_run", 0.01, errors.New("connection refused"))
	if got := testutil.ToFloat64(errCounter); got != before+1 {
		t.Errorf("expected error counter %v, got %v", before+1, got)
	}
}
