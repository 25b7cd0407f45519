package history_test

import (
	"context"
	"testing"

	"lectern/internal/history"
	"lectern/internal/testsupport"
)

func TestRunRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.StartRun(ctx, "run-1", "/media/course"); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordUnit(ctx, history.UnitRecord{
		RunID:        "run-1",
		Dir:          "/media/course",
		Prefix:       "lecture01",
		Kind:         "primary",
		Outcome:      "success",
		RenderEngine: "xelatex",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordUnit(ctx, history.UnitRecord{
		RunID:       "run-1",
		Dir:         "/media/course",
		Prefix:      "slides01",
		Kind:        "image-group",
		Outcome:     "failed",
		FailedStage: "ocr",
		Error:       "tesseract crashed",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(ctx, "run-1", 1, 0, 1); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != "run-1" || run.Root != "/media/course" {
		t.Fatalf("run = %+v", run)
	}
	if run.Succeeded != 1 || run.Failed != 1 || run.Partial != 0 {
		t.Fatalf("counts = %d/%d/%d", run.Succeeded, run.Partial, run.Failed)
	}
	if run.StartedAt.IsZero() {
		t.Fatal("started_at did not survive the round trip")
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Fatalf("finished_at %v before started_at %v", run.FinishedAt, run.StartedAt)
	}

	units, err := store.UnitsForRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}
	if units[0].Prefix != "lecture01" || units[1].Prefix != "slides01" {
		t.Fatalf("unit order %q, %q", units[0].Prefix, units[1].Prefix)
	}
	if units[1].FailedStage != "ocr" {
		t.Fatalf("failed stage = %q", units[1].FailedStage)
	}
}

func TestRecentRunsOrderedNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.StartRun(ctx, id, "/media"); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
}

func TestRecordUnitRequiresRunID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := store.RecordUnit(context.Background(), history.UnitRecord{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestClearRemovesRunsAndUnits(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.StartRun(ctx, "run-1", "/media"); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordUnit(ctx, history.UnitRecord{RunID: "run-1", Prefix: "x", Kind: "primary", Outcome: "success"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("runs = %d, want 0", len(runs))
	}
	units, err := store.UnitsForRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 0 {
		t.Fatalf("units = %d, want 0", len(units))
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.StartRun(context.Background(), "run-1", "/media"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	runs, err := reopened.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs after reopen = %d, want 1", len(runs))
	}
}
