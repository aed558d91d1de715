package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginFinishGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != StatusRunning {
		t.Errorf("status = %s, want running", run.Status)
	}
	if run.StartedAt.IsZero() {
		t.Error("started_at not recorded")
	}

	err = store.Finish(ctx, Run{
		ID: id, Status: StatusPartial,
		Records: 12, Sites: 4, SkippedRecords: 1, SkippedFeatures: 2,
		TabularPath: "/exports/sites.csv",
		Note:        "shapefile skipped: no usable coordinates",
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	run, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after finish: %v", err)
	}
	if run.Status != StatusPartial || run.Records != 12 || run.Sites != 4 {
		t.Errorf("run = %+v", run)
	}
	if run.FinishedAt.IsZero() {
		t.Error("finished_at not recorded")
	}
	if run.Note == "" {
		t.Error("degradation note lost")
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.Begin(ctx)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2 (limit respected)", len(runs))
	}

	all, err := store.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	seen := make(map[string]bool)
	for _, run := range all {
		seen[run.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("run %s missing from list", id)
		}
	}
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}
