package ann_test

import (
	"context"
	"os"
	"testing"

	"bitharbor/internal/ann"
	"bitharbor/internal/logging"
	"bitharbor/internal/testsupport"
	"bitharbor/internal/vector"
)

func seedVector(t *testing.T, dims int, seed float32) vector.Canonical {
	t.Helper()
	raw := make([]float32, dims)
	for i := range raw {
		raw[i] = seed + float32(i)
	}
	canonical, err := vector.NewCanonicalizer(dims).Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	return canonical
}

func TestAddIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	index := testsupport.MustOpenIndex(t, cfg, st)
	ctx := context.Background()

	canonical := seedVector(t, cfg.Embedding.Dimension, 1)
	first, fresh, err := index.Add(ctx, canonical)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !fresh {
		t.Fatal("first add should be fresh")
	}
	second, fresh, err := index.Add(ctx, canonical)
	if err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
	if fresh {
		t.Fatal("second add should reuse the existing row")
	}
	if first != second {
		t.Fatalf("row ids differ: %d vs %d", first, second)
	}

	mapped, err := st.CountVectorRecords(ctx)
	if err != nil {
		t.Fatalf("CountVectorRecords failed: %v", err)
	}
	if mapped != 1 || index.Count() != 1 {
		t.Fatalf("counts diverged: mapped=%d indexed=%d", mapped, index.Count())
	}
}

func TestSearchOrderingAndLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	index := testsupport.MustOpenIndex(t, cfg, st)
	ctx := context.Background()

	seeds := []float32{1, 10, 100, 1000}
	for _, seed := range seeds {
		if _, _, err := index.Add(ctx, seedVector(t, cfg.Embedding.Dimension, seed)); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	query := seedVector(t, cfg.Embedding.Dimension, 10).Vector
	hits, err := index.Search(ctx, query, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Score < hits[1].Score {
		t.Fatal("hits not sorted by descending score")
	}
	if hits[0].RowID != 1 {
		t.Fatalf("best hit: got row %d, want 1", hits[0].RowID)
	}

	// k beyond index size returns everything.
	all, err := index.Search(ctx, query, 50)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(all) != len(seeds) {
		t.Fatalf("expected %d hits, got %d", len(seeds), len(all))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	index := testsupport.MustOpenIndex(t, cfg, st)

	hits, err := index.Search(context.Background(), seedVector(t, cfg.Embedding.Dimension, 1).Vector, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestSearchSkipsTombstonedRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	index := testsupport.MustOpenIndex(t, cfg, st)
	ctx := context.Background()

	target := seedVector(t, cfg.Embedding.Dimension, 5)
	rowID, _, err := index.Add(ctx, target)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, _, err := index.Add(ctx, seedVector(t, cfg.Embedding.Dimension, 500)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := st.AddTombstone(ctx, rowID, "test"); err != nil {
		t.Fatalf("AddTombstone failed: %v", err)
	}

	hits, err := index.Search(ctx, target.Vector, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, hit := range hits {
		if hit.RowID == rowID {
			t.Fatalf("tombstoned row %d surfaced", rowID)
		}
	}
}

func TestReopenFromSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	index, err := ann.Open(ctx, cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	canonical := seedVector(t, cfg.Embedding.Dimension, 3)
	rowID, _, err := index.Add(ctx, canonical)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := index.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := ann.Open(ctx, cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if reopened.Count() != 1 {
		t.Fatalf("count after reopen: got %d, want 1", reopened.Count())
	}
	again, fresh, err := reopened.Add(ctx, canonical)
	if err != nil {
		t.Fatalf("Add after reopen failed: %v", err)
	}
	if fresh || again != rowID {
		t.Fatalf("expected existing row %d, got %d (fresh=%v)", rowID, again, fresh)
	}

	// The restored graph must be searchable, not just counted.
	hits, err := reopened.Search(ctx, canonical.Vector, 1)
	if err != nil {
		t.Fatalf("Search after reopen failed: %v", err)
	}
	if len(hits) != 1 || hits[0].RowID != rowID {
		t.Fatalf("unexpected hits after reopen: %+v", hits)
	}
}

func TestRebuildWithoutSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	index, err := ann.Open(ctx, cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	target := seedVector(t, cfg.Embedding.Dimension, 9)
	if _, _, err := index.Add(ctx, target); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := index.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Losing the snapshot forces a replay from the flat file.
	if err := os.Remove(cfg.GraphPath()); err != nil {
		t.Fatalf("remove snapshot: %v", err)
	}

	rebuilt, err := ann.Open(ctx, cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer rebuilt.Close()
	if rebuilt.Count() != 1 {
		t.Fatalf("count after rebuild: got %d, want 1", rebuilt.Count())
	}
	hits, err := rebuilt.Search(ctx, target.Vector, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].RowID != 0 {
		t.Fatalf("unexpected hits after rebuild: %+v", hits)
	}
}
