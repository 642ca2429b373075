package ingest_test

import (
	"context"
	"strings"
	"testing"

	"bitharbor/internal/ingest"
	"bitharbor/internal/logging"
	"bitharbor/internal/media"
	"bitharbor/internal/store"
	"bitharbor/internal/testsupport"
	"bitharbor/internal/vector"
)

func fakeDigest(seed string) string {
	return strings.Repeat(seed, 64/len(seed))
}

func TestReconcileCompletedIntent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	digest := fakeDigest("a")
	testsupport.MustSeedMediaParents(t, st, fakeDigest("b"), digest, 0)
	if err := st.CommitMedia(ctx, store.MediaEntity{
		MediaID:         "media-1",
		Type:            media.TypeMovie,
		ContentHash:     fakeDigest("b"),
		VectorDigest:    digest,
		SourceType:      media.SourceHome,
		EmbeddingSource: media.EmbedFromContent,
	}, media.Metadata{Title: "Committed"}, nil); err != nil {
		t.Fatalf("CommitMedia failed: %v", err)
	}
	if _, err := st.AddIntent(ctx, store.Intent{
		MediaID:      "media-1",
		ContentHash:  fakeDigest("b"),
		VectorDigest: digest,
	}); err != nil {
		t.Fatalf("AddIntent failed: %v", err)
	}

	report, err := ingest.Reconcile(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.Completed != 1 || report.Pruned != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	intents, err := st.ListIntents(ctx)
	if err != nil {
		t.Fatalf("ListIntents failed: %v", err)
	}
	if len(intents) != 0 {
		t.Fatalf("intent log not cleared: %d entries", len(intents))
	}
}

func TestReconcilePrunesOrphanedRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	index := testsupport.MustOpenIndex(t, cfg, st)
	ctx := context.Background()

	// Simulate a crash after the index mutation: the row and mapping are
	// durable, the intent is pending, and no entity ever committed.
	raw := make([]float32, cfg.Embedding.Dimension)
	for i := range raw {
		raw[i] = float32(i + 1)
	}
	canonical, err := vector.NewCanonicalizer(cfg.Embedding.Dimension).Canonicalize(raw)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	rowID, _, err := index.Add(ctx, canonical)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := st.AddIntent(ctx, store.Intent{
		MediaID:      "media-crashed",
		ContentHash:  fakeDigest("c"),
		VectorDigest: canonical.Digest,
	}); err != nil {
		t.Fatalf("AddIntent failed: %v", err)
	}

	report, err := ingest.Reconcile(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.Pruned != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	tombstones, err := st.ListTombstones(ctx)
	if err != nil {
		t.Fatalf("ListTombstones failed: %v", err)
	}
	if _, dead := tombstones[rowID]; !dead {
		t.Fatalf("orphaned row %d not tombstoned", rowID)
	}
}

func TestReconcileClearsUnmappedIntent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// The vector mapping never became durable, so there is nothing to
	// repair beyond dropping the intent.
	if _, err := st.AddIntent(ctx, store.Intent{
		MediaID:      "media-lost",
		ContentHash:  fakeDigest("d"),
		VectorDigest: fakeDigest("e"),
	}); err != nil {
		t.Fatalf("AddIntent failed: %v", err)
	}

	report, err := ingest.Reconcile(ctx, st, logging.NewNop())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.Cleared != 1 || report.Pruned != 0 || report.Completed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
