package testsupport

import (
	"context"
	"testing"

	"bitharbor/internal/ann"
	"bitharbor/internal/config"
	"bitharbor/internal/logging"
	"bitharbor/internal/media"
	"bitharbor/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustSeedMediaParents inserts the file record and vector mapping a media
// entity references, satisfying the store's foreign keys so tests can call
// CommitMedia directly.
func MustSeedMediaParents(t testing.TB, st *store.Store, contentHash, vectorDigest string, rowID int64) {
	t.Helper()

	ctx := context.Background()
	if err := st.InsertFileRecord(ctx, store.FileRecord{
		ContentHash: contentHash,
		Modality:    media.ModalityVideo,
		StoredPath:  "/pool/video/" + contentHash[:2] + "/file.mkv",
		SizeBytes:   1,
	}); err != nil {
		t.Fatalf("InsertFileRecord: %v", err)
	}
	if err := st.InsertVectorRecord(ctx, store.VectorRecord{
		VectorDigest: vectorDigest,
		RowID:        rowID,
		Dims:         8,
	}); err != nil {
		t.Fatalf("InsertVectorRecord: %v", err)
	}
}

// MustOpenIndex opens an ann.Service for tests and registers cleanup.
func MustOpenIndex(t testing.TB, cfg *config.Config, st *store.Store) *ann.Service {
	t.Helper()

	index, err := ann.Open(context.Background(), cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("ann.Open: %v", err)
	}
	t.Cleanup(func() {
		index.Close()
	})
	return index
}
