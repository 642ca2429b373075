package ann

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"github.com/hupe1980/vecgo/hnsw"
	"github.com/hupe1980/vecgo/metric"

	"bitharbor/internal/config"
	"bitharbor/internal/services"
	"bitharbor/internal/store"
	"bitharbor/internal/vector"
)

// Hit is one reranked search result: a dense row and its exact similarity
// to the query. Higher scores are closer.
type Hit struct {
	RowID int64
	Score float32
}

// The snapshot file is a gob stream of the absorbed row count followed by
// the graph itself. The graph is always decoded into a freshly constructed
// instance: gob drops func-typed fields, so the distance function must
// already be in place before decoding.

// Service owns the in-memory HNSW graph, the flat vector file behind it,
// and the row/digest mapping. All mutation goes through a single writer;
// cross-process exclusivity is enforced with a directory lock.
type Service struct {
	mu        sync.RWMutex
	store     *store.Store
	flat      *Flat
	graph     *hnsw.HNSW
	indexed   int64
	dims      int
	efSearch  int
	refine    int
	graphPath string
	lock      *flock.Flock
	logger    *slog.Logger
}

// Open acquires the index lock, opens the flat vector file, and restores
// the graph. Recovery order follows durability: flat rows without a digest
// mapping are truncated away, then a stale or missing graph snapshot is
// rebuilt by replaying the flat file.
func Open(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lock := flock.New(filepath.Join(cfg.Paths.IndexDir, "index.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrResource, "index", "open", "index directory is in use by another process", nil)
	}

	flat, err := OpenFlat(cfg.VectorsPath(), cfg.Embedding.Dimension)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	svc := &Service{
		store:     st,
		flat:      flat,
		dims:      cfg.Embedding.Dimension,
		efSearch:  cfg.ANN.EFSearch,
		refine:    cfg.ANN.RefineCandidates,
		graphPath: cfg.GraphPath(),
		lock:      lock,
		logger:    logger,
	}

	if err := svc.recover(ctx, cfg.ANN); err != nil {
		flat.Close()
		lock.Unlock()
		return nil, err
	}
	return svc, nil
}

func (s *Service) recover(ctx context.Context, cfg config.ANN) error {
	mapped, err := s.store.CountVectorRecords(ctx)
	if err != nil {
		return err
	}
	if s.flat.Count() > mapped {
		s.logger.Warn("trimming unmapped flat rows",
			"flat_rows", s.flat.Count(),
			"mapped_rows", mapped)
		if err := s.flat.Truncate(mapped); err != nil {
			return err
		}
	}

	graph := newGraph(s.dims, cfg)
	rows, loaded, err := loadSnapshot(s.graphPath, graph)
	if err != nil {
		s.logger.Warn("graph snapshot unreadable, rebuilding", "error", err)
		graph = newGraph(s.dims, cfg)
		rows, loaded = 0, false
	}
	if loaded && rows > s.flat.Count() {
		s.logger.Warn("graph snapshot ahead of flat file, rebuilding",
			"snapshot_rows", rows,
			"flat_rows", s.flat.Count())
		graph = newGraph(s.dims, cfg)
		rows = 0
	}
	s.graph = graph
	s.indexed = rows

	replayed := s.flat.Count() - s.indexed
	for s.indexed < s.flat.Count() {
		vec, err := s.flat.ReadRow(s.indexed)
		if err != nil {
			return err
		}
		if err := s.insertRow(vec, s.indexed); err != nil {
			return err
		}
	}
	if replayed > 0 {
		s.logger.Info("replayed flat rows into graph", "rows", replayed)
	}
	return nil
}

func newGraph(dims int, cfg config.ANN) *hnsw.HNSW {
	return hnsw.New(dims, func(o *hnsw.Options) {
		o.M = cfg.M
		o.EF = cfg.EFConstruction
		o.DistanceFunc = metric.SquaredL2
	})
}

// insertRow pushes one vector into the graph and checks the identifier
// contract: the graph assigns IDs sequentially from 1 (node 0 is its
// internal entry point), so graph ID is always row ID plus one.
func (s *Service) insertRow(vec []float32, rowID int64) error {
	id, err := s.graph.Insert(vec)
	if err != nil {
		return fmt.Errorf("graph insert row %d: %w", rowID, err)
	}
	if int64(id) != rowID+1 {
		return fmt.Errorf("graph id %d does not match row %d", id, rowID)
	}
	s.indexed = rowID + 1
	return nil
}

// Add indexes a canonical vector and returns its row identifier. Adding a
// digest that is already mapped returns the existing row with fresh=false
// and touches nothing. Durability order is flat file, then graph, then
// mapping; recovery repairs any prefix of that sequence.
func (s *Service) Add(ctx context.Context, canonical vector.Canonical) (rowID int64, fresh bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetVectorRecord(ctx, canonical.Digest)
	if err != nil {
		return 0, false, err
	}
	if existing != nil {
		return existing.RowID, false, nil
	}

	rowID, err = s.flat.Append(canonical.Vector)
	if err != nil {
		return 0, false, services.Wrap(services.ErrResource, "index", "append", "write flat vector row", err)
	}
	if err := s.insertRow(canonical.Vector, rowID); err != nil {
		return 0, false, err
	}
	if err := s.store.InsertVectorRecord(ctx, store.VectorRecord{
		VectorDigest: canonical.Digest,
		RowID:        rowID,
		Dims:         s.dims,
	}); err != nil {
		return 0, false, err
	}
	return rowID, true, nil
}

// Search returns the k best rows for a query vector. Graph traversal
// over-fetches refinement candidates, then every candidate is reranked by
// exact dot product against its flat-file row. Ties break toward the lower
// row identifier; tombstoned rows never surface.
func (s *Service) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != s.dims {
		return nil, &vector.ErrDimensionMismatch{Expected: s.dims, Actual: len(query)}
	}
	if k <= 0 {
		return nil, services.Wrap(services.ErrValidation, "search", "knn", "k must be positive", nil)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.indexed == 0 {
		return nil, nil
	}

	tombstones, err := s.store.ListTombstones(ctx)
	if err != nil {
		return nil, err
	}

	normalized := vector.Normalize(query)
	candidates := k
	if s.refine > candidates {
		candidates = s.refine
	}
	ef := s.efSearch
	if ef < candidates {
		ef = candidates
	}

	queue, err := s.graph.KNNSearch(normalized, candidates, ef)
	if err != nil {
		return nil, fmt.Errorf("graph search: %w", err)
	}

	hits := make([]Hit, 0, len(queue.Items))
	for _, item := range queue.Items {
		if item.Node == 0 {
			continue
		}
		rowID := int64(item.Node) - 1
		if _, dead := tombstones[rowID]; dead {
			continue
		}
		row, err := s.flat.ReadRow(rowID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{RowID: rowID, Score: dot(normalized, row)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].RowID < hits[j].RowID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of indexed rows.
func (s *Service) Count() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexed
}

// Flush writes the graph snapshot atomically next to the flat file.
func (s *Service) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSnapshot()
}

func (s *Service) writeSnapshot() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.graphPath), ".graph-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := gob.NewEncoder(tmp)
	if err := encoder.Encode(s.indexed); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot row count: %w", err)
	}
	if err := encoder.Encode(s.graph); err != nil {
		tmp.Close()
		return fmt.Errorf("encode graph snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync graph snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close graph snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.graphPath); err != nil {
		return fmt.Errorf("publish graph snapshot: %w", err)
	}
	return nil
}

func loadSnapshot(path string, graph *hnsw.HNSW) (int64, bool, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("open graph snapshot: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	var rows int64
	if err := decoder.Decode(&rows); err != nil {
		return 0, false, fmt.Errorf("decode snapshot row count: %w", err)
	}
	if err := decoder.Decode(graph); err != nil {
		return 0, false, fmt.Errorf("decode graph snapshot: %w", err)
	}
	return rows, true, nil
}

// Close flushes the graph snapshot, closes the flat file, and releases the
// index lock.
func (s *Service) Close() error {
	if err := s.Flush(); err != nil {
		s.flat.Close()
		s.lock.Unlock()
		return err
	}
	closeErr := s.flat.Close()
	if err := s.lock.Unlock(); err != nil && closeErr == nil {
		closeErr = err
	}
	return closeErr
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
