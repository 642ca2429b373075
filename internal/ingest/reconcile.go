package ingest

import (
	"context"
	"log/slog"

	"bitharbor/internal/store"
)

// ReconcileReport summarizes one startup reconciliation pass.
type ReconcileReport struct {
	Completed int
	Pruned    int
	Cleared   int
}

// Reconcile scans the intent log for ingestions that crashed between the
// index mutation and the relational commit. An intent whose entity landed
// is cleared; an intent whose index row has no relational owner gets the
// row tombstoned so search never surfaces it. Runs before the first
// ingestion or search of a process.
func Reconcile(ctx context.Context, st *store.Store, logger *slog.Logger) (ReconcileReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report ReconcileReport

	intents, err := st.ListIntents(ctx)
	if err != nil {
		return report, err
	}
	for _, intent := range intents {
		outcome, err := reconcileIntent(ctx, st, intent)
		if err != nil {
			return report, err
		}
		switch outcome {
		case intentCompleted:
			report.Completed++
		case intentPruned:
			logger.Warn("pruned orphaned index row",
				"media_id", intent.MediaID,
				"vector_digest", intent.VectorDigest)
			report.Pruned++
		default:
			report.Cleared++
		}
		if err := st.DeleteIntent(ctx, intent.ID); err != nil {
			return report, err
		}
	}

	if len(intents) > 0 {
		logger.Info("reconciliation complete",
			"completed", report.Completed,
			"pruned", report.Pruned,
			"cleared", report.Cleared)
	}
	return report, nil
}

type intentOutcome int

const (
	intentCleared intentOutcome = iota
	intentCompleted
	intentPruned
)

func reconcileIntent(ctx context.Context, st *store.Store, intent store.Intent) (intentOutcome, error) {
	entity, err := st.GetMediaByID(ctx, intent.MediaID)
	if err != nil {
		return intentCleared, err
	}
	if entity != nil && entity.VectorDigest == intent.VectorDigest {
		// Crash landed after the relational commit; nothing to repair.
		return intentCompleted, nil
	}

	record, err := st.GetVectorRecord(ctx, intent.VectorDigest)
	if err != nil {
		return intentCleared, err
	}
	if record == nil {
		// The mapping never became durable. If a flat row was appended it
		// has no mapping either and gets trimmed when the index opens.
		return intentCleared, nil
	}

	// The index row is durable. Another committed entity may own the same
	// digest (duplicate embedding); only a row with zero owners is pruned.
	owners, err := st.CountMediaByVectorDigest(ctx, intent.VectorDigest)
	if err != nil {
		return intentCleared, err
	}
	if owners > 0 {
		return intentCleared, nil
	}
	if err := st.AddTombstone(ctx, record.RowID, "orphaned by interrupted ingestion"); err != nil {
		return intentCleared, err
	}
	return intentPruned, nil
}
