package ledger

import (
	"context"
	"runtime"
	"sync"

	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Reconciliation compares a source's stored balance with the fold of its
// transaction log.
type Reconciliation struct {
	SourceID  string
	Stored    decimal.Decimal
	Computed  decimal.Decimal
	Entries   int
	Corrected bool
}

// Drift is stored minus computed.
func (r Reconciliation) Drift() decimal.Decimal {
	return r.Stored.Sub(r.Computed)
}

// InSync reports whether the stored balance matches the log.
func (r Reconciliation) InSync() bool {
	return r.Drift().IsZero()
}

// Reconcile folds the source's transactions in recording order and, when
// fix is set, overwrites a drifted balance with the computed one.
func (l *Ledger) Reconcile(ctx context.Context, sourceID string, fix bool) (Reconciliation, error) {
	base := models.BaseSourceID(sourceID)
	unlock := l.lanes.Lock(base)
	defer unlock()

	src, err := l.source(ctx, base)
	if err != nil {
		return Reconciliation{}, err
	}
	txs, err := l.Transactions(ctx, Query{SourceID: base})
	if err != nil {
		return Reconciliation{}, err
	}

	computed := decimal.Zero
	for _, tx := range txs {
		computed = computed.Add(tx.SignedAmount())
	}
	rep := Reconciliation{SourceID: base, Stored: src.Amount, Computed: computed, Entries: len(txs)}
	if rep.InSync() {
		l.logger.Debug("Source balance in sync", logging.F(logging.FieldSourceID, base))
		return rep, nil
	}

	l.logger.Warn("Source balance drifted from transaction log",
		logging.F(logging.FieldSourceID, base),
		logging.F("stored", rep.Stored.String()),
		logging.F("computed", rep.Computed.String()))
	if fix {
		if err := l.mutator.Set(ctx, base, computed); err != nil {
			return rep, err
		}
		rep.Corrected = true
		l.logger.Info("Source balance corrected", logging.F(logging.FieldSourceID, base))
	}
	return rep, nil
}

// ReconcileAll reconciles every source of a user using a pool of workers.
// Results come back in source listing order; the first error is returned
// alongside whatever reports completed.
func (l *Ledger) ReconcileAll(ctx context.Context, userID string, fix bool) ([]Reconciliation, error) {
	sources, err := l.Sources(ctx, userID)
	if err != nil {
		return nil, err
	}

	workers := runtime.NumCPU()
	if workers > len(sources) {
		workers = len(sources)
	}
	jobs := make(chan int, workers)
	results := make(chan indexedReconciliation, len(sources))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rep, err := l.Reconcile(ctx, sources[idx].ID, fix)
				results <- indexedReconciliation{index: idx, rep: rep, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range sources {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	reports := make([]Reconciliation, len(sources))
	done := make([]bool, len(sources))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		reports[r.index] = r.rep
		done[r.index] = true
	}

	out := make([]Reconciliation, 0, len(sources))
	for i, rep := range reports {
		if done[i] {
			out = append(out, rep)
		}
	}
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	l.logger.Info("Reconciliation finished",
		logging.F(logging.FieldUserID, userID),
		logging.F(logging.FieldCount, len(out)))
	return out, firstErr
}

// indexedReconciliation preserves the listing order of sources.
type indexedReconciliation struct {
	index int
	rep   Reconciliation
	err   error
}
