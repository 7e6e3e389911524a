package ledger

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/finance-ledger/internal/ledgererror"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// BalanceMutator moves currency on one payment source. It knows nothing
// about transactions or transfers.
type BalanceMutator struct {
	store  store.RecordStore
	logger logging.Logger
}

func NewBalanceMutator(s store.RecordStore, logger logging.Logger) *BalanceMutator {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &BalanceMutator{store: s, logger: logger}
}

// Delta is the signed change an adjustment applies: +amount for income,
// -amount for expense, sign inverted for a reversal.
func Delta(amount decimal.Decimal, effect models.TransactionType, reversal bool) decimal.Decimal {
	delta := amount
	if effect == models.TypeExpense {
		delta = delta.Neg()
	}
	if reversal {
		delta = delta.Neg()
	}
	return delta
}

// Adjust applies the delta for amount and effect to the source balance and
// returns the new balance. effect must be income or expense.
//
// Stores implementing store.Incrementer apply the delta in one store-side
// operation; others get a fetch followed by a single update. No retry is
// attempted either way.
func (m *BalanceMutator) Adjust(ctx context.Context, sourceID string, amount decimal.Decimal, effect models.TransactionType, reversal bool) (decimal.Decimal, error) {
	op := "adjust"
	if reversal {
		op = "reverse"
	}
	if effect != models.TypeIncome && effect != models.TypeExpense {
		return decimal.Zero, &ledgererror.MutationError{SourceID: sourceID, Op: op, Err: ledgererror.ErrInvalidType}
	}
	delta := Delta(amount, effect, reversal)

	var balance decimal.Decimal
	if inc, ok := m.store.(store.Incrementer); ok {
		next, err := inc.Increment(ctx, store.CollectionPaymentSources, sourceID, "amount", delta)
		if err != nil {
			return decimal.Zero, m.fail(sourceID, op, err)
		}
		balance = next
	} else {
		current, err := m.Balance(ctx, sourceID)
		if err != nil {
			return decimal.Zero, err
		}
		balance = current.Add(delta)
		if err := m.store.Update(ctx, store.CollectionPaymentSources, sourceID, store.Record{"amount": balance.String()}); err != nil {
			return decimal.Zero, m.fail(sourceID, op, err)
		}
	}

	m.logger.Debug("Balance adjusted",
		logging.F(logging.FieldSourceID, sourceID),
		logging.F(logging.FieldOperation, op),
		logging.F(logging.FieldAmount, delta.String()),
		logging.F("balance", balance.String()))
	return balance, nil
}

// Balance fetches the stored balance of a source.
func (m *BalanceMutator) Balance(ctx context.Context, sourceID string) (decimal.Decimal, error) {
	rec, err := m.store.FetchOne(ctx, store.CollectionPaymentSources, sourceID)
	if err != nil {
		return decimal.Zero, m.fail(sourceID, "fetch", err)
	}
	src, err := models.DecodeSource(rec)
	if err != nil {
		return decimal.Zero, m.fail(sourceID, "fetch", err)
	}
	return src.Amount, nil
}

// Set overwrites the stored balance. Only reconciliation uses it.
func (m *BalanceMutator) Set(ctx context.Context, sourceID string, balance decimal.Decimal) error {
	if err := m.store.Update(ctx, store.CollectionPaymentSources, sourceID, store.Record{"amount": balance.String()}); err != nil {
		return m.fail(sourceID, "set", err)
	}
	return nil
}

func (m *BalanceMutator) fail(sourceID, op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &ledgererror.MutationError{SourceID: sourceID, Op: op, Err: ledgererror.ErrSourceNotFound}
	}
	return &ledgererror.MutationError{
		SourceID: sourceID,
		Op:       op,
		Err:      fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err),
	}
}
