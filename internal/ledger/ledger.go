// Package ledger keeps payment-source balances in agreement with the
// append-only transaction log.
//
// Every balance change is a two-step saga: the balance is adjusted first,
// then the transaction row is appended. If the append fails the exact
// inverse adjustment is issued before the failure is reported: the same
// effect with the reversal flag set. Flipping the effect as well would cancel
// the reversal and apply the change a second time. A crash
// between the two steps leaves the source out of step with its log until
// Reconcile recomputes it; that window is accepted, not prevented.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/finance-ledger/internal/ledgererror"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/notify"
	"fjacquet/finance-ledger/internal/store"
	"fjacquet/finance-ledger/internal/validation"
)

// Settings holds the categories the engine assigns itself and whether
// writes are serialised per source.
type Settings struct {
	TransferCategory string
	OpeningCategory  string
	SerializeWrites  bool
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		TransferCategory: models.CategoryTransfer,
		OpeningCategory:  models.CategoryOpeningBalance,
		SerializeWrites:  true,
	}
}

// Ledger records transactions against payment sources.
type Ledger struct {
	store    store.RecordStore
	mutator  *BalanceMutator
	notifier notify.Notifier
	logger   logging.Logger
	lanes    *Lanes
	settings Settings
	now      func() time.Time
}

// New wires a ledger over the record store.
func New(s store.RecordStore, notifier notify.Notifier, logger logging.Logger, settings Settings) *Ledger {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	defaults := DefaultSettings()
	if settings.TransferCategory == "" {
		settings.TransferCategory = defaults.TransferCategory
	}
	if settings.OpeningCategory == "" {
		settings.OpeningCategory = defaults.OpeningCategory
	}
	var lanes *Lanes
	if settings.SerializeWrites {
		lanes = NewLanes()
	}
	return &Ledger{
		store:    s,
		mutator:  NewBalanceMutator(s, logger),
		notifier: notifier,
		logger:   logger,
		lanes:    lanes,
		settings: settings,
		now:      time.Now,
	}
}

// Mutator exposes the balance mutator the ledger drives.
func (l *Ledger) Mutator() *BalanceMutator { return l.mutator }

// Lanes exposes the ledger's serialisation lanes so collaborators can order
// their own work with it. It is nil when serialisation is off.
func (l *Ledger) Lanes() *Lanes { return l.lanes }

func (l *Ledger) Settings() Settings { return l.settings }

// Entry is a request to record one income or expense.
type Entry struct {
	Type models.TransactionType
	// Direction is required for transfer-typed entries and derived otherwise.
	Direction   models.Direction
	Amount      string
	Category    string
	Source      string
	Description string
	// Date defaults to now.
	Date   time.Time
	UserID string
	// DueID links a repayment to its due.
	DueID string
}

// effect resolves the balance effect. An explicit direction on an income or
// expense entry must agree with its type.
func (e Entry) effect() (models.TransactionType, error) {
	if e.Direction == "" {
		return e.Type, nil
	}
	effect := e.Direction.Effect()
	if e.Type != models.TypeTransfer && effect != e.Type {
		return "", &ledgererror.ValidationError{
			Field: "direction", Value: string(e.Direction), Kind: ledgererror.ErrInvalidType,
		}
	}
	return effect, nil
}

// Record validates the entry, adjusts the source balance and appends the
// transaction, compensating the adjustment if the append fails.
func (l *Ledger) Record(ctx context.Context, e Entry) (models.Transaction, error) {
	tx, err := l.record(ctx, e, func(tx models.Transaction) store.Record { return tx.Record() })
	l.report(ctx, "record", tx, err)
	return tx, err
}

// RecordDue records the due's opening transaction through the same protocol
// and writes the due's extension fields with it.
func (l *Ledger) RecordDue(ctx context.Context, e Entry, due models.DueTransaction) (models.DueTransaction, error) {
	tx, err := l.record(ctx, e, func(tx models.Transaction) store.Record {
		due.Transaction = tx
		return due.Record()
	})
	due.Transaction = tx
	due.IsDue = true
	l.report(ctx, "record due", tx, err)
	return due, err
}

func (l *Ledger) record(ctx context.Context, e Entry, encode func(models.Transaction) store.Record) (models.Transaction, error) {
	amount, err := validation.Request{
		Type:     e.Type,
		Amount:   e.Amount,
		Category: e.Category,
		SourceID: e.Source,
	}.Validate()
	if err != nil {
		return models.Transaction{}, err
	}
	effect, err := e.effect()
	if err != nil {
		return models.Transaction{}, err
	}
	if effect != models.TypeIncome && effect != models.TypeExpense {
		return models.Transaction{}, &ledgererror.ValidationError{
			Field: "direction", Value: string(e.Direction), Kind: ledgererror.ErrInvalidType,
		}
	}

	category := e.Category
	if e.Type == models.TypeTransfer && category == "" {
		category = l.settings.TransferCategory
	}
	date := e.Date
	if date.IsZero() {
		date = l.now()
	}
	tx, err := models.NewTransactionBuilder().
		WithType(e.Type).
		WithDirection(models.DirectionOf(effect)).
		WithAmount(amount).
		WithSource(e.Source).
		WithCategory(category).
		WithDescription(validation.SanitizeText(e.Description)).
		WithDate(date).
		WithUser(e.UserID).
		WithDueID(e.DueID).
		Build()
	if err != nil {
		return models.Transaction{}, &ledgererror.ValidationError{Field: "entry", Kind: fmt.Errorf("%w: %v", ledgererror.ErrInvalidType, err)}
	}

	unlock := l.lanes.Lock(tx.BaseSourceID)
	defer unlock()

	src, err := l.source(ctx, tx.BaseSourceID)
	if err != nil {
		return tx, &ledgererror.TransactionError{Op: "record", SourceID: tx.BaseSourceID, Cause: err}
	}
	if err := validation.CheckSufficientFunds(src, amount, effect); err != nil {
		return tx, err
	}
	return l.commit(ctx, tx, encode(tx))
}

// commit runs the two-step protocol for an already validated entry. The
// caller holds the lane of tx.BaseSourceID.
func (l *Ledger) commit(ctx context.Context, tx models.Transaction, rec store.Record) (models.Transaction, error) {
	effect := tx.Effect()
	if _, err := l.mutator.Adjust(ctx, tx.BaseSourceID, tx.Amount, effect, false); err != nil {
		return tx, &ledgererror.TransactionError{Op: "record", SourceID: tx.BaseSourceID, Cause: err}
	}

	id, err := l.store.Insert(ctx, store.CollectionTransactions, rec)
	if err != nil {
		cause := fmt.Errorf("%w: append transaction: %w", ledgererror.ErrPersistence, err)
		_, compErr := l.mutator.Adjust(ctx, tx.BaseSourceID, tx.Amount, effect, true)
		log := l.logger.WithFields(
			logging.F(logging.FieldSourceID, tx.BaseSourceID),
			logging.F(logging.FieldAmount, tx.Amount.String()),
			logging.F(logging.FieldType, string(effect)))
		if compErr != nil {
			log.WithError(compErr).Error("Compensation failed, source needs reconciliation")
		} else {
			log.WithError(err).Warn("Transaction append failed, balance adjustment reversed")
		}
		return tx, &ledgererror.TransactionError{
			Op:              "record",
			SourceID:        tx.BaseSourceID,
			Cause:           cause,
			CompensationErr: compErr,
		}
	}

	tx.ID = id
	l.logger.Info("Transaction recorded",
		logging.F(logging.FieldTransactionID, id),
		logging.F(logging.FieldSourceID, tx.BaseSourceID),
		logging.F(logging.FieldType, string(tx.Type)),
		logging.F(logging.FieldAmount, tx.Amount.String()),
		logging.F(logging.FieldCategory, tx.Category))
	return tx, nil
}

// Remove deletes a transaction together with its balance effect. If the
// delete fails the balance is restored. Dues, their repayments and transfer
// legs are rejected with ErrLinkedEntry; the dues tracker takes back
// repayments.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	err := l.removeStandalone(ctx, id)
	if err != nil {
		l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
		return err
	}
	l.notifier.Notify(ctx, notify.KindSuccess, "Transaction deleted")
	return nil
}

func (l *Ledger) removeStandalone(ctx context.Context, id string) error {
	tx, err := l.Transaction(ctx, id)
	if err != nil {
		return err
	}
	if tx.Linked() {
		l.logger.Warn("Refusing to remove linked entry",
			logging.F(logging.FieldTransactionID, id),
			logging.F("due_id", tx.DueID),
			logging.F("transfer_id", tx.TransferID))
		return fmt.Errorf("transaction %s: %w", id, ledgererror.ErrLinkedEntry)
	}
	return l.remove(ctx, tx)
}

// Revert removes an entry without the link check or a user notification.
// Collaborators use it to undo an entry they recorded as part of a larger
// operation.
func (l *Ledger) Revert(ctx context.Context, id string) (models.Transaction, error) {
	tx, err := l.Transaction(ctx, id)
	if err != nil {
		return tx, err
	}
	return tx, l.remove(ctx, tx)
}

// Restore re-applies a reverted entry under its original id. It skips the
// funds check since it puts back a state the source already held.
func (l *Ledger) Restore(ctx context.Context, tx models.Transaction) error {
	unlock := l.lanes.Lock(tx.BaseSourceID)
	defer unlock()

	_, err := l.commit(ctx, tx, tx.Record())
	return err
}

func (l *Ledger) remove(ctx context.Context, tx models.Transaction) error {
	unlock := l.lanes.Lock(tx.BaseSourceID)
	defer unlock()

	effect := tx.Effect()
	if _, err := l.mutator.Adjust(ctx, tx.BaseSourceID, tx.Amount, effect, true); err != nil {
		return &ledgererror.TransactionError{Op: "remove", SourceID: tx.BaseSourceID, Cause: err}
	}
	if err := l.store.Delete(ctx, store.CollectionTransactions, tx.ID); err != nil {
		_, compErr := l.mutator.Adjust(ctx, tx.BaseSourceID, tx.Amount, effect, false)
		if compErr != nil {
			l.logger.WithError(compErr).Error("Compensation failed, source needs reconciliation",
				logging.F(logging.FieldSourceID, tx.BaseSourceID),
				logging.F(logging.FieldTransactionID, tx.ID))
		}
		return &ledgererror.TransactionError{
			Op:              "remove",
			SourceID:        tx.BaseSourceID,
			Cause:           fmt.Errorf("%w: delete transaction: %w", ledgererror.ErrPersistence, err),
			CompensationErr: compErr,
		}
	}

	l.logger.Info("Transaction removed",
		logging.F(logging.FieldTransactionID, tx.ID),
		logging.F(logging.FieldSourceID, tx.BaseSourceID))
	return nil
}

// Transaction fetches one transaction.
func (l *Ledger) Transaction(ctx context.Context, id string) (models.Transaction, error) {
	rec, err := l.store.FetchOne(ctx, store.CollectionTransactions, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", id, ledgererror.ErrTransactionNotFound)
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err)
	}
	return models.DecodeTransaction(rec)
}

// Query narrows a transaction listing. Empty fields match everything.
type Query struct {
	UserID   string
	SourceID string
}

func (q Query) filter() store.Filter {
	f := store.Filter{}
	if q.UserID != "" {
		f["user_id"] = q.UserID
	}
	if q.SourceID != "" {
		f["base_source_id"] = models.BaseSourceID(q.SourceID)
	}
	return f
}

// Transactions lists transactions in recording order.
func (l *Ledger) Transactions(ctx context.Context, q Query) ([]models.Transaction, error) {
	recs, err := l.store.List(ctx, store.CollectionTransactions, q.filter())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err)
	}
	out := make([]models.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := models.DecodeTransaction(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// report turns the outcome of a user operation into one notification.
func (l *Ledger) report(ctx context.Context, op string, tx models.Transaction, err error) {
	if err == nil {
		l.notifier.Notify(ctx, notify.KindSuccess,
			fmt.Sprintf("%s of %s recorded", label(tx), tx.Amount.StringFixed(2)))
		return
	}
	var verr *ledgererror.ValidationError
	if errors.As(err, &verr) {
		l.logger.Warn("Request rejected",
			logging.F(logging.FieldOperation, op),
			logging.F("field", verr.Field),
			logging.F(logging.FieldReason, verr.Kind.Error()))
	} else {
		l.logger.WithError(err).Error("Transaction failed",
			logging.F(logging.FieldOperation, op),
			logging.F(logging.FieldSourceID, tx.BaseSourceID))
	}
	l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
}

func label(tx models.Transaction) string {
	switch tx.Effect() {
	case models.TypeExpense:
		return "Expense"
	default:
		return "Income"
	}
}
