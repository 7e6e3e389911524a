// Package dues tracks money lent and borrowed through partial payment, full
// settlement or excuse. A due is a transaction carrying extra fields; its
// status is derived from them and every transition appends to an
// append-only audit trail.
package dues

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/finance-ledger/internal/ledger"
	"fjacquet/finance-ledger/internal/ledgererror"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/notify"
	"fjacquet/finance-ledger/internal/store"
	"fjacquet/finance-ledger/internal/validation"

	"github.com/shopspring/decimal"
)

// Kind says which side of the debt the user is on.
type Kind string

const (
	// Lent money leaves the user's source; repayments flow back in.
	Lent Kind = "lent"
	// Borrowed money arrives in the user's source; repayments flow out.
	Borrowed Kind = "borrowed"
)

// Effect is the balance effect of opening a due of this kind.
func (k Kind) Effect() models.TransactionType {
	if k == Borrowed {
		return models.TypeIncome
	}
	return models.TypeExpense
}

// Audit actions besides status changes.
const (
	ActionCreated = "Due created"
)

// Settings tunes the tracker.
type Settings struct {
	SettlementCategory string
	ReminderInterval   time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		SettlementCategory: models.CategoryDuesSettlement,
		ReminderInterval:   7 * 24 * time.Hour,
	}
}

// Tracker runs due transitions. Money movements go through the ledger's
// record protocol; only the due's own fields are written directly.
type Tracker struct {
	ledger   *ledger.Ledger
	store    store.RecordStore
	notifier notify.Notifier
	logger   logging.Logger
	settings Settings
	now      func() time.Time
}

func NewTracker(l *ledger.Ledger, s store.RecordStore, notifier notify.Notifier, logger logging.Logger, settings Settings) *Tracker {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	defaults := DefaultSettings()
	if settings.SettlementCategory == "" {
		settings.SettlementCategory = defaults.SettlementCategory
	}
	if settings.ReminderInterval <= 0 {
		settings.ReminderInterval = defaults.ReminderInterval
	}
	return &Tracker{
		ledger:   l,
		store:    s,
		notifier: notifier,
		logger:   logger,
		settings: settings,
		now:      time.Now,
	}
}

// OpenRequest describes a new due.
type OpenRequest struct {
	Kind          Kind
	Amount        string
	SourceID      string
	Category      string
	Counterparty  string
	RepaymentDate time.Time
	Date          time.Time
	UserID        string
}

// Open records the due's money movement and creates it in the Open state.
func (t *Tracker) Open(ctx context.Context, req OpenRequest) (models.DueTransaction, error) {
	if req.Kind != Lent && req.Kind != Borrowed {
		err := &ledgererror.ValidationError{Field: "kind", Value: string(req.Kind), Kind: ledgererror.ErrInvalidType}
		t.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
		return models.DueTransaction{}, err
	}
	now := t.now()
	due := models.DueTransaction{
		RepaymentDate: req.RepaymentDate,
		AuditTrail:    []models.AuditEntry{{Action: ActionCreated, Timestamp: now}},
	}
	if amount, err := validation.CheckAmount(req.Amount); err == nil {
		due.RemainingBalance = amount
	}

	due, err := t.ledger.RecordDue(ctx, ledger.Entry{
		Type:        req.Kind.Effect(),
		Amount:      req.Amount,
		Category:    req.Category,
		Source:      req.SourceID,
		Description: req.Counterparty,
		Date:        req.Date,
		UserID:      req.UserID,
	}, due)
	if err != nil {
		return due, err
	}
	t.logger.Info("Due opened",
		logging.F(logging.FieldDueID, due.ID),
		logging.F(logging.FieldAmount, due.Amount.String()),
		logging.F("kind", string(req.Kind)))
	return due, nil
}

// Get fetches a due.
func (t *Tracker) Get(ctx context.Context, id string) (models.DueTransaction, error) {
	rec, err := t.store.FetchOne(ctx, store.CollectionTransactions, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.DueTransaction{}, &ledgererror.DueError{DueID: id, Op: "fetch", Err: ledgererror.ErrDueNotFound}
	}
	if err != nil {
		return models.DueTransaction{}, &ledgererror.DueError{DueID: id, Op: "fetch", Err: fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err)}
	}
	due, err := models.DecodeDue(rec)
	if err != nil {
		return models.DueTransaction{}, err
	}
	if !due.IsDue {
		return models.DueTransaction{}, &ledgererror.DueError{DueID: id, Op: "fetch", Err: ledgererror.ErrDueNotFound}
	}
	return due, nil
}

// List returns a user's dues in recording order. With openOnly set, settled
// and excused dues are skipped.
func (t *Tracker) List(ctx context.Context, userID string, openOnly bool) ([]models.DueTransaction, error) {
	filter := store.Filter{"is_due": "true"}
	if userID != "" {
		filter["user_id"] = userID
	}
	recs, err := t.store.List(ctx, store.CollectionTransactions, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err)
	}
	out := make([]models.DueTransaction, 0, len(recs))
	for _, rec := range recs {
		due, err := models.DecodeDue(rec)
		if err != nil {
			return nil, err
		}
		if openOnly && due.Status().Terminal() {
			continue
		}
		out = append(out, due)
	}
	return out, nil
}

// lock serialises transitions on one due.
func (t *Tracker) lock(id string) func() {
	return t.ledger.Lanes().Lock("due:" + id)
}

// load fetches the due and rejects terminal ones.
func (t *Tracker) load(ctx context.Context, id, op string) (models.DueTransaction, error) {
	due, err := t.Get(ctx, id)
	if err != nil {
		var derr *ledgererror.DueError
		if errors.As(err, &derr) {
			derr.Op = op
		}
		return due, err
	}
	if due.Status().Terminal() {
		return due, &ledgererror.DueError{DueID: id, Op: op, Err: ledgererror.ErrDueClosed}
	}
	return due, nil
}

func (t *Tracker) save(ctx context.Context, due models.DueTransaction) error {
	if err := t.store.Update(ctx, store.CollectionTransactions, due.ID, due.DueFields()); err != nil {
		return fmt.Errorf("%w: update due: %w", ledgererror.ErrPersistence, err)
	}
	return nil
}

func (t *Tracker) fail(ctx context.Context, err error) error {
	t.logger.WithError(err).Warn("Due transition rejected")
	t.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
	return err
}

// ApplyPartialPayment records a repayment of amount into intoSource (the
// due's own source when empty) and lowers the remaining balance. The
// payment is a ledger entry with the opposite effect of the due. If the due
// cannot be updated afterwards the payment is removed again.
func (t *Tracker) ApplyPartialPayment(ctx context.Context, id string, amount decimal.Decimal, intoSource string) (models.DueTransaction, error) {
	const op = "partial payment"
	unlock := t.lock(id)
	defer unlock()

	due, err := t.load(ctx, id, op)
	if err != nil {
		return due, t.fail(ctx, err)
	}
	if err := validation.CheckPositive(amount); err != nil {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: err})
	}
	if amount.GreaterThan(due.RemainingBalance) {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: &ledgererror.ValidationError{
			Field: "amount", Value: amount.String(), Kind: ledgererror.ErrInvalidAmount,
		}})
	}
	return t.pay(ctx, op, due, amount, intoSource)
}

// SettleFully pays off whatever remains.
func (t *Tracker) SettleFully(ctx context.Context, id string, intoSource string) (models.DueTransaction, error) {
	const op = "settle"
	unlock := t.lock(id)
	defer unlock()

	due, err := t.load(ctx, id, op)
	if err != nil {
		return due, t.fail(ctx, err)
	}
	return t.pay(ctx, op, due, due.RemainingBalance, intoSource)
}

func (t *Tracker) pay(ctx context.Context, op string, due models.DueTransaction, amount decimal.Decimal, intoSource string) (models.DueTransaction, error) {
	if intoSource == "" {
		intoSource = due.Source
	}
	description := "Repayment"
	if due.Description != "" {
		description += ": " + due.Description
	}
	payment, err := t.ledger.Record(ctx, ledger.Entry{
		Type:        due.Effect().Opposite(),
		Amount:      amount.String(),
		Category:    t.settings.SettlementCategory,
		Source:      intoSource,
		Description: description,
		UserID:      due.UserID,
		DueID:       due.ID,
	})
	if err != nil {
		return due, &ledgererror.DueError{DueID: due.ID, Op: op, Err: err}
	}

	from := due.Status()
	updated := due
	updated.RemainingBalance = due.RemainingBalance.Sub(amount)
	to := updated.Status()
	updated.PreviousStatus = from
	updated.AuditTrail = due.WithAudit(models.StatusChange(from, to), t.now())

	if err := t.save(ctx, updated); err != nil {
		_, removeErr := t.ledger.Revert(ctx, payment.ID)
		if removeErr != nil {
			t.logger.WithError(removeErr).Error("Failed to remove payment after due update failed",
				logging.F(logging.FieldDueID, due.ID),
				logging.F(logging.FieldTransactionID, payment.ID))
		}
		return due, t.fail(ctx, &ledgererror.DueError{DueID: due.ID, Op: op, Err: &ledgererror.TransactionError{
			Op:              op,
			SourceID:        payment.BaseSourceID,
			Cause:           err,
			CompensationErr: removeErr,
		}})
	}

	t.logger.Info("Due payment applied",
		logging.F(logging.FieldDueID, due.ID),
		logging.F(logging.FieldAmount, amount.String()),
		logging.F(logging.FieldStatus, string(to)))
	t.notifier.Notify(ctx, notify.KindSuccess, models.StatusChange(from, to))
	return updated, nil
}

// Payments lists the repayments recorded against a due, oldest first.
func (t *Tracker) Payments(ctx context.Context, id string) ([]models.Transaction, error) {
	recs, err := t.store.List(ctx, store.CollectionTransactions, store.Filter{"due_id": id})
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

// RemovePayment takes back a repayment of an open or partially paid due.
// The payment's balance effect is reverted, the amount is owed again and the
// audit trail records the status change. If the due cannot be updated the
// payment is restored under its original id.
func (t *Tracker) RemovePayment(ctx context.Context, id, paymentID string) (models.DueTransaction, error) {
	const op = "remove payment"
	unlock := t.lock(id)
	defer unlock()

	due, err := t.load(ctx, id, op)
	if err != nil {
		return due, t.fail(ctx, err)
	}
	payment, err := t.ledger.Transaction(ctx, paymentID)
	if err == nil && payment.DueID != due.ID {
		err = fmt.Errorf("payment %s: %w", paymentID, ledgererror.ErrTransactionNotFound)
	}
	if err != nil {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: err})
	}
	restored := due.RemainingBalance.Add(payment.Amount)
	if restored.GreaterThan(due.Amount) {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: &ledgererror.ValidationError{
			Field: "amount", Value: payment.Amount.String(), Kind: ledgererror.ErrInvalidAmount,
		}})
	}

	if _, err := t.ledger.Revert(ctx, paymentID); err != nil {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: err})
	}

	from := due.Status()
	updated := due
	updated.RemainingBalance = restored
	to := updated.Status()
	updated.PreviousStatus = from
	updated.AuditTrail = due.WithAudit(models.StatusChange(from, to), t.now())

	if err := t.save(ctx, updated); err != nil {
		restoreErr := t.ledger.Restore(ctx, payment)
		if restoreErr != nil {
			t.logger.WithError(restoreErr).Error("Failed to restore payment after due update failed",
				logging.F(logging.FieldDueID, id),
				logging.F(logging.FieldTransactionID, paymentID))
		}
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: &ledgererror.TransactionError{
			Op:              op,
			SourceID:        payment.BaseSourceID,
			Cause:           err,
			CompensationErr: restoreErr,
		}})
	}

	t.logger.Info("Due payment removed",
		logging.F(logging.FieldDueID, id),
		logging.F(logging.FieldTransactionID, paymentID),
		logging.F(logging.FieldAmount, payment.Amount.String()),
		logging.F(logging.FieldStatus, string(to)))
	t.notifier.Notify(ctx, notify.KindSuccess, models.StatusChange(from, to))
	return updated, nil
}

// Excuse forgives the due whatever remains on it. No money moves.
func (t *Tracker) Excuse(ctx context.Context, id, reason string) (models.DueTransaction, error) {
	const op = "excuse"
	reason = validation.SanitizeText(reason)
	if reason == "" {
		return models.DueTransaction{}, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: ledgererror.ErrMissingReason})
	}

	unlock := t.lock(id)
	defer unlock()

	due, err := t.load(ctx, id, op)
	if err != nil {
		return due, t.fail(ctx, err)
	}

	from := due.Status()
	updated := due
	updated.ExcuseReason = reason
	updated.PreviousStatus = from
	updated.AuditTrail = due.WithAudit(models.StatusChange(from, models.DueExcused), t.now())
	if err := t.save(ctx, updated); err != nil {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: err})
	}

	t.logger.Info("Due excused",
		logging.F(logging.FieldDueID, id),
		logging.F(logging.FieldReason, reason))
	t.notifier.Notify(ctx, notify.KindSuccess, models.StatusChange(from, models.DueExcused))
	return updated, nil
}

// ScheduleReminder sets the next reminder date. The reminder count goes up
// only when a reminder was sent since the previous schedule, so repeating
// the call does not count twice.
func (t *Tracker) ScheduleReminder(ctx context.Context, id string, next time.Time) (models.DueTransaction, error) {
	const op = "schedule reminder"
	unlock := t.lock(id)
	defer unlock()

	due, err := t.load(ctx, id, op)
	if err != nil {
		return due, t.fail(ctx, err)
	}
	updated := scheduleReminder(due, next)
	if err := t.save(ctx, updated); err != nil {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: err})
	}
	t.logger.Debug("Reminder scheduled",
		logging.F(logging.FieldDueID, id),
		logging.F("next_reminder_date", next.Format(time.RFC3339)),
		logging.F(logging.FieldCount, updated.ReminderCount))
	return updated, nil
}

func scheduleReminder(due models.DueTransaction, next time.Time) models.DueTransaction {
	sent := due.LastReminderSent
	if !sent.IsZero() && sent.Before(next) && !sent.Before(due.NextReminderDate) {
		due.ReminderCount++
	}
	due.NextReminderDate = next
	return due
}

// MarkReminderSent stamps the time a reminder went out.
func (t *Tracker) MarkReminderSent(ctx context.Context, id string, at time.Time) (models.DueTransaction, error) {
	const op = "mark reminder"
	unlock := t.lock(id)
	defer unlock()

	due, err := t.load(ctx, id, op)
	if err != nil {
		return due, t.fail(ctx, err)
	}
	due.LastReminderSent = at
	if err := t.save(ctx, due); err != nil {
		return due, t.fail(ctx, &ledgererror.DueError{DueID: id, Op: op, Err: err})
	}
	return due, nil
}

// Remind marks a reminder as sent now and schedules the next one one
// interval later. Delivering the reminder is left to the caller.
func (t *Tracker) Remind(ctx context.Context, id string) (models.DueTransaction, error) {
	now := t.now()
	due, err := t.MarkReminderSent(ctx, id, now)
	if err != nil {
		return due, err
	}
	due, err = t.ScheduleReminder(ctx, id, t.NextReminder(due))
	if err != nil {
		return due, err
	}
	t.notifier.Notify(ctx, notify.KindInfo,
		fmt.Sprintf("Reminder noted, next one on %s", due.NextReminderDate.Format("2006-01-02")))
	return due, nil
}

// NextReminder is one interval after the last reminder, or after now when
// none was sent.
func (t *Tracker) NextReminder(due models.DueTransaction) time.Time {
	base := due.LastReminderSent
	if base.IsZero() {
		base = t.now()
	}
	return base.Add(t.settings.ReminderInterval)
}
