package ledger

import (
	"context"
	"fmt"
	"time"

	"fjacquet/finance-ledger/internal/ledgererror"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/notify"
	"fjacquet/finance-ledger/internal/validation"
)

// TransferRequest moves money between two of a user's sources.
type TransferRequest struct {
	FromID      string
	ToID        string
	Amount      string
	Description string
	Date        time.Time
	// FromLabel and ToLabel default to the sources' labels.
	FromLabel string
	ToLabel   string
	UserID    string
}

// TransferResult holds both committed legs.
type TransferResult struct {
	TransferID string
	Out        models.Transaction
	In         models.Transaction
}

// TransferCoordinator records a transfer as two ledger entries sharing a
// transfer id: an outgoing leg on the source and an incoming leg on the
// destination.
//
// The legs are not atomic. If the incoming leg fails after the outgoing leg
// committed, the outgoing leg stays and a *ledgererror.TransferError names
// it; retrying the incoming leg or reconciling recovers.
type TransferCoordinator struct {
	ledger *Ledger
}

func NewTransferCoordinator(l *Ledger) *TransferCoordinator {
	return &TransferCoordinator{ledger: l}
}

// Transfer validates both legs before issuing either, then records them in order.
func (c *TransferCoordinator) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	res, err := c.transfer(ctx, req)
	l := c.ledger
	if err != nil {
		l.logger.WithError(err).Warn("Transfer failed",
			logging.F("from", req.FromID),
			logging.F("to", req.ToID))
		l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
		return res, err
	}
	l.notifier.Notify(ctx, notify.KindSuccess,
		fmt.Sprintf("Transferred %s from %s to %s", res.Out.Amount.StringFixed(2), res.In.DisplaySource, res.Out.DisplaySource))
	return res, nil
}

func (c *TransferCoordinator) transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	l := c.ledger
	if err := validation.CheckSource(req.FromID); err != nil {
		return TransferResult{}, err
	}
	if err := validation.CheckSource(req.ToID); err != nil {
		return TransferResult{}, &ledgererror.ValidationError{Field: "destination", Kind: ledgererror.ErrMissingSource}
	}
	amount, err := validation.CheckAmount(req.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	fromID, toID := models.BaseSourceID(req.FromID), models.BaseSourceID(req.ToID)
	if fromID == toID {
		return TransferResult{}, &ledgererror.ValidationError{Field: "destination", Value: toID, Kind: ledgererror.ErrSameSource}
	}

	unlock := l.lanes.Lock(fromID, toID)
	defer unlock()

	from, err := l.source(ctx, fromID)
	if err != nil {
		return TransferResult{}, &ledgererror.TransactionError{Op: "transfer", SourceID: fromID, Cause: err}
	}
	to, err := l.source(ctx, toID)
	if err != nil {
		return TransferResult{}, &ledgererror.TransactionError{Op: "transfer", SourceID: toID, Cause: err}
	}
	if err := validation.CheckSufficientFunds(from, amount, models.TypeExpense); err != nil {
		return TransferResult{}, err
	}

	fromLabel, toLabel := req.FromLabel, req.ToLabel
	if fromLabel == "" {
		fromLabel = from.Label()
	}
	if toLabel == "" {
		toLabel = to.Label()
	}
	date := req.Date
	if date.IsZero() {
		date = l.now()
	}
	transferID := models.NewTransferID()
	description := validation.SanitizeText(req.Description)

	leg := func(routing string, dir models.Direction, counterpart string) (models.Transaction, error) {
		return models.NewTransactionBuilder().
			WithType(models.TypeTransfer).
			WithDirection(dir).
			WithAmount(amount).
			WithSource(routing).
			WithCategory(l.settings.TransferCategory).
			WithDescription(description).
			WithDate(date).
			WithDisplaySource(counterpart).
			WithTransferID(transferID).
			WithUser(req.UserID).
			Build()
	}
	outLeg, err := leg(req.FromID, models.DirectionOut, toLabel)
	if err != nil {
		return TransferResult{}, err
	}
	inLeg, err := leg(req.ToID, models.DirectionIn, fromLabel)
	if err != nil {
		return TransferResult{}, err
	}

	res := TransferResult{TransferID: transferID}
	res.Out, err = l.commit(ctx, outLeg, outLeg.Record())
	if err != nil {
		return res, err
	}
	res.In, err = l.commit(ctx, inLeg, inLeg.Record())
	if err != nil {
		l.logger.Error("Transfer partially applied, outgoing leg kept",
			logging.F(logging.FieldTransactionID, res.Out.ID),
			logging.F("transfer_id", transferID))
		return res, &ledgererror.TransferError{FromID: fromID, ToID: toID, CommittedLeg: res.Out.ID, Err: err}
	}
	return res, nil
}
