package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fjacquet/finance-ledger/internal/ledgererror"
	"fjacquet/finance-ledger/internal/logging"
	"fjacquet/finance-ledger/internal/models"
	"fjacquet/finance-ledger/internal/notify"
	"fjacquet/finance-ledger/internal/store"
	"fjacquet/finance-ledger/internal/validation"

	"github.com/shopspring/decimal"
)

// AddSource registers a payment source. The source starts at zero and a
// non-zero opening balance is recorded as a transaction, so the balance
// always equals the sum of the source's log.
func (l *Ledger) AddSource(ctx context.Context, src models.PaymentSource, opening decimal.Decimal) (models.PaymentSource, error) {
	src.Name = validation.SanitizeText(src.Name)
	src.DisplayName = validation.SanitizeText(src.DisplayName)
	if src.Name == "" {
		err := &ledgererror.ValidationError{Field: "name", Kind: ledgererror.ErrMissingName}
		l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
		return models.PaymentSource{}, err
	}
	if src.Type == "" {
		src.Type = models.SourceBank
	}
	if !src.Type.Valid() {
		err := &ledgererror.ValidationError{Field: "source_type", Value: string(src.Type), Kind: ledgererror.ErrInvalidType}
		l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
		return models.PaymentSource{}, err
	}
	if strings.Contains(src.ID, models.RoutingSeparator) {
		err := &ledgererror.ValidationError{Field: "id", Value: src.ID, Kind: ledgererror.ErrMissingSource}
		l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
		return models.PaymentSource{}, err
	}
	apps := src.UPIApps
	src.UPIApps = nil
	for _, app := range apps {
		src.AddUPIApp(app)
	}
	src.Amount = decimal.Zero

	id, err := l.store.Insert(ctx, store.CollectionPaymentSources, src.Record())
	if err != nil {
		err = fmt.Errorf("%w: add source: %w", ledgererror.ErrPersistence, err)
		l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
		return models.PaymentSource{}, err
	}
	src.ID = id
	l.logger.Info("Payment source added",
		logging.F(logging.FieldSourceID, id),
		logging.F(logging.FieldUserID, src.UserID),
		logging.F(logging.FieldType, string(src.Type)))

	if !opening.IsZero() {
		if err := l.recordOpening(ctx, src, opening); err != nil {
			l.notifier.Notify(ctx, notify.KindError, ledgererror.UserMessage(err))
			return src, err
		}
		src.Amount = opening
	}
	l.notifier.Notify(ctx, notify.KindSuccess, fmt.Sprintf("Payment source %s added", src.Label()))
	return src, nil
}

func (l *Ledger) recordOpening(ctx context.Context, src models.PaymentSource, opening decimal.Decimal) error {
	effect := models.TypeIncome
	if opening.IsNegative() {
		effect = models.TypeExpense
	}
	tx, err := models.NewTransactionBuilder().
		WithType(effect).
		WithAmount(opening.Abs()).
		WithSource(src.ID).
		WithCategory(l.settings.OpeningCategory).
		WithDate(l.now()).
		WithUser(src.UserID).
		Build()
	if err != nil {
		return err
	}

	unlock := l.lanes.Lock(src.ID)
	defer unlock()
	_, err = l.commit(ctx, tx, tx.Record())
	return err
}

// Source fetches a payment source by its id or one of its routing ids.
func (l *Ledger) Source(ctx context.Context, id string) (models.PaymentSource, error) {
	return l.source(ctx, models.BaseSourceID(id))
}

func (l *Ledger) source(ctx context.Context, id string) (models.PaymentSource, error) {
	rec, err := l.store.FetchOne(ctx, store.CollectionPaymentSources, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.PaymentSource{}, &ledgererror.MutationError{SourceID: id, Op: "fetch", Err: ledgererror.ErrSourceNotFound}
	}
	if err != nil {
		return models.PaymentSource{}, &ledgererror.MutationError{
			SourceID: id,
			Op:       "fetch",
			Err:      fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err),
		}
	}
	return models.DecodeSource(rec)
}

// Sources lists a user's payment sources; an empty user id lists all.
func (l *Ledger) Sources(ctx context.Context, userID string) ([]models.PaymentSource, error) {
	filter := store.Filter{}
	if userID != "" {
		filter["user_id"] = userID
	}
	recs, err := l.store.List(ctx, store.CollectionPaymentSources, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err)
	}
	out := make([]models.PaymentSource, 0, len(recs))
	for _, rec := range recs {
		src, err := models.DecodeSource(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// AttachUPIApp links a payment app to a source and returns the routing id
// to use when paying through it.
func (l *Ledger) AttachUPIApp(ctx context.Context, sourceID, app string) (string, error) {
	base := models.BaseSourceID(sourceID)
	unlock := l.lanes.Lock(base)
	defer unlock()

	src, err := l.source(ctx, base)
	if err != nil {
		return "", err
	}
	app = validation.SanitizeText(app)
	if app == "" || strings.Contains(app, models.RoutingSeparator) {
		return "", &ledgererror.ValidationError{Field: "upi_app", Value: app, Kind: ledgererror.ErrMissingSource}
	}
	if src.AddUPIApp(app) {
		apps := make([]any, 0, len(src.UPIApps))
		for _, a := range src.UPIApps {
			apps = append(apps, a)
		}
		if err := l.store.Update(ctx, store.CollectionPaymentSources, base, store.Record{"upi_apps": apps}); err != nil {
			return "", fmt.Errorf("%w: %w", ledgererror.ErrPersistence, err)
		}
	}
	return src.RoutingID(app), nil
}
