package models

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
)

// Records are plain maps holding only strings, bools, ints, slices and
// nested maps, so every store backend can round-trip them. Decimals travel
// as strings and times as RFC 3339 strings; zero times are omitted.

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

// FormatTime renders a timestamp the way records store it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func putTime(rec map[string]any, key string, t time.Time) {
	if !t.IsZero() {
		rec[key] = FormatTime(t)
	}
}

// Record encodes the source for the record store.
func (s PaymentSource) Record() map[string]any {
	apps := make([]any, 0, len(s.UPIApps))
	for _, app := range s.UPIApps {
		apps = append(apps, app)
	}
	rec := map[string]any{
		"user_id":      s.UserID,
		"name":         s.Name,
		"display_name": s.DisplayName,
		"type":         string(s.Type),
		"amount":       s.Amount.String(),
		"linked":       s.Linked,
		"upi_apps":     apps,
	}
	if s.ID != "" {
		rec["id"] = s.ID
	}
	if s.IsCredit() {
		rec["credit_limit"] = s.Credit.CreditLimit.String()
		rec["statement_date"] = s.Credit.StatementDay
		rec["due_date"] = s.Credit.DueDay
		rec["interest_rate"] = s.Credit.InterestRate.String()
		rec["last_four_digits"] = s.Credit.LastFourDigits
	}
	return rec
}

// Record encodes the transaction for the record store.
func (t Transaction) Record() map[string]any {
	rec := map[string]any{
		"type":           string(t.Type),
		"direction":      string(t.Direction),
		"amount":         t.Amount.String(),
		"category":       t.Category,
		"source":         t.Source,
		"base_source_id": t.BaseSourceID,
		"description":    t.Description,
		"display_source": t.DisplaySource,
		"transfer_id":    t.TransferID,
		"due_id":         t.DueID,
		"user_id":        t.UserID,
		"is_due":         t.IsDue,
	}
	if t.ID != "" {
		rec["id"] = t.ID
	}
	putTime(rec, "date", t.Date)
	return rec
}

// Record encodes the due, including its transaction fields.
func (d DueTransaction) Record() map[string]any {
	rec := d.Transaction.Record()
	rec["is_due"] = true
	for k, v := range d.DueFields() {
		rec[k] = v
	}
	return rec
}

// DueFields encodes only the due extension fields, for partial updates.
func (d DueTransaction) DueFields() map[string]any {
	rec := map[string]any{
		"excuse_reason":     d.ExcuseReason,
		"remaining_balance": d.RemainingBalance.String(),
		"reminder_count":    d.ReminderCount,
		"audit_trail":       EncodeAuditTrail(d.AuditTrail),
		"previous_status":   string(d.PreviousStatus),
	}
	putTime(rec, "repayment_date", d.RepaymentDate)
	putTime(rec, "next_reminder_date", d.NextReminderDate)
	putTime(rec, "last_reminder_sent", d.LastReminderSent)
	return rec
}

// EncodeAuditTrail turns the trail into record values.
func EncodeAuditTrail(trail []AuditEntry) []any {
	out := make([]any, 0, len(trail))
	for _, e := range trail {
		out = append(out, map[string]any{
			"action":    e.Action,
			"timestamp": FormatTime(e.Timestamp),
		})
	}
	return out
}

// DecodeSource decodes a payment_sources record.
func DecodeSource(rec map[string]any) (PaymentSource, error) {
	var s PaymentSource
	if err := decodeRecord(rec, &s); err != nil {
		return PaymentSource{}, fmt.Errorf("decode payment source: %w", err)
	}
	return s, nil
}

// DecodeTransaction decodes a transactions record.
func DecodeTransaction(rec map[string]any) (Transaction, error) {
	var t Transaction
	if err := decodeRecord(rec, &t); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	return t, nil
}

// DecodeDue decodes a transactions record carrying due fields.
func DecodeDue(rec map[string]any) (DueTransaction, error) {
	var d DueTransaction
	if err := decodeRecord(rec, &d); err != nil {
		return DueTransaction{}, fmt.Errorf("decode due: %w", err)
	}
	return d, nil
}

func decodeRecord(rec map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(decimalHook, timeHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(rec)
}

func decimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		if v == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case nil:
		return decimal.Zero, nil
	}
	return nil, fmt.Errorf("cannot decode %T as decimal", data)
}

func timeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, v)
	case nil:
		return time.Time{}, nil
	}
	return nil, fmt.Errorf("cannot decode %T as time", data)
}
