// Package validation rejects malformed ledger requests before any balance or
// transaction is touched. Every check is pure; callers stop at the first
// failure and surface exactly one message for the attempt.
package validation

import (
	"html"
	"strings"

	"fjacquet/finance-ledger/internal/ledgererror"
	"fjacquet/finance-ledger/internal/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

var strictPolicy = bluemonday.StrictPolicy()

// CheckType fails with ErrInvalidType unless t is income, expense or transfer.
func CheckType(t models.TransactionType) error {
	if !t.Valid() {
		return &ledgererror.ValidationError{Field: "type", Value: string(t), Kind: ledgererror.ErrInvalidType}
	}
	return nil
}

// CheckAmount parses raw and returns it when it is a positive number.
func CheckAmount(raw string) (decimal.Decimal, error) {
	amount, err := models.ParseAmount(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, &ledgererror.ValidationError{Field: "amount", Value: raw, Kind: ledgererror.ErrInvalidAmount}
	}
	return amount, nil
}

// CheckPositive is CheckAmount for callers that already hold a decimal.
func CheckPositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ledgererror.ValidationError{Field: "amount", Value: amount.String(), Kind: ledgererror.ErrInvalidAmount}
	}
	return nil
}

// CheckCategory requires a category for everything but transfers, whose
// category is implied.
func CheckCategory(category string, t models.TransactionType) error {
	if strings.TrimSpace(category) == "" && t != models.TypeTransfer {
		return &ledgererror.ValidationError{Field: "category", Kind: ledgererror.ErrMissingCategory}
	}
	return nil
}

// CheckSource requires a source id.
func CheckSource(sourceID string) error {
	if strings.TrimSpace(sourceID) == "" {
		return &ledgererror.ValidationError{Field: "source", Kind: ledgererror.ErrMissingSource}
	}
	return nil
}

// CheckSufficientFunds blocks an outgoing amount larger than the source balance.
// Only expense effects are ever blocked.
func CheckSufficientFunds(source models.PaymentSource, amount decimal.Decimal, effect models.TransactionType) error {
	if effect == models.TypeExpense && source.Amount.LessThan(amount) {
		return &ledgererror.ValidationError{
			Field: "amount",
			Value: amount.String(),
			Kind:  ledgererror.ErrInsufficientBalance,
		}
	}
	return nil
}

// Request is the raw input of a record attempt as the form layer hands it over.
type Request struct {
	Type     models.TransactionType
	Amount   string
	Category string
	SourceID string
}

// Validate runs every source-independent check in order and returns the
// parsed amount. The funds check needs the fetched source and runs later.
func (r Request) Validate() (decimal.Decimal, error) {
	if err := CheckType(r.Type); err != nil {
		return decimal.Zero, err
	}
	amount, err := CheckAmount(r.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if err := CheckCategory(r.Category, r.Type); err != nil {
		return decimal.Zero, err
	}
	if err := CheckSource(r.SourceID); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// SanitizeText strips markup from free text such as descriptions and excuse
// reasons and trims the result. Entities the policy escapes are decoded again
// so apostrophes and ampersands survive.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}
