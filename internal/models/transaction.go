package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry. Amount is always positive; the
// balance effect on BaseSourceID is carried by Direction.
type Transaction struct {
	ID            string          `mapstructure:"id"`
	Type          TransactionType `mapstructure:"type"`
	Direction     Direction       `mapstructure:"direction"`
	Amount        decimal.Decimal `mapstructure:"amount"`
	Category      string          `mapstructure:"category"`
	Source        string          `mapstructure:"source"`
	BaseSourceID  string          `mapstructure:"base_source_id"`
	Description   string          `mapstructure:"description"`
	Date          time.Time       `mapstructure:"date"`
	DisplaySource string          `mapstructure:"display_source"`
	TransferID    string          `mapstructure:"transfer_id"`
	DueID         string          `mapstructure:"due_id"`
	UserID        string          `mapstructure:"user_id"`
	IsDue         bool            `mapstructure:"is_due"`
	CreatedAt     time.Time       `mapstructure:"created_at"`
	UpdatedAt     time.Time       `mapstructure:"updated_at"`
}

// Effect returns the balance effect of the entry as income or expense.
func (t Transaction) Effect() TransactionType {
	if t.Direction == "" {
		// entries written without a direction follow their type
		return t.Type
	}
	return t.Direction.Effect()
}

// Linked reports whether the entry belongs to a due or a transfer and so
// cannot be removed on its own.
func (t Transaction) Linked() bool {
	return t.IsDue || t.DueID != "" || t.TransferID != ""
}

// SignedAmount is the entry's contribution to its source balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Effect() == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
