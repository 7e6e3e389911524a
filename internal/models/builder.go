package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionBuilder provides a fluent API for constructing ledger entries.
// The first error sticks; later calls become no-ops.
type TransactionBuilder struct {
	tx  Transaction
	err error
}

// NewTransactionBuilder creates a builder with the entry's date defaulted to now.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		tx: Transaction{
			Amount: decimal.Zero,
			Date:   time.Now().UTC(),
		},
	}
}

// WithID sets an explicit id; without one the store assigns it.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.ID = id
	return b
}

// WithType sets the user-facing type and, for income and expense, the direction.
func (b *TransactionBuilder) WithType(t TransactionType) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if !t.Valid() {
		b.err = errors.New("unknown transaction type: " + string(t))
		return b
	}
	b.tx.Type = t
	if t != TypeTransfer {
		b.tx.Direction = DirectionOf(t)
	}
	return b
}

// WithDirection sets the balance direction explicitly, as transfers need.
func (b *TransactionBuilder) WithDirection(d Direction) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Direction = d
	return b
}

// WithAmount sets the amount, which must be positive.
func (b *TransactionBuilder) WithAmount(amount decimal.Decimal) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if !amount.IsPositive() {
		b.err = errors.New("amount must be positive")
		return b
	}
	b.tx.Amount = amount
	return b
}

// WithSource sets the routing source and derives the base source id from it.
func (b *TransactionBuilder) WithSource(routing string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	routing = strings.TrimSpace(routing)
	if routing == "" {
		b.err = errors.New("source cannot be empty")
		return b
	}
	b.tx.Source = routing
	b.tx.BaseSourceID = BaseSourceID(routing)
	return b
}

func (b *TransactionBuilder) WithCategory(category string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Category = strings.TrimSpace(category)
	return b
}

func (b *TransactionBuilder) WithDescription(description string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Description = description
	return b
}

// WithDate sets the entry date; a zero date keeps the default.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if !date.IsZero() {
		b.tx.Date = date.UTC()
	}
	return b
}

// WithDisplaySource sets the counterpart label shown on transfer legs.
func (b *TransactionBuilder) WithDisplaySource(label string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.DisplaySource = label
	return b
}

// WithTransferID links the entry to the other leg of a transfer.
func (b *TransactionBuilder) WithTransferID(id string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.TransferID = id
	return b
}

// WithDueID links a repayment to its due.
func (b *TransactionBuilder) WithDueID(id string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.DueID = id
	return b
}

// WithUser scopes the entry to a user.
func (b *TransactionBuilder) WithUser(userID string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.UserID = userID
	return b
}

// Build returns the entry or the first error encountered.
func (b *TransactionBuilder) Build() (Transaction, error) {
	if b.err != nil {
		return Transaction{}, b.err
	}
	if b.tx.Type == "" {
		return Transaction{}, errors.New("transaction type is required")
	}
	if b.tx.Direction == "" {
		return Transaction{}, errors.New("transaction direction is required")
	}
	if b.tx.BaseSourceID == "" {
		return Transaction{}, errors.New("source is required")
	}
	if !b.tx.Amount.IsPositive() {
		return Transaction{}, errors.New("amount must be positive")
	}
	return b.tx, nil
}

// NewTransferID returns an id shared by both legs of a transfer.
func NewTransferID() string {
	return uuid.NewString()
}
