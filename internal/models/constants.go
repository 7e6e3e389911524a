// Package models provides the ledger's data structures: payment sources,
// transactions and dues, plus their record codec.
package models

// TransactionType is the user-facing kind of a ledger entry.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Opposite swaps income and expense. Transfer has no opposite and is returned as is.
func (t TransactionType) Opposite() TransactionType {
	switch t {
	case TypeIncome:
		return TypeExpense
	case TypeExpense:
		return TypeIncome
	}
	return t
}

// Direction says which way money moved on the entry's base source.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Effect is the balance effect of the direction, expressed as income or expense.
func (d Direction) Effect() TransactionType {
	if d == DirectionOut {
		return TypeExpense
	}
	return TypeIncome
}

// DirectionOf maps a balance effect (income or expense) to a direction.
func DirectionOf(effect TransactionType) Direction {
	if effect == TypeExpense {
		return DirectionOut
	}
	return DirectionIn
}

// SourceType classifies a payment source.
type SourceType string

const (
	SourceBank   SourceType = "bank"
	SourceCredit SourceType = "credit"
	SourceCash   SourceType = "cash"
	SourceWallet SourceType = "wallet"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceBank, SourceCredit, SourceCash, SourceWallet:
		return true
	}
	return false
}

// Categories the engine assigns on its own.
const (
	CategoryTransfer       = "Transfer"
	CategoryOpeningBalance = "Opening Balance"
	CategoryDuesSettlement = "Dues Settlement"
)

// RoutingSeparator splits a routing source id from its UPI-app suffix,
// e.g. "hdfc-1@gpay".
const RoutingSeparator = "@"

// File permissions
const (
	PermissionDataFile  = 0600
	PermissionDirectory = 0750
)
