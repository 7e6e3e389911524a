package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DueStatus is derived from a due's fields, never stored on its own.
type DueStatus string

const (
	DueOpen          DueStatus = "Open"
	DuePartiallyPaid DueStatus = "PartiallyPaid"
	DueSettled       DueStatus = "Settled"
	DueExcused       DueStatus = "Excused"
)

// Terminal reports whether no further transition is allowed.
func (s DueStatus) Terminal() bool {
	return s == DueSettled || s == DueExcused
}

// AuditEntry is one append-only line of a due's audit trail.
type AuditEntry struct {
	Action    string    `mapstructure:"action"`
	Timestamp time.Time `mapstructure:"timestamp"`
}

// DueTransaction is a transaction representing money owed.
type DueTransaction struct {
	Transaction `mapstructure:",squash"`

	RepaymentDate    time.Time       `mapstructure:"repayment_date"`
	ExcuseReason     string          `mapstructure:"excuse_reason"`
	RemainingBalance decimal.Decimal `mapstructure:"remaining_balance"`
	NextReminderDate time.Time       `mapstructure:"next_reminder_date"`
	ReminderCount    int             `mapstructure:"reminder_count"`
	LastReminderSent time.Time       `mapstructure:"last_reminder_sent"`
	AuditTrail       []AuditEntry    `mapstructure:"audit_trail"`
	PreviousStatus   DueStatus       `mapstructure:"previous_status"`
}

// Status infers the lifecycle state from the excuse reason and remaining balance.
func (d DueTransaction) Status() DueStatus {
	switch {
	case d.ExcuseReason != "":
		return DueExcused
	case !d.RemainingBalance.IsPositive():
		return DueSettled
	case d.RemainingBalance.LessThan(d.Amount):
		return DuePartiallyPaid
	default:
		return DueOpen
	}
}

// Paid is the amount settled so far.
func (d DueTransaction) Paid() decimal.Decimal {
	return d.Amount.Sub(d.RemainingBalance)
}

// StatusChange formats the audit action for a transition.
func StatusChange(from, to DueStatus) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}

// WithAudit returns a copy of the trail with one more entry. The receiver's
// backing array is never written to.
func (d DueTransaction) WithAudit(action string, at time.Time) []AuditEntry {
	trail := make([]AuditEntry, 0, len(d.AuditTrail)+1)
	trail = append(trail, d.AuditTrail...)
	return append(trail, AuditEntry{Action: action, Timestamp: at})
}
