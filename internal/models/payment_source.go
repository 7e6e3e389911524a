package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CreditDetails holds the fields only credit sources carry.
type CreditDetails struct {
	CreditLimit    decimal.Decimal `mapstructure:"credit_limit"`
	StatementDay   int             `mapstructure:"statement_date"`
	DueDay         int             `mapstructure:"due_date"`
	InterestRate   decimal.Decimal `mapstructure:"interest_rate"`
	LastFourDigits string          `mapstructure:"last_four_digits"`
}

// PaymentSource is a named money container. Amount is a derived aggregate of
// the source's transactions and is only ever changed by the balance mutator.
type PaymentSource struct {
	ID          string          `mapstructure:"id"`
	UserID      string          `mapstructure:"user_id"`
	Name        string          `mapstructure:"name"`
	DisplayName string          `mapstructure:"display_name"`
	Type        SourceType      `mapstructure:"type"`
	Amount      decimal.Decimal `mapstructure:"amount"`
	Linked      bool            `mapstructure:"linked"`
	UPIApps     []string        `mapstructure:"upi_apps"`
	Credit      CreditDetails   `mapstructure:",squash"`
	CreatedAt   time.Time       `mapstructure:"created_at"`
	UpdatedAt   time.Time       `mapstructure:"updated_at"`
}

// Label is the name shown to the user: the display override when set.
func (s PaymentSource) Label() string {
	if strings.TrimSpace(s.DisplayName) != "" {
		return s.DisplayName
	}
	return s.Name
}

// IsCredit reports whether the source is a credit line.
func (s PaymentSource) IsCredit() bool {
	return s.Type == SourceCredit
}

// AddUPIApp attaches a payment-app label, keeping the list an ordered set.
// It returns false when the label was already present or blank.
func (s *PaymentSource) AddUPIApp(app string) bool {
	app = strings.TrimSpace(app)
	if app == "" || s.HasUPIApp(app) {
		return false
	}
	s.UPIApps = append(s.UPIApps, app)
	return true
}

// HasUPIApp reports whether the label is attached, ignoring case.
func (s PaymentSource) HasUPIApp(app string) bool {
	for _, existing := range s.UPIApps {
		if strings.EqualFold(existing, app) {
			return true
		}
	}
	return false
}

// RoutingID returns the routing id for paying through the given app.
func (s PaymentSource) RoutingID(app string) string {
	if app == "" {
		return s.ID
	}
	return s.ID + RoutingSeparator + app
}

// BaseSourceID strips any UPI-app suffix from a routing source id.
func BaseSourceID(routing string) string {
	routing = strings.TrimSpace(routing)
	if i := strings.Index(routing, RoutingSeparator); i >= 0 {
		return routing[:i]
	}
	return routing
}
