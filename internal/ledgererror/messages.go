package ledgererror

import "errors"

// UserMessage maps an error to the single message shown to the user for a
// failed attempt.
func UserMessage(err error) string {
	var verr *ValidationError
	isField := func(field string) bool {
		return errors.As(err, &verr) && verr.Field == field
	}
	switch {
	case err == nil:
		return ""
	case isField("source_type"):
		return "Please choose bank, credit, cash or wallet"
	case isField("kind"):
		return "Please choose lent or borrowed"
	case isField("direction"):
		return "The direction does not match the transaction type"
	case errors.Is(err, ErrInvalidType):
		return "Please choose income, expense or transfer"
	case errors.Is(err, ErrInvalidAmount):
		return "Please enter a valid amount greater than zero"
	case errors.Is(err, ErrMissingCategory):
		return "Please select a category"
	case errors.Is(err, ErrMissingSource):
		return "Please select a payment source"
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance in the selected payment source"
	case errors.Is(err, ErrMissingReason):
		return "Please provide a reason for excusing this due"
	case errors.Is(err, ErrDueClosed):
		return "This due is already closed"
	case errors.Is(err, ErrDueNotFound), errors.Is(err, ErrTransactionNotFound):
		return "The requested entry no longer exists"
	case errors.Is(err, ErrSameSource):
		return "Please choose two different payment sources"
	case errors.Is(err, ErrMissingName):
		return "Please enter a name for the payment source"
	case errors.Is(err, ErrPartialTransfer):
		return "Transfer only partially completed, please retry the remaining leg"
	case errors.Is(err, ErrLinkedEntry):
		return "This entry belongs to a due or transfer and cannot be deleted on its own"
	case errors.Is(err, ErrSourceNotFound):
		return "Payment source not found"
	default:
		return "Transaction failed, please try again"
	}
}
