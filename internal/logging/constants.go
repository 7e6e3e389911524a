package logging

// Standardized field names for structured logging.
const (
	FieldSourceID      = "source_id"
	FieldTransactionID = "transaction_id"
	FieldDueID         = "due_id"
	FieldUserID        = "user_id"
	FieldAmount        = "amount"
	FieldType          = "type"
	FieldCategory      = "category"
	FieldReason        = "reason"
	FieldOperation     = "operation"
	FieldCollection    = "collection"
	FieldStatus        = "status"
	FieldError         = "error"
	FieldCount         = "count"
	FieldOutputFile    = "output_file"
)
