package logging

// Standardized field names for structured logging.
// These constants ensure consistency across the application's log output,
// making logs easier to parse, filter, and analyze.
const (
	FieldCheckID   = "check_id"
	FieldStage     = "stage"
	FieldStatus    = "status"
	FieldSource    = "source"
	FieldOperator  = "operator"
	FieldCard      = "card_last4"
	FieldAmount    = "amount"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldCount     = "count"
	FieldBot       = "bot_username"
	FieldOperation = "operation"
)
