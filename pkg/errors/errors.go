package errors

import "fmt"

// Definition carries a stable business error code and a default message.
type Definition struct {
	Code    string
	Message string
}

func (d Definition) Error() string {
	return d.Message
}

// Is matches definitions by code so wrapped or re-worded instances still
// compare equal under errors.Is.
func (d Definition) Is(target error) bool {
	t, ok := target.(Definition)
	return ok && t.Code == d.Code
}

var (
	InsufficientFunds = Definition{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient wallet balance"}
	InvalidState      = Definition{Code: "INVALID_STATE", Message: "Operation not allowed in current state"}
	NoRecipients      = Definition{Code: "NO_RECIPIENTS", Message: "No active contacts found in selected groups"}
	NotFound          = Definition{Code: "NOT_FOUND", Message: "Resource not found or access denied"}
	Unauthorized      = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	SendFailure       = Definition{Code: "SEND_FAILURE", Message: "SMS gateway send failed"}
	ValidationError   = Definition{Code: "VALIDATION_ERROR", Message: "Invalid input"}
	Conflict          = Definition{Code: "CONFLICT", Message: "Resource already exists"}
)

// Validation returns a VALIDATION_ERROR definition with a specific message.
func Validation(format string, args ...interface{}) Definition {
	return Definition{Code: ValidationError.Code, Message: fmt.Sprintf(format, args...)}
}

// Insufficient returns an INSUFFICIENT_FUNDS definition spelling out the
// required and available amounts, mirroring the API's historical detail text.
func Insufficient(required, available float64) Definition {
	return Definition{
		Code:    InsufficientFunds.Code,
		Message: fmt.Sprintf("Insufficient balance. Required: %g, Available: %g", required, available),
	}
}
