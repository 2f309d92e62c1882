package signal

import (
	"errors"
	"fmt"
)

// Validation failures. Match with errors.Is; the concrete error is a *FieldError.
var (
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidStopLoss   = errors.New("invalid stop loss")
	ErrInvalidTakeProfit = errors.New("invalid take profit")

	// ErrMalformedPayload means the body is not a JSON object. It is detected before validation.
	ErrMalformedPayload = errors.New("malformed payload")
)

// FieldError reports which field failed which rule.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	switch e.Err {
	case ErrMissingField:
		return "Missing required field: " + e.Field
	case ErrInvalidSymbol:
		return "Only " + Symbol + " signals are supported"
	case ErrInvalidAction:
		return "Invalid action. Must be BUY, SELL, or CLOSE"
	case ErrInvalidPrice:
		return "Invalid price value"
	case ErrInvalidStopLoss:
		return "Invalid stop loss value"
	case ErrInvalidTakeProfit:
		return "Invalid take profit value"
	default:
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
}

func (e *FieldError) Unwrap() error { return e.Err }

// Code returns the stable error code for a validation failure, or "" if err is not one.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "MissingField"
	case errors.Is(err, ErrInvalidSymbol):
		return "InvalidSymbol"
	case errors.Is(err, ErrInvalidAction):
		return "InvalidAction"
	case errors.Is(err, ErrInvalidPrice):
		return "InvalidPrice"
	case errors.Is(err, ErrInvalidStopLoss):
		return "InvalidStopLoss"
	case errors.Is(err, ErrInvalidTakeProfit):
		return "InvalidTakeProfit"
	case errors.Is(err, ErrMalformedPayload):
		return "MalformedPayload"
	default:
		return ""
	}
}

// IsValidation reports whether err is a caller-input validation failure.
func IsValidation(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}
