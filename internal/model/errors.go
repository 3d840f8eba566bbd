package model

import "errors"

// Error kinds shared by every layer. Handlers map them to status codes.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("content generator unavailable")
)

// ValidationError describes rejected input. MsgID and Data select a
// localized message; Msg is the English fallback.
type ValidationError struct {
	MsgID string
	Data  map[string]any
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a ValidationError.
func Invalid(msgID, msg string, data map[string]any) error {
	return &ValidationError{MsgID: msgID, Data: data, Msg: msg}
}
