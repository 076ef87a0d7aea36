package utils

import (
	"errors"
	"fmt"
)

var (
	ErrorRecordNotFound   = errors.New("record not found")
	ErrorStoreUnavailable = errors.New("transaction store unavailable")
)

// ValidationError marks a caller mistake (bad input, broken business rule).
// Handlers map it to HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PartialTransferFailure reports a contra transfer whose second leg failed to
// persist AND whose compensating delete of the first leg also failed. The
// orphaned leg id is surfaced so an operator can repair the group manually.
type PartialTransferFailure struct {
	GroupId     string
	OrphanLegId string
	Err         error
}

func (e *PartialTransferFailure) Error() string {
	return fmt.Sprintf("partial transfer failure: group %s left orphan leg %s: %v", e.GroupId, e.OrphanLegId, e.Err)
}

func (e *PartialTransferFailure) Unwrap() error { return e.Err }
