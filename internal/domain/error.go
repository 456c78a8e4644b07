package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyPosted      = errors.New("content already posted")
	ErrRetryExhausted     = errors.New("retry limit reached")
	ErrReasonRequired     = errors.New("rejection requires a reason")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
