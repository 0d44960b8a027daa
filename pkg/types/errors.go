package types

import (
	"errors"
	"fmt"
)

// Error categories. Callers branch on these with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("idea not found")
	ErrStorage    = errors.New("storage failure")
	ErrNetwork    = errors.New("network failure")
	ErrClosed     = errors.New("store is closed")
)

// Validation errors. Each wraps ErrValidation.
var (
	ErrEmptyTitle         = fmt.Errorf("%w: title must not be empty", ErrValidation)
	ErrTitleTooLong       = fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	ErrDescriptionTooLong = fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	ErrRatingOutOfRange   = fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, MinRating, MaxRating)
	ErrTimestampOrder     = fmt.Errorf("%w: updated_at precedes created_at", ErrValidation)
	ErrInvalidPagination  = fmt.Errorf("%w: offset must be >= 0 and limit > 0", ErrValidation)
	ErrInvalidSort        = fmt.Errorf("%w: unknown sort option", ErrValidation)
	ErrInvalidID          = fmt.Errorf("%w: id must not be empty", ErrValidation)
)

// IsRetryable reports whether err belongs to a category the caller may retry
// by re-invoking the same operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrNetwork)
}
