package services

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindInvalidState
	KindValidation
	KindConflict
	KindExternal
	KindRateLimited
)

var (
	ErrNotFound             = errors.New("not found")
	ErrClaimNotFound        = errors.New("claim not found")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrUnauthorized         = errors.New("not allowed")
	ErrRoleNotEligible      = errors.New("role not eligible")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrInvalidOTP           = errors.New("invalid otp")
	ErrAlreadyConfirmed     = errors.New("pickup already confirmed or cancelled")
	ErrNotPending           = errors.New("pickup is not pending")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrBelowMinimum         = errors.New("amount below minimum redemption")
	ErrInsufficientBalance  = errors.New("insufficient cashback balance")
	ErrValidation           = errors.New("invalid input")
	ErrConflict             = errors.New("already exists")
	ErrTooManyAttempts      = errors.New("too many attempts")
	ErrExternal             = errors.New("external service failure")
)

var kinds = map[error]Kind{
	ErrNotFound:             KindNotFound,
	ErrClaimNotFound:        KindNotFound,
	ErrUnauthenticated:      KindUnauthorized,
	ErrUnauthorized:         KindUnauthorized,
	ErrRoleNotEligible:      KindUnauthorized,
	ErrInsufficientQuantity: KindValidation,
	ErrInvalidOTP:           KindValidation,
	ErrAlreadyConfirmed:     KindInvalidState,
	ErrNotPending:           KindInvalidState,
	ErrInvalidTransition:    KindInvalidState,
	ErrBelowMinimum:         KindValidation,
	ErrInsufficientBalance:  KindValidation,
	ErrValidation:           KindValidation,
	ErrConflict:             KindConflict,
	ErrTooManyAttempts:      KindRateLimited,
	ErrExternal:             KindExternal,
}

// KindOf classifies err by the first sentinel it wraps
func KindOf(err error) Kind {
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// invalid wraps ErrValidation with a field-specific message
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
