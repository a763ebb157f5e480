package repositories

import (
	"context"
	"errors"
	"net"

	"gorm.io/gorm"
)

// Store error taxonomy. The postgres implementations translate driver errors
// into these sentinels so the service layer never depends on gorm.
var (
	// ErrNotFound: the referenced entity is absent.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicateKey: a uniqueness constraint was violated (User.email).
	ErrDuplicateKey = errors.New("store: duplicate key")

	// ErrStoreUnavailable: connectivity failure after bounded retry. The
	// current operation failed fatally; the caller may retry it later.
	ErrStoreUnavailable = errors.New("store: unavailable")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// TranslateError maps gorm/driver errors onto the store taxonomy. Unknown
// errors pass through unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrInvalidDB):
		return ErrStoreUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrStoreUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrStoreUnavailable
	}

	return err
}
