// Package apperr classifies errors from the user lifecycle into the
// outcome kinds the transport maps to responses.
package apperr

import (
	"errors"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// KindOf walks the wrap chain. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, user.ErrInvalidID), errors.Is(err, user.ErrInvalidDOB):
		return KindBadRequest
	case errors.Is(err, user.ErrNotFound):
		return KindNotFound
	case errors.Is(err, user.ErrDuplicateEmail), errors.Is(err, user.ErrConcurrentUpdate):
		return KindConflict
	case errors.Is(err, user.ErrStoreUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// Code is the stable machine-readable code sent to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, user.ErrInvalidID):
		return "invalid_id"
	case errors.Is(err, user.ErrInvalidDOB):
		return "invalid_request"
	case errors.Is(err, user.ErrNotFound):
		return "not_found"
	case errors.Is(err, user.ErrDuplicateEmail):
		return "email_taken"
	case errors.Is(err, user.ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, user.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}
