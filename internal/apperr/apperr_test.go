package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayofalola240/Okra-assessment/internal/domain/user"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantCode string
	}{
		{name: "invalid id", err: user.ErrInvalidID, wantKind: KindBadRequest, wantCode: "invalid_id"},
		{name: "invalid dob wrapped", err: fmt.Errorf("%w: parse", user.ErrInvalidDOB), wantKind: KindBadRequest, wantCode: "invalid_request"},
		{name: "not found", err: user.ErrNotFound, wantKind: KindNotFound, wantCode: "not_found"},
		{name: "duplicate", err: user.ErrDuplicateEmail, wantKind: KindConflict, wantCode: "email_taken"},
		{name: "concurrent", err: user.ErrConcurrentUpdate, wantKind: KindConflict, wantCode: "concurrent_update"},
		{name: "store down wrapped", err: fmt.Errorf("users.find: %w", user.ErrStoreUnavailable), wantKind: KindUnavailable, wantCode: "store_unavailable"},
		{name: "unknown", err: errors.New("boom"), wantKind: KindInternal, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, KindOf(tt.err))
			assert.Equal(t, tt.wantCode, Code(tt.err))
		})
	}
}
