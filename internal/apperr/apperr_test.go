package apperr_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/kiranshivaraju/jobmarket/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"not found", apperr.NotFound("job %s not found", "j1"), apperr.KindNotFound},
		{"conflict", apperr.Conflict("already applied"), apperr.KindConflict},
		{"forbidden", apperr.Forbidden("not your job"), apperr.KindForbidden},
		{"invalid transition", apperr.InvalidTransition("cannot withdraw an accepted application"), apperr.KindInvalidTransition},
		{"internal", apperr.Internal(errors.New("connection reset"), "load job"), apperr.KindInternal},
		{"unmarked", errors.New("boom"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("transition: %w", apperr.Conflict("already applied"))
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	err = errors.Wrap(apperr.InvalidTransition("no"), "outer")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	assert.False(t, errors.Is(err, apperr.ErrConflict))
}

func TestKindVisibleToStandardLibrary(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{apperr.NotFound("job %s not found", "j1"), apperr.ErrNotFound},
		{apperr.Conflict("already applied"), apperr.ErrConflict},
		{apperr.Forbidden("not your job"), apperr.ErrForbidden},
		{apperr.InvalidTransition("application is already withdrawn"), apperr.ErrInvalidTransition},
		{apperr.Internal(errors.New("connection reset"), "load job"), apperr.ErrInternal},
		{apperr.Internal(nil, "load job"), apperr.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.kind.Error(), func(t *testing.T) {
			assert.True(t, stderrors.Is(tt.err, tt.kind))
			assert.True(t, stderrors.Is(fmt.Errorf("svc: %w", tt.err), tt.kind))
			assert.ErrorIs(t, errors.Wrap(tt.err, "outer"), tt.kind)
			for _, other := range []error{apperr.ErrNotFound, apperr.ErrConflict, apperr.ErrForbidden, apperr.ErrInvalidTransition, apperr.ErrInternal} {
				if other != tt.kind {
					assert.False(t, stderrors.Is(tt.err, other), "matched %v", other)
				}
			}
		})
	}
}

func TestReason(t *testing.T) {
	err := apperr.InvalidTransition("cannot withdraw an accepted application")
	assert.Equal(t, "cannot withdraw an accepted application", apperr.Reason(err))

	wrapped := fmt.Errorf("svc: %w", err)
	assert.Equal(t, "cannot withdraw an accepted application", apperr.Reason(wrapped))
}

func TestReason_InternalIsGeneric(t *testing.T) {
	err := apperr.Internal(errors.New("pq: password authentication failed"), "connect")
	assert.Equal(t, "an unexpected error occurred", apperr.Reason(err))
	assert.Contains(t, err.Error(), "password authentication failed")
}
