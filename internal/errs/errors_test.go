package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "[not_found] table users", New(ErrKindNotFound, "table users").Error())

	cause := errors.New("boom")
	err := Wrap(ErrKindQueryFailed, "list tables", cause)
	assert.Equal(t, "[query_failed] list tables: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		kind ErrKind
		pred func(error) bool
	}{
		{"not found", ErrKindNotFound, IsNotFound},
		{"timeout", ErrKindTimeout, IsTimeout},
		{"connection", ErrKindConnectionFailed, IsConnectionFailed},
		{"query", ErrKindQueryFailed, IsQueryFailed},
		{"invalid input", ErrKindInvalidInput, IsInvalidInput},
		{"permission", ErrKindPermissionDenied, IsPermissionDenied},
		{"type resolution", ErrKindTypeResolution, IsTypeResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("outer: %w", New(tt.kind, "x"))
			assert.True(t, tt.pred(err))
			assert.False(t, tt.pred(errors.New("plain")))
		})
	}
}

func TestKindOf_Unknown(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
	assert.Equal(t, "unknown", ErrKindUnknown.String())
}
