package core_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
)

func TestValidationError(t *testing.T) {
	errInvalid := errors.New("invalid payload")

	tests := []struct {
		name      string
		err       error
		wantMsg   string
		wantField map[string]string
	}{
		{
			name:      "single field",
			err:       core.NewFieldError("mode", "unknown course mode"),
			wantMsg:   "mode: unknown course mode",
			wantField: map[string]string{"mode": "unknown course mode"},
		},
		{
			name: "several fields",
			err: core.NewValidationError(nil,
				core.FieldError{Field: "course_id", Error: "this field is required"},
				core.FieldError{Field: "mode", Error: "unknown course mode"},
				core.FieldError{Field: "mode", Error: "ignored"},
			),
			wantMsg:   "course_id: this field is required; mode: unknown course mode; mode: ignored",
			wantField: map[string]string{"course_id": "this field is required", "mode": "unknown course mode"},
		},
		{
			name:    "wrapped error",
			err:     core.NewValidationError(errInvalid),
			wantMsg: "invalid payload",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())

			var verr *core.ValidationError
			require.True(t, errors.As(errors.Wrap(tt.err, "enrolling"), &verr))
			assert.Equal(t, tt.wantField, verr.FieldMap())
		})
	}

	t.Run("unwrap", func(t *testing.T) {
		err := core.NewValidationError(errInvalid)
		assert.True(t, errors.Is(err, errInvalid))
	})
}

func TestIsShutdown(t *testing.T) {
	err := core.NewShutdownError("database connection lost")
	assert.True(t, core.IsShutdown(err))
	assert.True(t, core.IsShutdown(errors.Wrap(err, "beginning transaction")))
	assert.False(t, core.IsShutdown(errors.New("database connection lost")))
}
