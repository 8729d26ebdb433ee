package validation

import (
	"testing"

	jv "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vaultcore/vaultcore/internal/errors"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "simple", value: "db-1", wantErr: false},
		{name: "underscore", value: "conn_primary", wantErr: false},
		{name: "digits", value: "42", wantErr: false},
		{name: "path traversal", value: "../etc", wantErr: true},
		{name: "spaces", value: "my conn", wantErr: true},
		{name: "empty", value: "", wantErr: false}, // emptiness is Required's job
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := jv.Validate(tt.value, Identifier)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, jv.Validate("x", NotBlank))
	assert.Error(t, jv.Validate("   ", NotBlank))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, jv.Validate("value", NoWhitespace))
	assert.Error(t, jv.Validate(" value", NoWhitespace))
	assert.Error(t, jv.Validate("value ", NoWhitespace))
}

func TestWrapValidationError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("wraps as invalid input", func(t *testing.T) {
		err := WrapValidationError(jv.Validate("  ", NotBlank))
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
