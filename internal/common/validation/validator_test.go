package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complaint-service/internal/common/errors"
)

type complaintPayload struct {
	Text     string  `json:"text" validate:"required,not_blank,min=10,max=1000"`
	Category string  `json:"category" validate:"omitempty,oneof=technical payment other"`
	Status   *string `json:"status" validate:"omitempty,oneof=open closed"`
}

type datePayload struct {
	StartDate string `json:"start_date" validate:"omitempty,query_timestamp"`
}

func strPtr(s string) *string { return &s }

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
		wantErr string
	}{
		{"valid", complaintPayload{Text: "Не приходит SMS с кодом"}, ""},
		{"missing text", complaintPayload{}, "field 'text' is required"},
		{"blank text", complaintPayload{Text: "             "}, "field 'text' must not be blank"},
		{"short text", complaintPayload{Text: "too short"}, "field 'text' must be at least 10 characters"},
		{"long text", complaintPayload{Text: strings.Repeat("a", 1001)}, "field 'text' must be at most 1000 characters"},
		{"ten cyrillic runes", complaintPayload{Text: "жалобажало"}, ""},
		{"bad category", complaintPayload{Text: "valid text here", Category: "billing"}, "field 'category' must be one of: technical payment other"},
		{"nil status", complaintPayload{Text: "valid text here", Status: nil}, ""},
		{"bad status", complaintPayload{Text: "valid text here", Status: strPtr("pending")}, "field 'status' must be one of: open closed"},
		{"good date", datePayload{StartDate: "2025-01-15T00:00:00"}, ""},
		{"date only", datePayload{StartDate: "2025-01-15"}, "field 'start_date' must have the format YYYY-MM-DDTHH:MM:SS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	err := ValidateStruct(complaintPayload{Category: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed:")
	assert.Contains(t, err.Error(), "'text'")
	assert.Contains(t, err.Error(), "'category'")
}

func TestValidateStructResult(t *testing.T) {
	result := ValidateStructResult(complaintPayload{Text: "short"})
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "text", result.Errors[0].Field)
	assert.Equal(t, "min", result.Errors[0].Tag)
	assert.Equal(t, "10", result.Errors[0].Param)

	result = ValidateStructResult(complaintPayload{Text: "long enough text"})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar(50, "min=1,max=100"))
	assert.Error(t, ValidateVar(0, "min=1,max=100"))
	assert.Error(t, ValidateVar(101, "min=1,max=100"))
}
