package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-funding/internal/common/errors"
)

// ==========================
// Application Fields Tests
// ==========================

func TestApplicationFieldsSchema(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		valid      bool
		fieldError string
	}{
		{
			name:  "partial draft",
			body:  `{"business_name": "Studio Nine", "funding_amount_requested": 0}`,
			valid: true,
		},
		{
			name:  "full draft with details",
			body:  `{"application_type": "loan", "creative_sector": "music", "business_stage": "growth", "credit_score": 700, "details": {"portfolio_documents": ["a.pdf"], "bank_statements_provided": true}}`,
			valid: true,
		},
		{
			name:       "status is not owner editable",
			body:       `{"business_name": "Studio Nine", "status": "approved"}`,
			fieldError: "status",
		},
		{
			name:       "unknown sector",
			body:       `{"creative_sector": "mining"}`,
			fieldError: "creative_sector",
		},
		{
			name:       "negative amount",
			body:       `{"funding_amount_requested": -5}`,
			fieldError: "funding_amount_requested",
		},
		{
			name:       "credit score out of range",
			body:       `{"credit_score": 900}`,
			fieldError: "credit_score",
		},
		{
			name:       "nested detail type",
			body:       `{"details": {"years_in_operation": "three"}}`,
			fieldError: "details.years_in_operation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ApplicationFieldsSchema.Validate([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.GetErrorMessages())
			if tt.fieldError != "" {
				assert.True(t, result.HasErrors(tt.fieldError), result.GetErrorMessages())
			}
		})
	}
}

func TestSchema_MalformedJSON(t *testing.T) {
	_, err := ApplicationFieldsSchema.Validate([]byte(`{"business_name":`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBadRequest)
}

// ==========================
// Request Schema Tests
// ==========================

func TestReviewSchema_RequiresKnownStatus(t *testing.T) {
	err := ReviewSchema.Check([]byte(`{"review_notes": "ok"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, []string{"status"}, stdErr.FieldNames())

	assert.Error(t, ReviewSchema.Check([]byte(`{"status": "draft"}`)))
	assert.NoError(t, ReviewSchema.Check([]byte(`{"status": "approved", "review_notes": "ok"}`)))
}

func TestChatMessageSchema(t *testing.T) {
	assert.NoError(t, ChatMessageSchema.Check([]byte(`{"message": "how do I start?"}`)))
	assert.Error(t, ChatMessageSchema.Check([]byte(`{"message": ""}`)))
	assert.Error(t, ChatMessageSchema.Check([]byte(`{}`)))
}

func TestCommentSchema(t *testing.T) {
	assert.NoError(t, CommentSchema.Check([]byte(`{"comment": "needs bank statements", "is_internal": true}`)))
	assert.Error(t, CommentSchema.Check([]byte(`{"comment": "x", "is_internal": "yes"}`)))
}

func TestSubmissionVariablesSchema_ValidateValue(t *testing.T) {
	result, err := SubmissionVariablesSchema.ValidateValue(map[string]interface{}{
		"applicationId": "app-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("application"))
}
