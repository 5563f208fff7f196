// internal/workers/application/validate-application-submission/handler_test.go
package validateapplicationsubmission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

const completeApplication = `{
	"applicationId": "app-001",
	"application": {
		"id": "app-001",
		"application_type": "grant",
		"creative_sector": "music",
		"business_stage": "startup",
		"business_name": "Echo Rooms",
		"business_description": "Rehearsal studios",
		"project_title": "Soundproofing",
		"project_description": "Acoustic treatment for two rooms",
		"funding_purpose": "Equipment",
		"funding_amount_requested": 50000,
		"status": "submitted"
	}
}`

func newHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CompleteApplication(t *testing.T) {
	output, err := newHandler(t).Execute(context.Background(), completeApplication)

	require.NoError(t, err)
	assert.True(t, output.Valid)
	assert.Empty(t, output.Errors)
	assert.NotNil(t, output.Errors)
}

func TestHandler_Execute_ReportsMissingFields(t *testing.T) {
	vars := `{"applicationId": "app-002", "application": {"business_name": "", "creative_sector": "mining", "funding_amount_requested": 0}}`

	output, err := newHandler(t).Execute(context.Background(), vars)
	require.NoError(t, err)
	assert.False(t, output.Valid)

	fields := make([]string, 0, len(output.Errors))
	for _, fe := range output.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "business_name")
	assert.Contains(t, fields, "funding_amount_requested")
	assert.Contains(t, fields, "creative_sector")
}

// ==========================
// Edge Cases
// ==========================

func TestHandler_Execute_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		vars string
	}{
		{name: "not json", vars: `{"applicationId":`},
		{name: "missing application", vars: `{"applicationId": "app-003"}`},
		{name: "application not an object", vars: `{"applicationId": "app-003", "application": "draft"}`},
		{name: "wrong amount type", vars: `{"applicationId": "app-003", "application": {"funding_amount_requested": "lots"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newHandler(t).Execute(context.Background(), tt.vars)
			require.Error(t, err)

			bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
			assert.Equal(t, string(errors.ErrCodeApplicationValidationFailed), bpmn.Code)
			assert.Zero(t, bpmn.Retries)
		})
	}
}
