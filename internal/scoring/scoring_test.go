package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Band Tests
// ==========================

func TestBand(t *testing.T) {
	tests := []struct {
		score    int
		expected string
	}{
		{850, "Excellent"},
		{800, "Excellent"},
		{799, "Very Good"},
		{740, "Very Good"},
		{739, "Good"},
		{670, "Good"},
		{669, "Fair"},
		{580, "Fair"},
		{579, "Poor"},
		{300, "Poor"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Band(tt.score), "score %d", tt.score)
	}
}

// ==========================
// Mock Provider Tests
// ==========================

func TestMockScoringProvider_Report(t *testing.T) {
	report, err := NewMockScoringProvider().CreditScore(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 720, report.Score)
	assert.Equal(t, "Good", report.Grade)
	require.Len(t, report.Factors, 5)
	assert.Equal(t, Factor{Factor: "New Credit", Impact: ImpactNegative, Description: report.Factors[4].Description, Weight: 4}, report.Factors[4])

	require.Len(t, report.History, 6)
	assert.Equal(t, 680, report.History[0].Score)
	assert.Equal(t, report.Score, report.History[5].Score)

	require.Len(t, report.Tips, 4)
	assert.Equal(t, "+35-50 points", report.Tips[1].Impact)
}

func TestMockScoringProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockScoringProvider().CreditScore(ctx, "user-1")
	assert.ErrorIs(t, err, context.Canceled)
}

// ==========================
// Assistant Tests
// ==========================

func TestKeywordAssistant_Routing(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{name: "application", message: "Give me tips to improve my funding application", expected: applicationReply},
		{name: "credit", message: "How can I improve my CREDIT?", expected: creditReply},
		{name: "score", message: "what is my score", expected: creditReply},
		{name: "funding", message: "What funding is out there", expected: fundingReply},
		{name: "opportunities", message: "any opportunities for film?", expected: fundingReply},
		{name: "strategy", message: "best strategy", expected: successfulReply},
		{name: "earlier rule wins", message: "What makes a funding application successful?", expected: applicationReply},
		{name: "credit before funding", message: "funding and credit", expected: creditReply},
		{name: "fallback", message: "hello there", expected: defaultReply},
	}

	assistant := NewKeywordAssistant()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := assistant.Reply(context.Background(), tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, reply)
		})
	}
}
