// internal/scoring/mock.go
package scoring

import (
	"context"
	"time"
)

// MockScoringProvider returns the same fixed report for every user.
type MockScoringProvider struct {
	now func() time.Time
}

func NewMockScoringProvider() *MockScoringProvider {
	return &MockScoringProvider{now: func() time.Time { return time.Now().UTC() }}
}

func (m *MockScoringProvider) CreditScore(ctx context.Context, userID string) (*CreditReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	const score = 720
	return &CreditReport{
		Score:       score,
		Grade:       Band(score),
		LastUpdated: m.now(),
		Factors: []Factor{
			{
				Factor:      "Payment History",
				Impact:      ImpactPositive,
				Description: "You have consistently made payments on time for the past 12 months. Keep maintaining this excellent payment record.",
				Weight:      9,
			},
			{
				Factor:      "Credit Utilization",
				Impact:      ImpactPositive,
				Description: "Your credit utilization is at 25%, which is within the recommended range of under 30%. Consider reducing it to under 10% for an excellent score.",
				Weight:      7,
			},
			{
				Factor:      "Credit History Length",
				Impact:      ImpactNeutral,
				Description: "Your credit history is 3 years old, which is moderate. A longer credit history will improve your score over time.",
				Weight:      6,
			},
			{
				Factor:      "Credit Mix",
				Impact:      ImpactPositive,
				Description: "You have a good mix of credit types including loans and credit cards, which demonstrates responsible credit management.",
				Weight:      8,
			},
			{
				Factor:      "New Credit",
				Impact:      ImpactNegative,
				Description: "You've opened 2 new accounts in the past 6 months. Avoid opening new accounts frequently to improve your score.",
				Weight:      4,
			},
		},
		History: []HistoryPoint{
			{Month: "Jan 2024", Score: 680},
			{Month: "Feb 2024", Score: 690},
			{Month: "Mar 2024", Score: 700},
			{Month: "Apr 2024", Score: 705},
			{Month: "May 2024", Score: 710},
			{Month: "Jun 2024", Score: 720},
		},
		Tips: []Tip{
			{
				Title:       "Lower Credit Utilization",
				Description: "Aim to use less than 10% of your available credit limit",
				Priority:    "High",
				Impact:      "+20-30 points",
			},
			{
				Title:       "Pay Bills on Time",
				Description: "Set up automatic payments to never miss a due date",
				Priority:    "High",
				Impact:      "+35-50 points",
			},
			{
				Title:       "Keep Old Accounts Open",
				Description: "Maintain older credit accounts to increase your credit history length",
				Priority:    "Medium",
				Impact:      "+10-15 points",
			},
			{
				Title:       "Diversify Credit Types",
				Description: "Consider adding different types of credit (installment loans, etc.)",
				Priority:    "Low",
				Impact:      "+5-10 points",
			},
		},
	}, nil
}
