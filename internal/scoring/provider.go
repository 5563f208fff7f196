// internal/scoring/provider.go
package scoring

import (
	"context"
	"time"
)

type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNeutral  Impact = "neutral"
	ImpactNegative Impact = "negative"
)

type Factor struct {
	Factor      string `json:"factor"`
	Impact      Impact `json:"impact"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

type HistoryPoint struct {
	Month string `json:"month"`
	Score int    `json:"score"`
}

type Tip struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Impact      string `json:"impact"`
}

type CreditReport struct {
	Score       int            `json:"score"`
	Grade       string         `json:"grade"`
	LastUpdated time.Time      `json:"last_updated"`
	Factors     []Factor       `json:"factors"`
	History     []HistoryPoint `json:"history"`
	Tips        []Tip          `json:"tips"`
}

// ScoringProvider produces a credit report for a user.
type ScoringProvider interface {
	CreditScore(ctx context.Context, userID string) (*CreditReport, error)
}

// Band names the range a score falls into.
func Band(score int) string {
	switch {
	case score >= 800:
		return "Excellent"
	case score >= 740:
		return "Very Good"
	case score >= 670:
		return "Good"
	case score >= 580:
		return "Fair"
	default:
		return "Poor"
	}
}
