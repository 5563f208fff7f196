// internal/applications/stats.go
package applications

import (
	"math"

	"creative-funding/internal/models"
)

// RiskBuckets are dashboard flags and may overlap: a rejected mid-sized
// request counts as both high and medium.
type RiskBuckets struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Stats summarises every application for the admin dashboard.
type Stats struct {
	Total              int         `json:"total"`
	Submitted          int         `json:"submitted"`
	Approved           int         `json:"approved"`
	ApprovedFunding    float64     `json:"approved_funding"`
	AverageCreditScore int         `json:"average_credit_score"`
	Pending            int         `json:"pending"`
	Rejected           int         `json:"rejected"`
	Risk               RiskBuckets `json:"risk"`
}

// ComputeStats folds apps into dashboard counters.
func ComputeStats(apps []*models.Application) Stats {
	var s Stats
	var scoreSum, scored int

	s.Total = len(apps)
	for _, app := range apps {
		switch app.Status {
		case models.StatusSubmitted, models.StatusUnderReview:
			s.Pending++
		case models.StatusApproved:
			s.Approved++
			s.ApprovedFunding += app.FundingAmountRequested
		case models.StatusRejected:
			s.Rejected++
		}

		if hasBeenDecidedOrQueued(app.Status) {
			s.Submitted++
			// Unscored applications are left out of the average rather than counted as 0.
			if app.CreditScore != nil {
				scoreSum += *app.CreditScore
				scored++
			}
		}

		amount := app.FundingAmountRequested
		if amount > 100000 || app.Status == models.StatusRejected {
			s.Risk.High++
		}
		if amount >= 50000 && amount <= 100000 {
			s.Risk.Medium++
		}
		if amount < 50000 && app.Status == models.StatusApproved {
			s.Risk.Low++
		}
	}

	if scored > 0 {
		s.AverageCreditScore = int(math.Round(float64(scoreSum) / float64(scored)))
	}
	return s
}

func hasBeenDecidedOrQueued(status models.Status) bool {
	switch status {
	case models.StatusSubmitted, models.StatusUnderReview, models.StatusApproved, models.StatusRejected:
		return true
	}
	return false
}
