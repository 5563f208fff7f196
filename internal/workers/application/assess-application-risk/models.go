// internal/workers/application/assess-application-risk/models.go
package assessapplicationrisk

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	RiskLevel      string `json:"riskLevel"`
	ReviewPriority string `json:"reviewPriority"`
	CreditBand     string `json:"creditBand,omitempty"`
}

// snapshot is the cached subset of an application used for scoring.
type snapshot struct {
	FundingAmountRequested float64 `json:"funding_amount_requested"`
	CreditScore            *int    `json:"credit_score,omitempty"`
	Status                 string  `json:"status"`
}

const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Amount thresholds shared with the admin dashboard.
const (
	highAmountThreshold   = 100000
	mediumAmountThreshold = 50000
	weakCreditThreshold   = 580
)
