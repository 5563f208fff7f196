// internal/models/application.go
package models

import "time"

// Status is the lifecycle state of an application.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusPendingDocuments Status = "pending_documents"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusPendingDocuments,
	StatusApproved,
	StatusRejected,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type ApplicationType string

const (
	TypeGrant      ApplicationType = "grant"
	TypeLoan       ApplicationType = "loan"
	TypeInvestment ApplicationType = "investment"
)

var ApplicationTypes = []ApplicationType{TypeGrant, TypeLoan, TypeInvestment}

func (t ApplicationType) Valid() bool {
	for _, known := range ApplicationTypes {
		if t == known {
			return true
		}
	}
	return false
}

type CreativeSector string

const (
	SectorVisualArtsCrafts        CreativeSector = "visual_arts_crafts"
	SectorPerformingArts          CreativeSector = "performing_arts"
	SectorMusic                   CreativeSector = "music"
	SectorFilmTVVideo             CreativeSector = "film_tv_video"
	SectorPublishingLiterature    CreativeSector = "publishing_literature"
	SectorDesignCreativeServices  CreativeSector = "design_creative_services"
	SectorDigitalInteractiveMedia CreativeSector = "digital_interactive_media"
	SectorFashionTextiles         CreativeSector = "fashion_textiles"
	SectorPhotography             CreativeSector = "photography"
	SectorArchitecture            CreativeSector = "architecture"
	SectorCulturalHeritage        CreativeSector = "cultural_heritage"
	SectorGamingEsports           CreativeSector = "gaming_esports"
)

var CreativeSectors = []CreativeSector{
	SectorVisualArtsCrafts,
	SectorPerformingArts,
	SectorMusic,
	SectorFilmTVVideo,
	SectorPublishingLiterature,
	SectorDesignCreativeServices,
	SectorDigitalInteractiveMedia,
	SectorFashionTextiles,
	SectorPhotography,
	SectorArchitecture,
	SectorCulturalHeritage,
	SectorGamingEsports,
}

func (c CreativeSector) Valid() bool {
	for _, known := range CreativeSectors {
		if c == known {
			return true
		}
	}
	return false
}

type BusinessStage string

const (
	StageIdea        BusinessStage = "idea"
	StageStartup     BusinessStage = "startup"
	StageGrowth      BusinessStage = "growth"
	StageEstablished BusinessStage = "established"
	StageExpansion   BusinessStage = "expansion"
)

var BusinessStages = []BusinessStage{StageIdea, StageStartup, StageGrowth, StageEstablished, StageExpansion}

func (b BusinessStage) Valid() bool {
	for _, known := range BusinessStages {
		if b == known {
			return true
		}
	}
	return false
}

// Application is a funding request owned by a single user.
type Application struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	ApplicationType ApplicationType `json:"application_type"`
	CreativeSector  CreativeSector  `json:"creative_sector"`
	BusinessStage   BusinessStage   `json:"business_stage"`

	BusinessName        string `json:"business_name"`
	BusinessDescription string `json:"business_description"`
	ProjectTitle        string `json:"project_title"`
	ProjectDescription  string `json:"project_description"`
	FundingPurpose      string `json:"funding_purpose"`

	FundingAmountRequested float64 `json:"funding_amount_requested"`
	CreditScore            *int    `json:"credit_score,omitempty"`

	// Optional attributes are stored together in a JSONB column.
	ApplicationDetails

	Status      Status     `json:"status"`
	ReviewedBy  *string    `json:"reviewed_by,omitempty"`
	ReviewNotes *string    `json:"review_notes,omitempty"`
	ReviewDate  *time.Time `json:"review_date,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// ApplicationDetails holds the free-text and financial attributes that carry no rules.
type ApplicationDetails struct {
	BusinessRegistrationNumber *string  `json:"business_registration_number,omitempty"`
	YearsInOperation           *int     `json:"years_in_operation,omitempty"`
	NumberOfEmployees          *int     `json:"number_of_employees,omitempty"`
	AnnualRevenue              *float64 `json:"annual_revenue,omitempty"`

	ProjectTimeline  *string `json:"project_timeline,omitempty"`
	ExpectedOutcomes *string `json:"expected_outcomes,omitempty"`

	MonthlyIncome          *float64 `json:"monthly_income,omitempty"`
	MonthlyExpenses        *float64 `json:"monthly_expenses,omitempty"`
	ExistingDebts          *float64 `json:"existing_debts,omitempty"`
	BankStatementsProvided *bool    `json:"bank_statements_provided,omitempty"`

	PortfolioURL      *string `json:"portfolio_url,omitempty"`
	PreviousProjects  *string `json:"previous_projects,omitempty"`
	AwardsRecognition *string `json:"awards_recognition,omitempty"`
	MediaCoverage     *string `json:"media_coverage,omitempty"`

	SocialImpactDescription *string `json:"social_impact_description,omitempty"`
	CommunityBenefit        *string `json:"community_benefit,omitempty"`
	SustainabilityMeasures  *string `json:"sustainability_measures,omitempty"`

	BusinessPlanURL        *string  `json:"business_plan_url,omitempty"`
	FinancialStatementsURL *string  `json:"financial_statements_url,omitempty"`
	IdentityDocumentURL    *string  `json:"identity_document_url,omitempty"`
	PortfolioDocuments     []string `json:"portfolio_documents,omitempty"`
}

// ApplicationFields is the owner-editable subset of an application.
// Nil members are left untouched when applied as a patch.
type ApplicationFields struct {
	ApplicationType *ApplicationType `json:"application_type,omitempty"`
	CreativeSector  *CreativeSector  `json:"creative_sector,omitempty"`
	BusinessStage   *BusinessStage   `json:"business_stage,omitempty"`

	BusinessName        *string `json:"business_name,omitempty"`
	BusinessDescription *string `json:"business_description,omitempty"`
	ProjectTitle        *string `json:"project_title,omitempty"`
	ProjectDescription  *string `json:"project_description,omitempty"`
	FundingPurpose      *string `json:"funding_purpose,omitempty"`

	FundingAmountRequested *float64 `json:"funding_amount_requested,omitempty"`
	CreditScore            *int     `json:"credit_score,omitempty"`

	Details *ApplicationDetails `json:"details,omitempty"`
}

// Actor is whoever is performing an operation.
type Actor struct {
	UserID         string
	HasAdminAccess bool
}
