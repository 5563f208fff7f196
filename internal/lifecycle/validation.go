// internal/lifecycle/validation.go
package lifecycle

import (
	"fmt"
	"strings"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

// Field error codes.
const (
	CodeMissingRequired = "MISSING_REQUIRED"
	CodeInvalidValue    = "INVALID_VALUE"
	CodeBelowMinimum    = "BELOW_MINIMUM"
)

// RequiredFields are the descriptive fields that must be non-empty before submission.
var RequiredFields = []string{
	"business_name",
	"business_description",
	"creative_sector",
	"business_stage",
	"project_title",
	"project_description",
	"funding_purpose",
}

func requiredValue(app *models.Application, field string) string {
	switch field {
	case "business_name":
		return app.BusinessName
	case "business_description":
		return app.BusinessDescription
	case "creative_sector":
		return string(app.CreativeSector)
	case "business_stage":
		return string(app.BusinessStage)
	case "project_title":
		return app.ProjectTitle
	case "project_description":
		return app.ProjectDescription
	case "funding_purpose":
		return app.FundingPurpose
	}
	return ""
}

// ValidateForSubmission returns every reason app cannot leave draft, in field order.
func ValidateForSubmission(app *models.Application) []errors.FieldError {
	var errs []errors.FieldError

	for _, field := range RequiredFields {
		if strings.TrimSpace(requiredValue(app, field)) == "" {
			errs = append(errs, errors.FieldError{
				Field:   field,
				Code:    CodeMissingRequired,
				Message: fmt.Sprintf("%s is required", field),
			})
		}
	}

	if !(app.FundingAmountRequested > 0) {
		errs = append(errs, errors.FieldError{
			Field:   "funding_amount_requested",
			Code:    CodeBelowMinimum,
			Message: "funding_amount_requested must be greater than 0",
		})
	}

	errs = append(errs, validateEnums(app.ApplicationType, app.CreativeSector, app.BusinessStage)...)
	return errs
}

// ValidateFields checks the values an owner supplies, independent of completeness.
func ValidateFields(f models.ApplicationFields) []errors.FieldError {
	var errs []errors.FieldError

	var appType models.ApplicationType
	var sector models.CreativeSector
	var stage models.BusinessStage
	if f.ApplicationType != nil {
		appType = *f.ApplicationType
	}
	if f.CreativeSector != nil {
		sector = *f.CreativeSector
	}
	if f.BusinessStage != nil {
		stage = *f.BusinessStage
	}
	errs = append(errs, validateEnums(appType, sector, stage)...)

	if f.FundingAmountRequested != nil && *f.FundingAmountRequested < 0 {
		errs = append(errs, errors.FieldError{
			Field:   "funding_amount_requested",
			Code:    CodeBelowMinimum,
			Message: "funding_amount_requested must not be negative",
		})
	}

	if f.CreditScore != nil && (*f.CreditScore < 300 || *f.CreditScore > 850) {
		errs = append(errs, errors.FieldError{
			Field:   "credit_score",
			Code:    CodeInvalidValue,
			Message: "credit_score must be between 300 and 850",
		})
	}

	return errs
}

// validateEnums accepts empty values; completeness is checked separately.
func validateEnums(appType models.ApplicationType, sector models.CreativeSector, stage models.BusinessStage) []errors.FieldError {
	var errs []errors.FieldError
	if appType != "" && !appType.Valid() {
		errs = append(errs, invalidValue("application_type", string(appType)))
	}
	if sector != "" && !sector.Valid() {
		errs = append(errs, invalidValue("creative_sector", string(sector)))
	}
	if stage != "" && !stage.Valid() {
		errs = append(errs, invalidValue("business_stage", string(stage)))
	}
	return errs
}

func invalidValue(field, value string) errors.FieldError {
	return errors.FieldError{
		Field:   field,
		Code:    CodeInvalidValue,
		Message: fmt.Sprintf("%q is not a valid %s", value, field),
	}
}
