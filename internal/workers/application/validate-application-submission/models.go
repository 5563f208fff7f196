// internal/workers/application/validate-application-submission/models.go
package validateapplicationsubmission

import (
	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

type Input struct {
	ApplicationID string             `json:"applicationId"`
	Application   models.Application `json:"application"`
}

type Output struct {
	Valid  bool                `json:"valid"`
	Errors []errors.FieldError `json:"errors"`
}
