// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema for one request payload.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile builds a Schema from a Go map definition.
func Compile(name string, definition map[string]interface{}) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(definition))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

func mustCompile(name string, definition map[string]interface{}) *Schema {
	s, err := Compile(name, definition)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a raw JSON document. Malformed JSON is reported as a BadRequestError.
func (s *Schema) Validate(document []byte) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, errors.NewBadRequestError(fmt.Sprintf("%s: malformed JSON: %v", s.name, err))
	}
	return toResult(result), nil
}

// ValidateValue checks an already decoded value such as job variables.
func (s *Schema) ValidateValue(value interface{}) (*ValidationResult, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return nil, errors.NewBadRequestError(fmt.Sprintf("%s: %v", s.name, err))
	}
	return toResult(result), nil
}

// Check validates document and returns a ValidationError listing every offending field.
func (s *Schema) Check(document []byte) error {
	result, err := s.Validate(document)
	if err != nil {
		return err
	}
	return result.Err()
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(re),
			Message: re.Description(),
			Code:    errorCode(re.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out
}

// fieldName reports the offending property. Required errors are raised on the
// parent object, so the missing property is appended to it.
func fieldName(re gojsonschema.ResultError) string {
	field := re.Field()
	if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
		field = ""
	}

	var prop string
	switch re.Type() {
	case "required":
		prop, _ = re.Details()["property"].(string)
	case "additional_property_not_allowed":
		prop, _ = re.Details()["property"].(string)
	}

	switch {
	case prop == "":
	case field == "":
		field = prop
	default:
		field = field + "." + prop
	}

	if field == "" {
		return "(root)"
	}
	return field
}

func errorCode(schemaType string) string {
	switch schemaType {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	case "invalid_type":
		return "INVALID_TYPE"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "number_gte", "number_gt":
		return "MINIMUM_VIOLATION"
	case "number_lte", "number_lt":
		return "MAXIMUM_VIOLATION"
	case "string_gte":
		return "MIN_LENGTH_VIOLATION"
	case "string_lte":
		return "MAX_LENGTH_VIOLATION"
	case "format":
		return "INVALID_FORMAT"
	default:
		return strings.ToUpper(schemaType)
	}
}

// Err converts a failed result into a ValidationError, or nil when valid.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	fields := make([]errors.FieldError, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		fields = append(fields, errors.FieldError{Field: e.Field, Code: e.Code, Message: e.Message})
	}
	return errors.NewValidationError(fields)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ==========================
// Request Schemas
// ==========================

func enumOf[T ~string](values []T) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func str() map[string]interface{} {
	return map[string]interface{}{"type": "string"}
}

func nonNegative() map[string]interface{} {
	return map[string]interface{}{"type": "number", "minimum": 0}
}

var detailsSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"business_registration_number": str(),
		"years_in_operation":           map[string]interface{}{"type": "integer", "minimum": 0},
		"number_of_employees":          map[string]interface{}{"type": "integer", "minimum": 0},
		"annual_revenue":               nonNegative(),
		"project_timeline":             str(),
		"expected_outcomes":            str(),
		"monthly_income":               nonNegative(),
		"monthly_expenses":             nonNegative(),
		"existing_debts":               nonNegative(),
		"bank_statements_provided":     map[string]interface{}{"type": "boolean"},
		"portfolio_url":                str(),
		"previous_projects":            str(),
		"awards_recognition":           str(),
		"media_coverage":               str(),
		"social_impact_description":    str(),
		"community_benefit":            str(),
		"sustainability_measures":      str(),
		"business_plan_url":            str(),
		"financial_statements_url":     str(),
		"identity_document_url":        str(),
		"portfolio_documents":          map[string]interface{}{"type": "array", "items": str()},
	},
}

// ApplicationFieldsSchema accepts the owner-editable fields only; status,
// ownership and review metadata are rejected as extra fields.
var ApplicationFieldsSchema = mustCompile("application_fields", map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"application_type":         map[string]interface{}{"type": "string", "enum": enumOf(models.ApplicationTypes)},
		"creative_sector":          map[string]interface{}{"type": "string", "enum": enumOf(models.CreativeSectors)},
		"business_stage":           map[string]interface{}{"type": "string", "enum": enumOf(models.BusinessStages)},
		"business_name":            map[string]interface{}{"type": "string", "maxLength": 200},
		"business_description":     str(),
		"project_title":            map[string]interface{}{"type": "string", "maxLength": 200},
		"project_description":      str(),
		"funding_purpose":          str(),
		"funding_amount_requested": nonNegative(),
		"credit_score":             map[string]interface{}{"type": "integer", "minimum": 300, "maximum": 850},
		"details":                  detailsSchema,
	},
})

// ReviewSchema validates reviewer decisions.
var ReviewSchema = mustCompile("review", map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []interface{}{"status"},
	"properties": map[string]interface{}{
		"status": map[string]interface{}{"type": "string", "enum": enumOf([]models.Status{
			models.StatusUnderReview,
			models.StatusApproved,
			models.StatusRejected,
			models.StatusPendingDocuments,
		})},
		"review_notes": map[string]interface{}{"type": "string", "maxLength": 5000},
	},
})

// CommentSchema validates new application comments.
var CommentSchema = mustCompile("comment", map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []interface{}{"comment"},
	"properties": map[string]interface{}{
		"comment":     map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 5000},
		"is_internal": map[string]interface{}{"type": "boolean"},
	},
})

// ChatMessageSchema validates assistant messages.
var ChatMessageSchema = mustCompile("chat_message", map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []interface{}{"message"},
	"properties": map[string]interface{}{
		"message":    map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 2000},
		"session_id": str(),
	},
})

// CredentialsSchema validates sign-in and sign-up bodies.
var CredentialsSchema = mustCompile("credentials", map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"email", "password"},
	"properties": map[string]interface{}{
		"email":    map[string]interface{}{"type": "string", "minLength": 3},
		"password": map[string]interface{}{"type": "string", "minLength": 1},
		"next":     str(),
	},
})

// SubmissionVariablesSchema validates the job variables of the submission check worker.
var SubmissionVariablesSchema = mustCompile("submission_variables", map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"applicationId", "application"},
	"properties": map[string]interface{}{
		"applicationId": map[string]interface{}{"type": "string", "minLength": 1},
		"application":   map[string]interface{}{"type": "object"},
	},
})
