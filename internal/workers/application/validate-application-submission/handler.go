// internal/workers/application/validate-application-submission/handler.go
package validateapplicationsubmission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/metrics"
	"creative-funding/internal/common/validation"
	"creative-funding/internal/lifecycle"
)

const (
	TaskType = "validate-application-submission"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parse(job.Variables)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output := h.execute(input)

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// parse rejects variables that do not carry an application at all.
func (h *Handler) parse(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, errors.NewApplicationValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}

	result, err := validation.SubmissionVariablesSchema.ValidateValue(raw)
	if err != nil {
		return nil, errors.NewApplicationValidationFailedError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewApplicationValidationFailedError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewApplicationValidationFailedError(fmt.Sprintf("decode application: %v", err))
	}
	return &input, nil
}

func (h *Handler) Execute(_ context.Context, variables string) (*Output, error) {
	input, err := h.parse(variables)
	if err != nil {
		return nil, err
	}
	return h.execute(input), nil
}

func (h *Handler) execute(input *Input) *Output {
	fieldErrors := lifecycle.ValidateForSubmission(&input.Application)
	if fieldErrors == nil {
		fieldErrors = []errors.FieldError{}
	}

	h.logger.Info("submission validated", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"valid":         len(fieldErrors) == 0,
		"errorCount":    len(fieldErrors),
	})

	return &Output{
		Valid:  len(fieldErrors) == 0,
		Errors: fieldErrors,
	}
}
