// internal/workers/application/send-decision-notification/handler.go
package senddecisionnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/metrics"
	"creative-funding/internal/models"
)

const (
	TaskType = "send-decision-notification"
)

var (
	ErrRecipientNotFound = stderrors.New("RECIPIENT_NOT_FOUND")
)

// EmailSender and SMSSender are satisfied by the aws package senders.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config       *Config
	db           *sql.DB
	email        EmailSender
	sms          SMSSender
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	templates    map[models.Status]template
}

func NewHandler(config *Config, db *sql.DB, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		email:        email,
		sms:          sms,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
		templates:    loadTemplates(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewBadRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	status := models.Status(input.Status)
	tmpl, exists := h.templates[status]
	if !exists {
		return nil, errors.NewBadRequestError(fmt.Sprintf("no decision template for status %q", input.Status))
	}

	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)

	email, phone, err := h.getRecipientContact(ctx, input.UserID)
	if err != nil {
		if !stderrors.Is(err, ErrRecipientNotFound) {
			return nil, errors.NewQueryExecutionFailedError("recipient_contact", err)
		}
		h.logger.Warn("recipient not found", map[string]interface{}{
			"userId":        input.UserID,
			"applicationId": input.ApplicationID,
		})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	data := map[string]interface{}{
		"applicationId": input.ApplicationID,
		"projectTitle":  input.ProjectTitle,
		"reviewNotes":   input.ReviewNotes,
		"portalUrl":     h.config.PortalURL,
	}
	if input.ProjectTitle == "" {
		data["projectTitle"] = "your project"
	}

	var channels []string

	if h.config.EmailEnabled && h.email != nil && email != "" {
		subject := renderTemplate(tmpl.Subject, data)
		body := renderTemplate(tmpl.Body, data)
		if _, err := h.email.Send(ctx, email, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":         err.Error(),
				"applicationId": input.ApplicationID,
			})
			return &Output{NotificationID: notificationID, Status: StatusFailed, SentAt: sentAt}, nil
		}
		channels = append(channels, ChannelEmail)
	}

	// SMS only for final decisions
	if h.config.SMSEnabled && h.sms != nil && phone != "" && status.Terminal() {
		if _, err := h.sms.Send(ctx, phone, renderTemplate(tmpl.SMS, data)); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":         err.Error(),
				"applicationId": input.ApplicationID,
			})
			return &Output{NotificationID: notificationID, Status: StatusFailed, Channels: channels, SentAt: sentAt}, nil
		}
		channels = append(channels, ChannelSMS)
	}

	result := StatusDisabled
	if len(channels) > 0 {
		result = StatusSent
	}

	h.logger.Info("decision notification processed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"status":        input.Status,
		"result":        result,
		"channels":      channels,
	})

	return &Output{
		NotificationID: notificationID,
		Status:         result,
		Channels:       channels,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) getRecipientContact(ctx context.Context, userID string) (string, string, error) {
	var email string
	var phone sql.NullString

	err := h.db.QueryRowContext(ctx, `SELECT email, phone FROM user_profiles WHERE id = $1`, userID).Scan(&email, &phone)
	if err == sql.ErrNoRows {
		return "", "", ErrRecipientNotFound
	}
	if err != nil {
		return "", "", err
	}
	return email, phone.String, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
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
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// renderTemplate substitutes {{key}} placeholders and drops unknown ones.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}

	return result
}

func loadTemplates() map[models.Status]template {
	return map[models.Status]template{
		models.StatusSubmitted: {
			Subject: "Application received: {{projectTitle}}",
			Body:    "Thank you! Your funding application {{applicationId}} for {{projectTitle}} has been submitted and is waiting for review.",
		},
		models.StatusUnderReview: {
			Subject: "Your application is under review",
			Body:    "A reviewer has started assessing your application for {{projectTitle}}. Track progress at {{portalUrl}}/dashboard.",
		},
		models.StatusPendingDocuments: {
			Subject: "Documents needed for {{projectTitle}}",
			Body:    "Your application {{applicationId}} needs more documents before it can be reviewed. Reviewer notes: {{reviewNotes}}",
		},
		models.StatusApproved: {
			Subject: "Congratulations! {{projectTitle}} was approved",
			Body:    "Your funding application {{applicationId}} has been approved. Reviewer notes: {{reviewNotes}}",
			SMS:     "Good news: your funding application for {{projectTitle}} was approved.",
		},
		models.StatusRejected: {
			Subject: "Decision on {{projectTitle}}",
			Body:    "After careful review your application {{applicationId}} was not approved this time. Reviewer notes: {{reviewNotes}}",
			SMS:     "A decision is available for your funding application {{projectTitle}}. See {{portalUrl}}/dashboard.",
		},
	}
}
