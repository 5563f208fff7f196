// internal/workers/application/assess-application-risk/handler.go
package assessapplicationrisk

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"creative-funding/internal/common/database"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/common/metrics"
	"creative-funding/internal/scoring"
)

const (
	TaskType = "assess-application-risk"
)

var (
	ErrApplicationNotFound = stderrors.New("APPLICATION_NOT_FOUND")
)

type Handler struct {
	config       *Config
	db           *sql.DB
	redis        redis.Cmdable
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, redis redis.Cmdable, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		redis:        redis,
		logger:       l,
		errorHandler: errors.NewErrorHandler(l),
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
		err = errors.NewBadRequestError(fmt.Sprintf("parse input: %v", err))
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeBadRequest)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	snap, err := h.getSnapshot(ctx, input.ApplicationID)
	if err != nil {
		h.logger.Warn("failed to load application, defaulting to medium risk", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"error":         err.Error(),
		})
		return &Output{RiskLevel: RiskMedium, ReviewPriority: PriorityMedium}, nil
	}

	level := assessRisk(snap)
	output := &Output{
		RiskLevel:      level,
		ReviewPriority: determinePriority(level),
	}
	if snap.CreditScore != nil {
		output.CreditBand = scoring.Band(*snap.CreditScore)
	}

	h.logger.Info("risk assessed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"riskLevel":     output.RiskLevel,
		"priority":      output.ReviewPriority,
	})

	return output, nil
}

func (h *Handler) getSnapshot(ctx context.Context, applicationID string) (*snapshot, error) {
	cacheKey := "application:risk:" + applicationID

	var snap snapshot
	if err := database.GetJSON(ctx, h.redis, cacheKey, &snap); err == nil {
		return &snap, nil
	} else if !stderrors.Is(err, database.ErrCacheMiss) {
		h.logger.Debug("risk cache read failed", map[string]interface{}{"error": err.Error()})
	}

	var score sql.NullInt64
	err := h.db.QueryRowContext(ctx, `
		SELECT funding_amount_requested, credit_score, status
		FROM applications
		WHERE id = $1`, applicationID).Scan(&snap.FundingAmountRequested, &score, &snap.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if score.Valid {
		v := int(score.Int64)
		snap.CreditScore = &v
	}

	if err := database.SetJSON(ctx, h.redis, cacheKey, snap, h.config.CacheTTL); err != nil {
		h.logger.Debug("risk cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return &snap, nil
}

// assessRisk buckets by requested amount; a weak credit score raises the bucket by one.
func assessRisk(s *snapshot) string {
	level := RiskLow
	switch {
	case s.FundingAmountRequested > highAmountThreshold:
		level = RiskHigh
	case s.FundingAmountRequested >= mediumAmountThreshold:
		level = RiskMedium
	}

	if s.CreditScore != nil && *s.CreditScore < weakCreditThreshold {
		switch level {
		case RiskLow:
			level = RiskMedium
		case RiskMedium:
			level = RiskHigh
		}
	}
	return level
}

func determinePriority(level string) string {
	switch level {
	case RiskHigh:
		return PriorityHigh
	case RiskMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
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
