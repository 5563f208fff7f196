// internal/repository/applications.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

const applicationColumns = `id, user_id, application_type, creative_sector, business_stage,
	business_name, business_description, project_title, project_description, funding_purpose,
	funding_amount_requested, credit_score, details, status, reviewed_by, review_notes, review_date,
	created_at, updated_at, submitted_at`

// ListFilter narrows ListAll. Zero values mean no filter.
type ListFilter struct {
	Status models.Status
	Limit  int
	Offset int
}

// Applications persists application records in Postgres.
type Applications struct {
	db *sql.DB
}

func NewApplications(db *sql.DB) *Applications {
	return &Applications{db: db}
}

func (r *Applications) Insert(ctx context.Context, app *models.Application) error {
	details, err := json.Marshal(app.ApplicationDetails)
	if err != nil {
		return fmt.Errorf("encode application details: %w", err)
	}

	query := `INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err = r.db.ExecContext(ctx, query,
		app.ID, app.UserID, string(app.ApplicationType), string(app.CreativeSector), string(app.BusinessStage),
		app.BusinessName, app.BusinessDescription, app.ProjectTitle, app.ProjectDescription, app.FundingPurpose,
		app.FundingAmountRequested, app.CreditScore, string(details), string(app.Status),
		app.ReviewedBy, app.ReviewNotes, app.ReviewDate,
		app.CreatedAt, app.UpdatedAt, app.SubmittedAt,
	)
	if err != nil {
		return errors.NewPersistenceError("insert application", err)
	}
	return nil
}

// Update writes app only if the stored status still equals expected. A concurrent
// transition therefore fails instead of being overwritten. submitted_at is never
// replaced once set.
func (r *Applications) Update(ctx context.Context, app *models.Application, expected models.Status) error {
	details, err := json.Marshal(app.ApplicationDetails)
	if err != nil {
		return fmt.Errorf("encode application details: %w", err)
	}

	query := `UPDATE applications SET
		application_type = $3, creative_sector = $4, business_stage = $5,
		business_name = $6, business_description = $7, project_title = $8,
		project_description = $9, funding_purpose = $10, funding_amount_requested = $11,
		credit_score = $12, details = $13, status = $14, reviewed_by = $15,
		review_notes = $16, review_date = $17, updated_at = $18,
		submitted_at = COALESCE(submitted_at, $19)
		WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query,
		app.ID, string(expected),
		string(app.ApplicationType), string(app.CreativeSector), string(app.BusinessStage),
		app.BusinessName, app.BusinessDescription, app.ProjectTitle,
		app.ProjectDescription, app.FundingPurpose, app.FundingAmountRequested,
		app.CreditScore, string(details), string(app.Status), app.ReviewedBy,
		app.ReviewNotes, app.ReviewDate, app.UpdatedAt,
		app.SubmittedAt,
	)
	if err != nil {
		return errors.NewPersistenceError("update application", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.NewPersistenceError("update application", err)
	}
	if rows == 0 {
		return errors.NewInvalidTransitionError(string(expected), string(app.Status), "stale status")
	}
	return nil
}

func (r *Applications) Get(ctx context.Context, id string) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	app, err := scanApplication(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("application", id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get application", err)
	}
	return app, nil
}

// ListByOwner returns the owner's applications, newest first.
func (r *Applications) ListByOwner(ctx context.Context, userID string) ([]*models.Application, error) {
	return r.list(ctx, "list applications by owner",
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListAll returns every application matching filter, newest first.
func (r *Applications) ListAll(ctx context.Context, filter ListFilter) ([]*models.Application, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.list(ctx, "list applications", query, args...)
}

func (r *Applications) list(ctx context.Context, operation, query string, args ...interface{}) ([]*models.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceError(operation, err)
	}
	defer rows.Close()

	apps := make([]*models.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, errors.NewPersistenceError(operation, err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError(operation, err)
	}
	return apps, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(s scanner) (*models.Application, error) {
	var (
		app                            models.Application
		appType, sector, stage, status string
		creditScore                    sql.NullInt64
		details                        []byte
		reviewedBy, reviewNotes        sql.NullString
		reviewDate, submittedAt        sql.NullTime
	)

	err := s.Scan(
		&app.ID, &app.UserID, &appType, &sector, &stage,
		&app.BusinessName, &app.BusinessDescription, &app.ProjectTitle, &app.ProjectDescription, &app.FundingPurpose,
		&app.FundingAmountRequested, &creditScore, &details, &status, &reviewedBy, &reviewNotes, &reviewDate,
		&app.CreatedAt, &app.UpdatedAt, &submittedAt,
	)
	if err != nil {
		return nil, err
	}

	app.ApplicationType = models.ApplicationType(appType)
	app.CreativeSector = models.CreativeSector(sector)
	app.BusinessStage = models.BusinessStage(stage)
	app.Status = models.Status(status)

	if len(details) > 0 {
		if err := json.Unmarshal(details, &app.ApplicationDetails); err != nil {
			return nil, fmt.Errorf("decode application details: %w", err)
		}
	}
	if creditScore.Valid {
		score := int(creditScore.Int64)
		app.CreditScore = &score
	}
	if reviewedBy.Valid {
		app.ReviewedBy = &reviewedBy.String
	}
	if reviewNotes.Valid {
		app.ReviewNotes = &reviewNotes.String
	}
	if reviewDate.Valid {
		app.ReviewDate = &reviewDate.Time
	}
	if submittedAt.Valid {
		app.SubmittedAt = &submittedAt.Time
	}

	return &app, nil
}
