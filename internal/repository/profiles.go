// internal/repository/profiles.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"creative-funding/internal/common/database"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

const profileColumns = `id, email, full_name, phone, role, details, created_at, updated_at`

// Profiles persists user profiles keyed by identity provider id.
type Profiles struct {
	db *sql.DB
}

func NewProfiles(db *sql.DB) *Profiles {
	return &Profiles{db: db}
}

func (r *Profiles) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`, id)

	profile, err := scanProfile(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("user_profile", id)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("get profile", err)
	}
	return profile, nil
}

// CreateIfAbsent inserts a profile with the given role unless one already exists.
// It reports whether this call created the row, so concurrent first sign-ins
// produce exactly one profile.
func (r *Profiles) CreateIfAbsent(ctx context.Context, id, email string, role models.Role, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (id, email, role, details, created_at, updated_at)
		VALUES ($1, $2, $3, '{}', $4, $4)
		ON CONFLICT (id) DO NOTHING`,
		id, email, string(role), now,
	)
	if err != nil {
		return false, errors.NewPersistenceError("create profile", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewPersistenceError("create profile", err)
	}
	return rows == 1, nil
}

// GrantRole stores role for the profile, creating it when missing, and records
// the change in the audit log in the same transaction. It returns the previous
// role, empty when the profile did not exist.
func (r *Profiles) GrantRole(ctx context.Context, id, email string, role models.Role, actorID string, now time.Time) (models.Role, error) {
	if !role.Valid() {
		return "", errors.NewValidationError([]errors.FieldError{{
			Field:   "role",
			Code:    "INVALID_VALUE",
			Message: fmt.Sprintf("role %q is not one of user, reviewer, admin", role),
		}})
	}

	var previous models.Role
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT role FROM user_profiles WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		switch {
		case stderrors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			previous = models.Role(current)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_profiles (id, email, role, details, created_at, updated_at)
			VALUES ($1, $2, $3, '{}', $4, $4)
			ON CONFLICT (id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at`,
			id, email, string(role), now,
		)
		if err != nil {
			return err
		}

		return insertAudit(ctx, tx, &models.AuditEntry{
			EntityType: models.EntityProfile,
			EntityID:   id,
			Action:     models.AuditActionRoleGranted,
			ActorID:    actorID,
			Details: map[string]interface{}{
				"previous_role": string(previous),
				"role":          string(role),
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return "", errors.NewPersistenceError("grant role", err)
	}
	return previous, nil
}

func scanProfile(s scanner) (*models.UserProfile, error) {
	var (
		profile  models.UserProfile
		role     string
		details  []byte
		fullName sql.NullString
		phone    sql.NullString
	)

	err := s.Scan(&profile.ID, &profile.Email, &fullName, &phone, &role, &details, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}

	profile.Role = models.Role(role)
	if fullName.Valid {
		profile.FullName = &fullName.String
	}
	if phone.Valid {
		profile.Phone = &phone.String
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &profile.ProfileDetails); err != nil {
			return nil, fmt.Errorf("decode profile details: %w", err)
		}
	}
	return &profile, nil
}
