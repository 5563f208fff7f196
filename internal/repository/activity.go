// internal/repository/activity.go
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"creative-funding/internal/common/errors"
	"creative-funding/internal/models"
)

// Comments stores the discussion thread of an application. Rows are never edited.
type Comments struct {
	db *sql.DB
}

func NewComments(db *sql.DB) *Comments {
	return &Comments{db: db}
}

func (r *Comments) Append(ctx context.Context, c *models.ApplicationComment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO application_comments (id, application_id, user_id, comment, is_internal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ApplicationID, c.UserID, c.Comment, c.IsInternal, c.CreatedAt,
	)
	if err != nil {
		return errors.NewPersistenceError("append comment", err)
	}
	return nil
}

// ListByApplication returns comments newest first. Internal comments are
// included only when includeInternal is set.
func (r *Comments) ListByApplication(ctx context.Context, applicationID string, includeInternal bool) ([]*models.ApplicationComment, error) {
	query := `SELECT id, application_id, user_id, comment, is_internal, created_at
		FROM application_comments WHERE application_id = $1`
	if !includeInternal {
		query += ` AND is_internal = false`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, errors.NewPersistenceError("list comments", err)
	}
	defer rows.Close()

	comments := make([]*models.ApplicationComment, 0)
	for rows.Next() {
		var c models.ApplicationComment
		if err := rows.Scan(&c.ID, &c.ApplicationID, &c.UserID, &c.Comment, &c.IsInternal, &c.CreatedAt); err != nil {
			return nil, errors.NewPersistenceError("list comments", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("list comments", err)
	}
	return comments, nil
}

// ChatMessages stores assistant conversations.
type ChatMessages struct {
	db *sql.DB
}

func NewChatMessages(db *sql.DB) *ChatMessages {
	return &ChatMessages{db: db}
}

func (r *ChatMessages) Append(ctx context.Context, m *models.ChatMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, user_id, message, response, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.Message, m.Response, m.SessionID, m.CreatedAt,
	)
	if err != nil {
		return errors.NewPersistenceError("append chat message", err)
	}
	return nil
}

// ListByUser returns the most recent messages of a user, newest first.
func (r *ChatMessages) ListByUser(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, response, session_id, created_at
		FROM chat_messages WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, errors.NewPersistenceError("list chat messages", err)
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		var (
			m         models.ChatMessage
			response  sql.NullString
			sessionID sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Message, &response, &sessionID, &m.CreatedAt); err != nil {
			return nil, errors.NewPersistenceError("list chat messages", err)
		}
		if response.Valid {
			m.Response = &response.String
		}
		if sessionID.Valid {
			m.SessionID = &sessionID.String
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("list chat messages", err)
	}
	return messages, nil
}
