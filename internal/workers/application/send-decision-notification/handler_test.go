// internal/workers/application/send-decision-notification/handler_test.go
package senddecisionnotification

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "creative-funding/internal/common/errors"
	"creative-funding/internal/common/logger"
)

// ==========================
// Mock Implementations
// ==========================

type sentMessage struct {
	to, subject, body string
}

type mockEmail struct {
	sent []sentMessage
	err  error
}

func (m *mockEmail) Send(ctx context.Context, to, subject, body string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{to: to, subject: subject, body: body})
	return "email-1", nil
}

type mockSMS struct {
	sent []sentMessage
	err  error
}

func (m *mockSMS) Send(ctx context.Context, phone, message string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMessage{to: phone, body: message})
	return "sms-1", nil
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "noreply@creative-score-hub.com",
		PortalURL:    "https://portal.example.org",
		Timeout:      30 * time.Second,
	}
}

func createTestInput(status string) *Input {
	return &Input{
		ApplicationID: "app-001",
		UserID:        "user-001",
		Status:        status,
		ProjectTitle:  "Community Mural",
		ReviewNotes:   "ok",
	}
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectContact(mock sqlmock.Sqlmock, email string, phone interface{}) {
	mock.ExpectQuery(`SELECT email, phone FROM user_profiles WHERE id = \$1`).
		WithArgs("user-001").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow(email, phone))
}

// Create a test logger that implements the logger.Logger interface
type testLogger struct {
	t *testing.T
}

func (tl *testLogger) Debug(msg string, fields map[string]interface{}) {
	tl.t.Logf("DEBUG: %s %v", msg, fields)
}

func (tl *testLogger) Info(msg string, fields map[string]interface{}) {
	tl.t.Logf("INFO: %s %v", msg, fields)
}

func (tl *testLogger) Warn(msg string, fields map[string]interface{}) {
	tl.t.Logf("WARN: %s %v", msg, fields)
}

func (tl *testLogger) Error(msg string, fields map[string]interface{}) {
	tl.t.Logf("ERROR: %s %v", msg, fields)
}

func (tl *testLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return tl
}

func (tl *testLogger) WithError(err error) logger.Logger {
	return tl.WithFields(map[string]interface{}{"error": err})
}

func (tl *testLogger) With(fields map[string]interface{}) logger.Logger {
	return tl
}

func newTestLogger(t *testing.T) logger.Logger {
	return &testLogger{t: t}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Channels(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		emailEnabled bool
		smsEnabled   bool
		phone        interface{}
		wantStatus   string
		wantChannels []string
	}{
		{
			name:         "approved uses email and SMS",
			status:       "approved",
			emailEnabled: true,
			smsEnabled:   true,
			phone:        "+15550100",
			wantStatus:   StatusSent,
			wantChannels: []string{ChannelEmail, ChannelSMS},
		},
		{
			name:         "pending documents is email only",
			status:       "pending_documents",
			emailEnabled: true,
			smsEnabled:   true,
			phone:        "+15550100",
			wantStatus:   StatusSent,
			wantChannels: []string{ChannelEmail},
		},
		{
			name:         "rejected without phone",
			status:       "rejected",
			emailEnabled: true,
			smsEnabled:   true,
			phone:        nil,
			wantStatus:   StatusSent,
			wantChannels: []string{ChannelEmail},
		},
		{
			name:         "all channels disabled",
			status:       "approved",
			emailEnabled: false,
			smsEnabled:   false,
			phone:        "+15550100",
			wantStatus:   StatusDisabled,
		},
		{
			name:         "under review SMS never sent",
			status:       "under_review",
			emailEnabled: false,
			smsEnabled:   true,
			phone:        "+15550100",
			wantStatus:   StatusDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			expectContact(mock, "maker@example.org", tt.phone)

			cfg := createTestConfig()
			cfg.EmailEnabled = tt.emailEnabled
			cfg.SMSEnabled = tt.smsEnabled

			handler := NewHandler(cfg, db, &mockEmail{}, &mockSMS{}, newTestLogger(t))
			output, err := handler.Execute(context.Background(), createTestInput(tt.status))

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, output.Status)
			assert.Equal(t, tt.wantChannels, output.Channels)
			assert.NotEmpty(t, output.NotificationID)
			assert.NotEmpty(t, output.SentAt)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_RendersTemplate(t *testing.T) {
	db, mock := setupMockDB(t)
	expectContact(mock, "maker@example.org", nil)

	email := &mockEmail{}
	handler := NewHandler(createTestConfig(), db, email, &mockSMS{}, newTestLogger(t))

	_, err := handler.Execute(context.Background(), createTestInput("approved"))
	require.NoError(t, err)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "maker@example.org", email.sent[0].to)
	assert.Equal(t, "Congratulations! Community Mural was approved", email.sent[0].subject)
	assert.Contains(t, email.sent[0].body, "app-001")
	assert.Contains(t, email.sent[0].body, "Reviewer notes: ok")
}

func TestHandler_Execute_SendFailureReportsFailed(t *testing.T) {
	db, mock := setupMockDB(t)
	expectContact(mock, "maker@example.org", nil)

	handler := NewHandler(createTestConfig(), db, &mockEmail{err: errors.New("throttled")}, &mockSMS{}, newTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput("approved"))

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, output.Status)
}

func TestHandler_Execute_RecipientNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT email, phone FROM user_profiles WHERE id = \$1`).
		WithArgs("user-001").
		WillReturnError(sql.ErrNoRows)

	email := &mockEmail{}
	handler := NewHandler(createTestConfig(), db, email, &mockSMS{}, newTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput("approved"))

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, email.sent)
}

func TestHandler_Execute_Errors(t *testing.T) {
	t.Run("unknown status", func(t *testing.T) {
		db, _ := setupMockDB(t)
		handler := NewHandler(createTestConfig(), db, &mockEmail{}, &mockSMS{}, newTestLogger(t))

		_, err := handler.Execute(context.Background(), createTestInput("draft"))
		assert.ErrorIs(t, err, commonerrors.ErrBadRequest)
	})

	t.Run("database failure is retryable", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT email, phone FROM user_profiles`).WillReturnError(sql.ErrConnDone)
		handler := NewHandler(createTestConfig(), db, &mockEmail{}, &mockSMS{}, newTestLogger(t))

		_, err := handler.Execute(context.Background(), createTestInput("approved"))
		require.Error(t, err)
		assert.True(t, commonerrors.IsRetryableErrorCode(commonerrors.Normalize(err).Code))
	})
}

// ==========================
// Unit Tests
// ==========================

func TestRenderTemplate(t *testing.T) {
	data := map[string]interface{}{"projectTitle": "Film", "count": 3}

	assert.Equal(t, "Film has 3 reviews", renderTemplate("{{projectTitle}} has {{count}} reviews", data))
	assert.Equal(t, "Notes: ", renderTemplate("Notes: {{missing}}", data))
	assert.Equal(t, "broken {{tail", renderTemplate("broken {{tail", data))
}
