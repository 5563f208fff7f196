package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"creative-funding/internal/common/auth"
	"creative-funding/internal/common/errors"
	"creative-funding/internal/common/validation"
	"creative-funding/internal/guard"
	"creative-funding/internal/models"
	"creative-funding/internal/repository"
	"creative-funding/internal/scoring"
	"creative-funding/internal/search"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.NewBadRequestError("request body could not be read")
	}
	return bytes.TrimSpace(body), nil
}

// decode validates body against schema before unmarshalling it into dst.
// An empty body is treated as an empty object.
func decode(body []byte, schema *validation.Schema, dst interface{}) error {
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := schema.Check(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.NewBadRequestError("request body does not match the expected shape")
	}
	return nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request, schema *validation.Schema, dst interface{}) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return decode(body, schema, dst)
}

// ==========================
// Health
// ==========================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"time":   s.now().Format(time.RFC3339),
	})
}

// ==========================
// Auth
// ==========================

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeRequest(w, r, validation.CredentialsSchema, &creds); err != nil {
		errors.WriteJSON(w, err)
		return
	}

	if err := s.sessions.SignUp(r.Context(), creds.Email, creds.Password); err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "pending_confirmation",
		"message": "Check your email to confirm your account",
	})
}

// handleSignIn opens a session and reports where the visitor should resume.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeRequest(w, r, validation.CredentialsSchema, &creds); err != nil {
		errors.WriteJSON(w, err)
		return
	}

	session, err := s.sessions.SignIn(r.Context(), creds.Email, creds.Password)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}

	s.setSessionCookie(w, session.AccessToken, session.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"next":    guard.ResumeDestination(creds.Next),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if session := auth.SessionFromContext(r.Context()); session != nil {
		if err := s.sessions.SignOut(r.Context(), session); err != nil {
			errors.WriteJSON(w, err)
			return
		}
	}
	s.setSessionCookie(w, "", time.Unix(0, 0))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	state := guard.StateFromContext(r.Context())
	session := auth.SessionFromContext(r.Context())

	switch {
	case state.Loading:
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"session": nil, "status": guard.DecisionPending})
	case session == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": nil})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": session, "access": state.Access})
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	state := guard.StateFromContext(r.Context())

	var profile *models.UserProfile
	if s.profiles != nil {
		p, err := s.profiles.Get(r.Context(), state.Identity.ID)
		switch {
		case err == nil:
			profile = p
		case stderrors.Is(err, errors.ErrNotFound):
		default:
			errors.WriteJSON(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    state.Identity,
		"profile": profile,
		"access":  state.Access,
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	if s.cookieName == "" {
		return
	}
	cookie := &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

// ==========================
// Applications
// ==========================

func (s *Server) handleListMine(w http.ResponseWriter, r *http.Request) {
	apps, err := s.apps.ListMine(r.Context(), actor(r))
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var fields models.ApplicationFields
	if err := decodeRequest(w, r, validation.ApplicationFieldsSchema, &fields); err != nil {
		errors.WriteJSON(w, err)
		return
	}

	app, err := s.apps.CreateDraft(r.Context(), actor(r), fields)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.apps.Get(r.Context(), actor(r), mux.Vars(r)["id"])
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var fields models.ApplicationFields
	if err := decodeRequest(w, r, validation.ApplicationFieldsSchema, &fields); err != nil {
		errors.WriteJSON(w, err)
		return
	}

	app, err := s.apps.SaveDraft(r.Context(), actor(r), mux.Vars(r)["id"], fields)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// handleSubmit accepts an optional body of final field edits.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}

	var fields *models.ApplicationFields
	if len(body) > 0 {
		fields = &models.ApplicationFields{}
		if err := decode(body, validation.ApplicationFieldsSchema, fields); err != nil {
			errors.WriteJSON(w, err)
			return
		}
	}

	app, err := s.apps.Submit(r.Context(), actor(r), mux.Vars(r)["id"], fields)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	targets, err := s.apps.AvailableTransitions(r.Context(), actor(r), mux.Vars(r)["id"])
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transitions": targets})
}

type commentRequest struct {
	Comment    string `json:"comment"`
	IsInternal bool   `json:"is_internal"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeRequest(w, r, validation.CommentSchema, &req); err != nil {
		errors.WriteJSON(w, err)
		return
	}

	comment, err := s.apps.AddComment(r.Context(), actor(r), mux.Vars(r)["id"], req.Comment, req.IsInternal)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.apps.ListComments(r.Context(), actor(r), mux.Vars(r)["id"])
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// ==========================
// Review
// ==========================

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewBadRequestError(name + " must be a non-negative integer")
	}
	return n, nil
}

func queryStatus(r *http.Request) (models.Status, error) {
	status := models.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		return "", errors.NewBadRequestError("unknown status " + strconv.Quote(string(status)))
	}
	return status, nil
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	status, err := queryStatus(r)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}

	apps, err := s.apps.ListAll(r.Context(), actor(r), repository.ListFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	status, err := queryStatus(r)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	sector := models.CreativeSector(r.URL.Query().Get("sector"))
	if sector != "" && !sector.Valid() {
		errors.WriteJSON(w, errors.NewBadRequestError("unknown creative sector "+strconv.Quote(string(sector))))
		return
	}
	from, err := queryInt(r, "from")
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	size, err := queryInt(r, "size")
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}

	apps, total, err := s.apps.Search(r.Context(), actor(r), search.Query{
		Text:   r.URL.Query().Get("q"),
		Status: status,
		Sector: sector,
		From:   from,
		Size:   size,
	})
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": apps, "total": total})
}

type reviewRequest struct {
	Status      models.Status `json:"status"`
	ReviewNotes *string       `json:"review_notes"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeRequest(w, r, validation.ReviewSchema, &req); err != nil {
		errors.WriteJSON(w, err)
		return
	}

	app, err := s.apps.Review(r.Context(), actor(r), mux.Vars(r)["id"], req.Status, req.ReviewNotes)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.apps.Stats(r.Context(), actor(r))
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ==========================
// Scoring and Assistant
// ==========================

func (s *Server) handleCreditScore(w http.ResponseWriter, r *http.Request) {
	report, err := s.scoring.CreditScore(r.Context(), actor(r).UserID)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAssistantInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"greeting":      scoring.Greeting,
		"quick_actions": scoring.QuickActions,
	})
}

type chatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// handleAssistantMessage answers and records the exchange. A failed write to the
// conversation log does not fail the reply.
func (s *Server) handleAssistantMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeRequest(w, r, validation.ChatMessageSchema, &req); err != nil {
		errors.WriteJSON(w, err)
		return
	}

	reply, err := s.assistant.Reply(r.Context(), req.Message)
	if err != nil {
		errors.WriteJSON(w, err)
		return
	}

	msg := &models.ChatMessage{
		UserID:    actor(r).UserID,
		Message:   req.Message,
		Response:  &reply,
		SessionID: req.SessionID,
		CreatedAt: s.now(),
	}
	if s.chats != nil {
		if err := s.chats.Append(r.Context(), msg); err != nil {
			s.logger.Warn("Chat message not stored", map[string]interface{}{
				"userId": msg.UserID,
				"error":  err.Error(),
			})
		}
	}
	writeJSON(w, http.StatusCreated, msg)
}
