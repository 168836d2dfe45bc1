package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rcliao/sorma/internal/assistant"
	"github.com/rcliao/sorma/internal/auth"
	"github.com/rcliao/sorma/internal/memory"
	"github.com/rcliao/sorma/internal/model"
)

const (
	maxBodyBytes     = 1 << 20
	memoryListTurns  = 20
	modelUsedCommand = "command"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authRequest struct {
	Phrase string `json:"phrase"`
}

type authResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	ModelUsed string    `json:"model_used"`
	Model     string    `json:"model,omitempty"`
	Command   string    `json:"command,omitempty"`
}

type statusResponse struct {
	assistant.Status
	Sessions      int        `json:"sessions"`
	Authenticated bool       `json:"authenticated"`
	AuthorizedAt  *time.Time `json:"authorized_at,omitempty"`
}

type memoryResponse struct {
	Facts         []model.Fact             `json:"facts"`
	Conversations []model.ConversationTurn `json:"conversations"`
	Stats         memory.Stats             `json:"stats"`
}

type addMemoryRequest struct {
	Fact     string `json:"fact"`
	Category string `json:"category"`
}

type addMemoryResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Fact    model.Fact `json:"fact"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Results []memory.SearchHit `json:"results"`
	Count   int                `json:"count"`
}

type forgetRequest struct {
	Keyword string `json:"keyword"`
}

type forgetResponse struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r)
	resp := statusResponse{
		Status:        s.asst.Status(r.Context()),
		Sessions:      s.sessions.Count(),
		Authenticated: ok && sess.Active(),
	}
	if resp.Authenticated {
		at := sess.AuthorizedAt()
		resp.AuthorizedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// authenticate checks the phrase and issues a session token. A valid
// existing token in the header is re-activated instead of replaced.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	gate := s.asst.Gate()
	if !gate.IsAuthorized(req.Phrase) {
		s.metrics.RecordAuth(false)
		writeError(w, http.StatusUnauthorized, "Invalid authorization phrase")
		return
	}

	sess, ok := s.session(r)
	if !ok {
		sess = s.sessions.Create()
	}
	sess.Activate()
	gate.RecordAccess(r.Context())
	s.metrics.RecordAuth(true)
	s.metrics.SetSessions(s.sessions.Count())

	w.Header().Set(SessionHeader, sess.ID)
	writeJSON(w, http.StatusOK, authResponse{
		Success:   true,
		Message:   "Authentication successful",
		SessionID: sess.ID,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	sess.Deactivate()
	s.sessions.Remove(sess.ID)
	s.metrics.SetSessions(s.sessions.Count())
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out"})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	reply := s.asst.Process(r.Context(), sess, req.Message)
	used := string(reply.Backend)
	if reply.Command != "" && reply.Backend == "" {
		used = modelUsedCommand
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Response:  reply.Text,
		Timestamp: time.Now(),
		ModelUsed: used,
		Model:     reply.Model,
		Command:   reply.Command,
	})
}

func (s *Server) listMemory(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	mem := s.asst.Memory()
	resp := memoryResponse{
		Facts:         mem.Facts(r.Context()),
		Conversations: mem.RecentConversations(r.Context(), memoryListTurns),
		Stats:         mem.Stats(r.Context()),
	}
	if resp.Facts == nil {
		resp.Facts = []model.Fact{}
	}
	if resp.Conversations == nil {
		resp.Conversations = []model.ConversationTurn{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) addMemory(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	var req addMemoryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fact, err := s.asst.Memory().RememberFact(r.Context(), req.Fact, req.Category)
	if err != nil {
		writeMemoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addMemoryResponse{
		Success: true,
		Message: "Remembered: " + fact.Content,
		Fact:    fact,
	})
}

func (s *Server) clearMemory(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	scope, err := memory.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.asst.Memory().Clear(r.Context(), scope); err != nil {
		writeMemoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Memory cleared"})
}

// searchMemory accepts a JSON body or a form-encoded "query" field.
func (s *Server) searchMemory(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	var query string
	if isForm(r) {
		query = r.FormValue("query")
	} else {
		var req searchRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		query = req.Query
	}
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	hits := s.asst.Memory().Search(r.Context(), query)
	if hits == nil {
		hits = []memory.SearchHit{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: hits, Count: len(hits)})
}

func (s *Server) forgetMemory(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	var req forgetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		writeError(w, http.StatusBadRequest, "keyword must not be empty")
		return
	}
	n, err := s.asst.Memory().ForgetFact(r.Context(), req.Keyword)
	if err != nil {
		writeMemoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forgetResponse{Success: true, Removed: n})
}

func (s *Server) session(r *http.Request) (*auth.Session, bool) {
	return s.sessions.Get(r.Header.Get(SessionHeader))
}

// requireSession rejects requests without an active session.
func (s *Server) requireSession(next func(http.ResponseWriter, *http.Request, *auth.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(r)
		if !ok || !sess.Active() {
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		next(w, r, sess)
	}
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeMemoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, memory.ErrEmptyFact), errors.Is(err, memory.ErrInvalidScope):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, memory.ErrStorage):
		writeError(w, http.StatusServiceUnavailable, "memory storage is not available")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
