package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rcliao/sorma/internal/auth"
	"github.com/rcliao/sorma/internal/llm"
)

type codeRequest struct {
	Language string `json:"language"`
	Task     string `json:"task"`
	Context  string `json:"context"`
}

type codeResponse struct {
	Code     string   `json:"code"`
	Language string   `json:"language"`
	Backend  llm.Kind `json:"backend_used"`
	Model    string   `json:"model,omitempty"`
}

type explainRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type explainResponse struct {
	Explanation string   `json:"explanation"`
	Backend     llm.Kind `json:"backend_used"`
	Model       string   `json:"model,omitempty"`
}

type translateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	Original       string   `json:"original"`
	Translated     string   `json:"translated"`
	SourceLanguage string   `json:"source_language,omitempty"`
	TargetLanguage string   `json:"target_language"`
	Backend        llm.Kind `json:"backend_used"`
	Model          string   `json:"model,omitempty"`
}

func (s *Server) generateCode(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	var req codeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "task must not be empty")
		return
	}
	if req.Language == "" {
		req.Language = "python"
	}
	res, err := s.asst.GenerateCode(r.Context(), req.Language, req.Task, req.Context)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codeResponse{Code: res.Text, Language: req.Language, Backend: res.Backend, Model: res.Model})
}

// explainCode accepts a JSON body or form fields "code" and "language".
func (s *Server) explainCode(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	var req explainRequest
	if isForm(r) {
		req.Code, req.Language = r.FormValue("code"), r.FormValue("language")
	} else if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code must not be empty")
		return
	}
	res, err := s.asst.ExplainCode(r.Context(), req.Code, req.Language)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Explanation: res.Text, Backend: res.Backend, Model: res.Model})
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	var req translateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "English"
	}
	res, err := s.asst.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{
		Original:       req.Text,
		Translated:     res.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Backend:        res.Backend,
		Model:          res.Model,
	})
}

func writeGenerateError(w http.ResponseWriter, err error) {
	if errors.Is(err, llm.ErrNoBackend) {
		writeError(w, http.StatusServiceUnavailable, llm.NoBackendReply)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
