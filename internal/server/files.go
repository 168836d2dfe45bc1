package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rcliao/sorma/internal/auth"
	"github.com/rcliao/sorma/internal/extract"
	"github.com/rcliao/sorma/internal/llm"
)

// multipart overhead allowed on top of extract.MaxFileSize
const uploadSlack = 1 << 20

type summarizeResponse struct {
	Summary  string   `json:"summary"`
	Filename string   `json:"filename"`
	Backend  llm.Kind `json:"backend_used,omitempty"`
	Model    string   `json:"model,omitempty"`
}

type filesInfoResponse struct {
	Status           string   `json:"status"`
	SupportedFormats []string `json:"supported_formats"`
	MaxFileSize      int      `json:"max_file_size"`
}

func (s *Server) filesInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filesInfoResponse{
		Status:           "Available",
		SupportedFormats: extract.Supported(),
		MaxFileSize:      extract.MaxFileSize,
	})
}

// uploadFile extracts the multipart "file" field and returns the document.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	path, name, cleanup, err := s.saveUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	doc, err := extract.Extract(path)
	if err != nil {
		writeExtractError(w, err)
		return
	}
	doc.Path = ""
	doc.Name = name
	writeJSON(w, http.StatusOK, doc)
}

// summarizeFile extracts the multipart "file" field and summarizes it.
func (s *Server) summarizeFile(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	path, name, cleanup, err := s.saveUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	_, reply, err := s.asst.SummarizeFile(r.Context(), path)
	if err != nil {
		writeExtractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{
		Summary:  reply.Text,
		Filename: name,
		Backend:  reply.Backend,
		Model:    reply.Model,
	})
}

// saveUpload copies the multipart "file" field into a private temp
// directory, keeping the base name so the extension selects the parser.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request) (path, name string, cleanup func(), err error) {
	r.Body = http.MaxBytesReader(w, r.Body, extract.MaxFileSize+uploadSlack)
	src, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, fmt.Errorf("file upload required: %w", err)
	}
	defer src.Close()

	name = filepath.Base(filepath.Clean("/" + header.Filename))
	if name == "/" || name == "." {
		return "", "", nil, errors.New("upload has no file name")
	}

	dir, err := os.MkdirTemp("", "sorma-upload-*")
	if err != nil {
		return "", "", nil, err
	}
	cleanup = func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("server: upload cleanup failed", "dir", dir, "error", err)
		}
	}

	path = filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", "", nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", "", nil, err
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", "", nil, err
	}
	return path, name, cleanup, nil
}

func writeExtractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, extract.ErrParse):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
