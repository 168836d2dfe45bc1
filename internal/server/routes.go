package server

import (
	"net/http"
	"time"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/status", s.status)

	mux.HandleFunc("POST /api/auth", s.authenticate)
	mux.HandleFunc("POST /api/auth/logout", s.requireSession(s.logout))

	mux.HandleFunc("POST /api/chat", s.requireSession(s.chat))

	mux.HandleFunc("GET /api/memory", s.requireSession(s.listMemory))
	mux.HandleFunc("POST /api/memory", s.requireSession(s.addMemory))
	mux.HandleFunc("DELETE /api/memory", s.requireSession(s.clearMemory))
	mux.HandleFunc("POST /api/memory/search", s.requireSession(s.searchMemory))
	mux.HandleFunc("POST /api/memory/forget", s.requireSession(s.forgetMemory))

	mux.HandleFunc("GET /api/files/info", s.filesInfo)
	mux.HandleFunc("POST /api/files/upload", s.requireSession(s.uploadFile))
	mux.HandleFunc("POST /api/files/summarize", s.requireSession(s.summarizeFile))

	mux.HandleFunc("POST /api/code/generate", s.requireSession(s.generateCode))
	mux.HandleFunc("POST /api/code/explain", s.requireSession(s.explainCode))
	mux.HandleFunc("POST /api/translate", s.requireSession(s.translate))

	mux.Handle("GET /metrics", s.metrics.Handler())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.RecordHTTP(route, rec.status, elapsed)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionHeader)
		w.Header().Set("Access-Control-Expose-Headers", SessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
