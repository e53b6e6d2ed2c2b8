package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"monghwa-dream-gateway/internal/gemini"
	"monghwa-dream-gateway/internal/styles"
)

const (
	headerRequestID = "X-Request-ID"
	headerResult    = "X-Dream-Result"
	headerCause     = "X-Dream-Cause"
)

type dreamer interface {
	InterpretResult(ctx context.Context, dreamText string) gemini.Result
	GenerateImageResult(ctx context.Context, dreamText, style string) gemini.Result
	Dream(ctx context.Context, dreamText, style string) (gemini.Result, gemini.Result)
}

type serverOptions struct {
	Dreamer        dreamer
	Logger         *slog.Logger
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

type server struct {
	gem            dreamer
	logger         *slog.Logger
	maxBodyBytes   int64
	requestTimeout time.Duration
}

type apiError struct {
	Error string `json:"error"`
}

type imageRequest struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

type fullResponse struct {
	Interpretation string `json:"interpretation"`
	Image          string `json:"image"`
}

type styleResponse struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func newServer(opts serverOptions) *server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 64 << 10
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	return &server{
		gem:            opts.Dreamer,
		logger:         logger,
		maxBodyBytes:   maxBody,
		requestTimeout: timeout,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dream", s.handleInterpret)
	mux.HandleFunc("/api/dream/image", s.handleImage)
	mux.HandleFunc("/api/dream/full", s.handleFull)
	mux.HandleFunc("/api/dream/styles", s.handleStyles)
	mux.HandleFunc("/healthz", s.handleHealth)

	return withLogging(withCORS(mux), s.logger)
}

// handleInterpret reads the raw body as the dream text.
func (s *server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		writeBodyError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	writeResult(w, s.gem.InterpretResult(ctx, string(raw)))
}

func (s *server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	req, ok := s.decodeImageRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	writeResult(w, s.gem.GenerateImageResult(ctx, req.Text, styles.Resolve(req.Style)))
}

func (s *server) handleFull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	req, ok := s.decodeImageRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	interpretation, image := s.gem.Dream(ctx, req.Text, styles.Resolve(req.Style))
	writeJSON(w, http.StatusOK, fullResponse{
		Interpretation: interpretation.String(),
		Image:          image.String(),
	})
}

func (s *server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	all := styles.All()
	out := make([]styleResponse, 0, len(all))
	for _, st := range all {
		out = append(out, styleResponse{Key: st.Key, Name: st.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) decodeImageRequest(w http.ResponseWriter, r *http.Request) (imageRequest, bool) {
	var req imageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeBodyError(w, err)
		return imageRequest{}, false
	}
	return req, true
}

// writeResult sends the formatted string and tags it in headers. Pipeline
// failures are not HTTP failures.
func writeResult(w http.ResponseWriter, res gemini.Result) {
	w.Header().Set(headerResult, res.Kind.String())
	if res.Failure != nil {
		w.Header().Set(headerCause, res.Failure.Cause.String())
	}
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.String())
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "request body too large"})
		return
	}
	writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+headerRequestID)
		h.Set("Access-Control-Expose-Headers", strings.Join([]string{headerRequestID, headerResult, headerCause}, ", "))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"dur_ms", time.Since(start).Milliseconds(),
		}
		if result := rec.Header().Get(headerResult); result != "" {
			attrs = append(attrs, "result", result)
		}
		if cause := rec.Header().Get(headerCause); cause != "" {
			attrs = append(attrs, "cause", cause)
		}
		logger.Info("http", attrs...)
	})
}
