package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"clipquiz/internal/conversion"
	"clipquiz/internal/journal"
	"clipquiz/internal/logging"
	"clipquiz/internal/quiz"
	"clipquiz/internal/services"
)

// OwnerHeader names the request header carrying the owner key.
const OwnerHeader = "X-Owner-Key"

// RequestIDHeader carries the correlation ID in both directions.
const RequestIDHeader = "X-Request-Id"

const (
	maxBodyBytes     = 64 << 10
	defaultListLimit = 25
	maxListLimit     = 100
)

// Converter runs one conversion job.
type Converter interface {
	Execute(ctx context.Context, sourceURL, ownerKey string) (*conversion.Job, error)
}

// JobJournal reads recorded runs.
type JobJournal interface {
	Get(ctx context.Context, id string) (*journal.Entry, error)
	List(ctx context.Context, limit int) ([]*journal.Entry, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]*journal.Entry, error)
}

// Server holds the handler dependencies.
type Server struct {
	Converter Converter
	Journal   JobJournal
	Logger    *slog.Logger
}

// Router builds the chi router for s.
func (s Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/quizzes", s.handleCreateQuiz)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
	})
	return r
}

func (s Server) logger() *slog.Logger {
	return logging.NewComponentLogger(s.Logger, "httpapi")
}

func (s Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := services.WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.WithContext(ctx, s.logger()).Info("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("duration", time.Since(start)),
			logging.String("remote_addr", r.RemoteAddr),
			logging.String(logging.FieldEventType, "http_request"),
		)
	})
}

type createQuizRequest struct {
	URL string `json:"url"`
}

type quizResponse struct {
	JobID    string `json:"job_id"`
	VideoURL string `json:"video_url"`
	*quiz.Document
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
}

func (s Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "Invalid request", Message: OwnerHeader + " header is required"})
		return
	}

	var req createQuizRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "Invalid request", Message: fmt.Sprintf("decode body: %v", err)})
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "Invalid request", Message: "url is required"})
		return
	}
	if s.Converter == nil {
		writeError(w, http.StatusServiceUnavailable, errorResponse{Error: "Unavailable", Message: "conversion pipeline not configured"})
		return
	}

	job, err := s.Converter.Execute(r.Context(), req.URL, owner)
	jobID := ""
	if job != nil {
		jobID = job.ID
	}
	if err != nil {
		status, body := errorFor(err)
		body.JobID = jobID
		writeError(w, status, body)
		return
	}
	writeJSON(w, http.StatusCreated, quizResponse{JobID: jobID, VideoURL: req.URL, Document: job.Document})
}

// errorFor maps a conversion failure onto a status code and body.
func errorFor(err error) (int, errorResponse) {
	message := conversion.Message(err)
	switch conversion.Classify(err) {
	case conversion.CategoryUnusableOutput:
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   "Invalid AI response",
			Message: "The generated content could not be parsed as valid JSON.",
		}
	case conversion.CategoryBadInput:
		if errors.Is(err, conversion.ErrInvalidRequest) {
			return http.StatusBadRequest, errorResponse{Error: "Invalid request", Message: message}
		}
		return http.StatusUnprocessableEntity, errorResponse{Error: "Source could not be retrieved", Message: message}
	case conversion.CategoryTransient:
		if conversion.IsTimeout(err) {
			return http.StatusGatewayTimeout, errorResponse{Error: "Conversion timed out", Message: message}
		}
		return http.StatusBadGateway, errorResponse{Error: "Generation service unavailable", Message: message}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Conversion failed", Message: message}
	}
}

func (s Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, errorResponse{Error: "Unavailable", Message: "journal not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	entry, err := s.Journal.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "Journal error", Message: err.Error()})
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, errorResponse{Error: "Not found", Message: fmt.Sprintf("job %s not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, errorResponse{Error: "Unavailable", Message: "journal not configured"})
		return
	}

	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, errorResponse{Error: "Invalid request", Message: fmt.Sprintf("invalid limit: %s", raw)})
			return
		}
		limit = min(value, maxListLimit)
	}

	var (
		entries []*journal.Entry
		err     error
	)
	if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
		entries, err = s.Journal.ListByOwner(r.Context(), owner, limit)
	} else {
		entries, err = s.Journal.List(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "Journal error", Message: err.Error()})
		return
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, body errorResponse) {
	writeJSON(w, code, body)
}
