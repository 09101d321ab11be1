package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"clipquiz/internal/conversion"
	"clipquiz/internal/journal"
	"clipquiz/internal/services"
	"clipquiz/internal/testsupport"
)

type fakeConverter struct {
	err   error
	calls int
	url   string
	owner string
}

func (f *fakeConverter) Execute(_ context.Context, sourceURL, ownerKey string) (*conversion.Job, error) {
	f.calls++
	f.url, f.owner = sourceURL, ownerKey
	job := &conversion.Job{ID: "job-1", SourceURL: sourceURL, OwnerKey: ownerKey}
	if f.err != nil {
		return job, f.err
	}
	doc := testsupport.ValidQuiz()
	job.Document = &doc
	return job, nil
}

func convErr(kind, marker error) error {
	return &conversion.Error{
		Kind:  kind,
		Stage: conversion.StateFetching,
		JobID: "job-1",
		Err:   services.Wrap(marker, "fetching", "", "", errors.New("cause")),
	}
}

func postQuiz(t *testing.T, handler http.Handler, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/quizzes", strings.NewReader(body))
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateQuizSuccess(t *testing.T) {
	conv := &fakeConverter{}
	handler := Server{Converter: conv}.Router()

	rec := postQuiz(t, handler, "alice", `{"url":"https://example.com/video123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID     string `json:"job_id"`
		VideoURL  string `json:"video_url"`
		Title     string `json:"title"`
		Questions []struct {
			Title   string   `json:"question_title"`
			Options []string `json:"question_options"`
			Answer  string   `json:"answer"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID != "job-1" || resp.VideoURL != "https://example.com/video123" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Title == "" || len(resp.Questions) != 10 || len(resp.Questions[0].Options) != 4 {
		t.Fatalf("unexpected document: %+v", resp)
	}
	if conv.owner != "alice" || conv.url != "https://example.com/video123" {
		t.Fatalf("converter got url=%q owner=%q", conv.url, conv.owner)
	}
}

func TestCreateQuizRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		body  string
	}{
		{"missing owner", "", `{"url":"https://example.com/v"}`},
		{"bad json", "alice", `{"url":`},
		{"missing url", "alice", `{"url":"  "}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := &fakeConverter{}
			rec := postQuiz(t, Server{Converter: conv}.Router(), tc.owner, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if conv.calls != 0 {
				t.Fatal("converter should not run")
			}
		})
	}
}

func TestCreateQuizMapsFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		label  string
	}{
		{"invalid content", convErr(conversion.ErrInvalidGeneratedContent, services.ErrValidation), http.StatusUnprocessableEntity, "Invalid AI response"},
		{"fetch", convErr(conversion.ErrFetch, services.ErrExternalTool), http.StatusUnprocessableEntity, "Source could not be retrieved"},
		{"invalid owner", convErr(conversion.ErrInvalidRequest, services.ErrValidation), http.StatusBadRequest, "Invalid request"},
		{"generation", convErr(conversion.ErrGenerationService, services.ErrTransient), http.StatusBadGateway, "Generation service unavailable"},
		{"timeout", convErr(conversion.ErrTranscription, services.ErrTimeout), http.StatusGatewayTimeout, "Conversion timed out"},
		{"transcode", convErr(conversion.ErrTranscode, services.ErrExternalTool), http.StatusInternalServerError, "Conversion failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postQuiz(t, Server{Converter: &fakeConverter{err: tc.err}}.Router(), "alice", `{"url":"https://example.com/v"}`)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tc.label || body.JobID != "job-1" || body.Message == "" {
				t.Fatalf("unexpected body: %+v", body)
			}
		})
	}
}

func TestJobEndpointsReadJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	ctx := context.Background()
	for i, owner := range []string{"alice", "bob", "alice"} {
		id := fmt.Sprintf("job-%d", i)
		if err := store.Begin(ctx, id, owner, "https://example.com/v"); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := store.Finish(ctx, id, journal.Outcome{State: journal.StateCleanedUp, QuizTitle: "T", QuestionCount: 10}); err != nil {
			t.Fatalf("Finish: %v", err)
		}
	}
	handler := Server{Journal: store}.Router()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs?owner=alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var entries []journal.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 alice entries, got %d", len(entries))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var entry journal.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Owner != "bob" || entry.QuestionCount != 10 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Server{}.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRequestIDPropagation(t *testing.T) {
	handler := Server{Converter: &fakeConverter{}}.Router()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("expected caller request id echoed, got %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("expected generated uuid request id, got %q: %v", rec.Header().Get(RequestIDHeader), err)
	}
}
