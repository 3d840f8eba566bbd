package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/academy/internal/auth"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/storage"
	"github.com/pavelanni/academy/internal/store"
)

type stubGenerator struct {
	mu        sync.Mutex
	summary   string
	questions []model.Question
	err       error
	calls     int
}

func (g *stubGenerator) GenerateSummary(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.summary, nil
}

func (g *stubGenerator) GenerateQuestions(_ context.Context, _ string, _ int) ([]model.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.questions, nil
}

func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Question:      fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"right", "wrong", "other", "none"},
			CorrectAnswer: "right",
		}
	}
	return qs
}

type fixture struct {
	t      *testing.T
	router http.Handler
	store  *store.Store
	tokens *auth.Service
	gen    *stubGenerator
}

func newFixture(t *testing.T, cfg model.ServerConfig) *fixture {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	tokens, err := auth.NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	gen := &stubGenerator{summary: "Short summary.", questions: sampleQuestions(5)}
	h, err := New(s, gen, blobs, tokens, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := chi.NewRouter()
	h.Routes(r)
	return &fixture{t: t, router: r, store: s, tokens: tokens, gen: gen}
}

// user creates a user directly in the store and returns a bearer token.
func (f *fixture) user(email string, role model.UserRole) (*model.User, string) {
	f.t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		f.t.Fatalf("HashPassword: %v", err)
	}
	id, err := f.store.CreateUser(context.Background(), model.User{
		Email: email, FullName: "User " + email, PasswordHash: hash, Role: role,
	})
	if err != nil {
		f.t.Fatalf("CreateUser: %v", err)
	}
	u, err := f.store.GetUserByID(context.Background(), id)
	if err != nil || u == nil {
		f.t.Fatalf("GetUserByID: %v", err)
	}
	token, err := f.tokens.Issue(u)
	if err != nil {
		f.t.Fatalf("Issue: %v", err)
	}
	return u, token
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) expect(rec *httptest.ResponseRecorder, status int) {
	f.t.Helper()
	if rec.Code != status {
		f.t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v; body: %s", v, err, rec.Body.String())
	}
	return v
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorBody](t, rec).Detail
}

// course creates a course through the API, optionally publishing it.
func (f *fixture) course(token string, published bool) model.Course {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/courses", token, map[string]string{
		"title": "Go basics", "description": "Intro", "original_text": "Goroutines and channels.",
	})
	f.expect(rec, http.StatusCreated)
	c := decode[model.Course](f.t, rec)
	if published {
		f.expect(f.do(http.MethodPatch, fmt.Sprintf("/api/courses/%d/publish", c.ID), token, nil), http.StatusOK)
		c.Status = model.CoursePublished
	}
	return c
}

func (f *fixture) test(token string, courseID int64) model.Test {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/tests/create", token, map[string]any{
		"course_id": courseID, "questions": sampleQuestions(3),
	})
	f.expect(rec, http.StatusCreated)
	return decode[model.Test](f.t, rec)
}
