// Package handler serves the JSON HTTP API.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/academy/internal/auth"
	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/llm"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/rbac"
	"github.com/pavelanni/academy/internal/storage"
	"github.com/pavelanni/academy/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	gen      llm.Generator
	blobs    storage.BlobStore
	tokens   *auth.Service
	grader   *grading.Service
	validate *validator.Validate
	aiLimit  *userLimiter
	config   model.ServerConfig
}

// New creates a new Handler. gen may be nil, in which case generation
// endpoints answer 502.
func New(s *store.Store, gen llm.Generator, blobs storage.BlobStore, tokens *auth.Service, cfg model.ServerConfig) (*Handler, error) {
	if s == nil || blobs == nil || tokens == nil {
		return nil, errors.New("handler: store, blob store and token service are required")
	}
	if cfg.NumQuestions <= 0 {
		cfg.NumQuestions = 5
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	return &Handler{
		store:    s,
		gen:      gen,
		blobs:    blobs,
		tokens:   tokens,
		grader:   grading.NewService(s),
		validate: newValidator(),
		aiLimit:  newUserLimiter(cfg.AIRatePerMinute),
		config:   cfg,
	}, nil
}

func (h *Handler) require(perm rbac.Permission) func(http.Handler) http.Handler {
	return auth.Require(perm, h.writeError)
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(i18n.Middleware)

	r.Get("/", h.handleIndex)
	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.Middleware(h.store, h.writeError))

			r.Get("/auth/me", h.handleMe)

			r.Route("/users", func(r chi.Router) {
				r.Use(h.require(rbac.UserList))
				r.Get("/", h.handleListUsers)
				r.Get("/{id}", h.handleGetUser)
			})

			r.Route("/courses", func(r chi.Router) {
				r.Get("/", h.handleListCourses)
				r.With(h.require(rbac.CourseCreate)).Post("/", h.handleCreateCourse)
				r.With(h.require(rbac.CourseCreate)).Post("/upload", h.handleUploadCourse)
				r.Get("/{id}", h.handleGetCourse)
				r.Get("/{id}/file", h.handleCourseFile)
				r.With(h.require(rbac.CourseManageOwn)).Patch("/{id}", h.handleUpdateCourse)
				r.With(h.require(rbac.CourseManageOwn)).Patch("/{id}/publish", h.handlePublishCourse)
				r.With(h.require(rbac.CourseManageOwn)).Delete("/{id}", h.handleDeleteCourse)
			})

			r.Route("/summaries", func(r chi.Router) {
				r.With(h.require(rbac.SummaryView)).Get("/", h.handleListSummaries)
				r.With(h.require(rbac.SummaryView)).Get("/course/{course_id}", h.handleGetSummaryByCourse)
				r.With(h.require(rbac.SummaryView)).Get("/{id}", h.handleGetSummary)
				r.With(h.require(rbac.SummaryManageOwn)).Post("/", h.handleCreateSummary)
				r.With(h.require(rbac.SummaryManageOwn)).Patch("/{id}", h.handleUpdateSummary)
				r.With(h.require(rbac.SummaryManageOwn)).Delete("/{id}", h.handleDeleteSummary)
			})

			r.Route("/ai", func(r chi.Router) {
				r.Use(h.require(rbac.GenerateOwn))
				r.Post("/generate-summary", h.handleGenerateSummary)
				r.Post("/generate-test", h.handleGenerateTest)
			})

			r.Route("/tests", func(r chi.Router) {
				r.With(h.require(rbac.TestViewRedacted)).Get("/", h.handleListTests)
				r.With(h.require(rbac.TestViewRedacted)).Get("/course/{course_id}", h.handleGetTestByCourse)
				r.With(h.require(rbac.TestViewRedacted)).Get("/{id}", h.handleGetTest)
				r.With(h.require(rbac.TestSubmit)).Post("/{id}/submit", h.handleSubmitTest)

				r.With(h.require(rbac.TestViewFull)).Get("/all", h.handleListTestsFull)
				r.With(h.require(rbac.TestViewFull)).Get("/course/{course_id}/full", h.handleGetTestByCourseFull)
				r.With(h.require(rbac.TestViewFull)).Get("/{id}/full", h.handleGetTestFull)
				r.With(h.require(rbac.TestManageOwn)).Post("/create", h.handleCreateTest)
				r.With(h.require(rbac.TestManageOwn)).Patch("/{id}", h.handleUpdateTest)
				r.With(h.require(rbac.TestManageOwn)).Delete("/{id}", h.handleDeleteTest)
			})

			r.Route("/results", func(r chi.Router) {
				r.With(h.require(rbac.ResultViewAll)).Get("/", h.handleListResults)
				r.With(h.require(rbac.ResultExport)).Get("/export", h.handleExportResults)
				r.With(h.require(rbac.ResultViewOwn)).Get("/my", h.handleMyResults)
				r.With(h.require(rbac.ResultViewOwn)).Get("/my/course/{course_id}", h.handleMyCourseResults)
			})
		})
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": i18n.T(r.Context(), "Welcome"),
		"version": h.config.Version,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
