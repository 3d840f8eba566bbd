package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/quiz"
	"github.com/pavelanni/academy/internal/rbac"
)

type generateRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// prepareGeneration enforces the rate limit and ownership, and returns
// the source text of the course.
func (h *Handler) prepareGeneration(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	ctx := r.Context()
	u := model.UserFromContext(ctx)
	if !h.aiLimit.Allow(u.ID) {
		h.writeError(w, r, &apiError{kind: errRateLimited, msgID: "RateLimited"})
		return 0, "", false
	}
	var req generateRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return 0, "", false
	}
	c, err := h.ownedCourse(ctx, u, req.CourseID, rbac.GenerateOwn)
	if err != nil {
		h.writeError(w, r, err)
		return 0, "", false
	}
	text, err := h.courseText(ctx, c)
	if err != nil {
		h.writeError(w, r, err)
		return 0, "", false
	}
	if h.gen == nil {
		h.writeError(w, r, fmt.Errorf("%w: no generator configured", model.ErrUpstreamUnavailable))
		return 0, "", false
	}
	return c.ID, text, true
}

func (h *Handler) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	courseID, text, ok := h.prepareGeneration(w, r)
	if !ok {
		return
	}
	content, err := h.gen.GenerateSummary(r.Context(), text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.store.UpsertSummary(r.Context(), courseID, content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slog.Info("generated summary", "course_id", courseID, "summary_id", s.ID)
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleGenerateTest(w http.ResponseWriter, r *http.Request) {
	courseID, text, ok := h.prepareGeneration(w, r)
	if !ok {
		return
	}
	questions, err := h.gen.GenerateQuestions(r.Context(), text, h.config.NumQuestions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Generated content passes the same gate as hand-written tests.
	if len(questions) != h.config.NumQuestions {
		h.writeError(w, r, fmt.Errorf("%w: generator returned %d questions, want %d",
			model.ErrUpstreamUnavailable, len(questions), h.config.NumQuestions))
		return
	}
	if err := quiz.Validate(questions); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: generated test rejected: %v", model.ErrUpstreamUnavailable, err))
		return
	}
	t, err := h.store.UpsertTest(r.Context(), courseID, questions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slog.Info("generated test", "course_id", courseID, "test_id", t.ID, "questions", len(questions))
	writeJSON(w, http.StatusOK, t)
}
