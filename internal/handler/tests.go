package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/quiz"
	"github.com/pavelanni/academy/internal/rbac"
)

type createTestRequest struct {
	CourseID  int64            `json:"course_id" validate:"required,gt=0"`
	Questions []model.Question `json:"questions"`
}

type updateTestRequest struct {
	Questions []model.Question `json:"questions"`
}

type submitRequest struct {
	Answers []model.SubmittedAnswer `json:"answers"`
}

func (h *Handler) loadTest(ctx context.Context, id int64) (*model.Test, error) {
	t, err := h.store.GetTest(ctx, id)
	if err == nil && t == nil {
		err = notFound("TestNotFound")
	}
	return t, err
}

// visibleTest loads a test whose course u may read.
func (h *Handler) visibleTest(ctx context.Context, u *model.User, id int64) (*model.Test, error) {
	t, err := h.loadTest(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := h.visibleCourse(ctx, u, t.CourseID); err != nil {
		return nil, notFound("TestNotFound")
	}
	return t, nil
}

// ownedTest loads a test whose course u may manage.
func (h *Handler) ownedTest(ctx context.Context, u *model.User, id int64) (*model.Test, error) {
	t, err := h.loadTest(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := h.ownedCourse(ctx, u, t.CourseID, rbac.TestManageOwn); err != nil {
		return nil, err
	}
	return t, nil
}

func (h *Handler) listTests(w http.ResponseWriter, r *http.Request, publishedOnly bool) ([]model.Test, bool) {
	skip, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	tests, err := h.store.ListTests(r.Context(), publishedOnly, skip, limit)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return tests, true
}

func (h *Handler) testByCourse(w http.ResponseWriter, r *http.Request) (*model.Test, bool) {
	ctx := r.Context()
	courseID, err := pathID(r, "course_id")
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	if _, err := h.visibleCourse(ctx, model.UserFromContext(ctx), courseID); err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	t, err := h.store.GetTestByCourse(ctx, courseID)
	if err == nil && t == nil {
		err = notFound("TestNotFound")
	}
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return t, true
}

func (h *Handler) handleListTests(w http.ResponseWriter, r *http.Request) {
	if tests, ok := h.listTests(w, r, true); ok {
		writeJSON(w, http.StatusOK, quiz.RedactAll(tests))
	}
}

func (h *Handler) handleListTestsFull(w http.ResponseWriter, r *http.Request) {
	if tests, ok := h.listTests(w, r, false); ok {
		writeJSON(w, http.StatusOK, tests)
	}
}

func (h *Handler) handleGetTestByCourse(w http.ResponseWriter, r *http.Request) {
	if t, ok := h.testByCourse(w, r); ok {
		writeJSON(w, http.StatusOK, quiz.Redact(*t))
	}
}

func (h *Handler) handleGetTestByCourseFull(w http.ResponseWriter, r *http.Request) {
	if t, ok := h.testByCourse(w, r); ok {
		writeJSON(w, http.StatusOK, t)
	}
}

func (h *Handler) handleGetTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.visibleTest(ctx, model.UserFromContext(ctx), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Redact(*t))
}

func (h *Handler) handleGetTestFull(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.loadTest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTestRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ownedCourse(ctx, model.UserFromContext(ctx), req.CourseID, rbac.TestManageOwn); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := quiz.Validate(req.Questions); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.store.UpsertTest(ctx, req.CourseID, req.Questions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdateTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ownedTest(ctx, model.UserFromContext(ctx), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateTestRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := quiz.Validate(req.Questions); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.store.UpdateTestQuestions(ctx, id, req.Questions); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.loadTest(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ownedTest(ctx, model.UserFromContext(ctx), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.store.DeleteTest(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmitTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.grader.Submit(ctx, model.UserFromContext(ctx).ID, id, req.Answers)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			err = notFound("TestNotFound")
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
