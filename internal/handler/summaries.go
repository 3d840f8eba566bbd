package handler

import (
	"context"
	"net/http"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/rbac"
)

type createSummaryRequest struct {
	CourseID int64  `json:"course_id" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required"`
}

type updateSummaryRequest struct {
	Content string `json:"content" validate:"required"`
}

// ownedSummary loads a summary whose course u may manage.
func (h *Handler) ownedSummary(ctx context.Context, u *model.User, id int64) (*model.Summary, error) {
	s, err := h.store.GetSummary(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("SummaryNotFound")
	}
	if _, err := h.ownedCourse(ctx, u, s.CourseID, rbac.SummaryManageOwn); err != nil {
		return nil, err
	}
	return s, nil
}

func (h *Handler) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	u := model.UserFromContext(r.Context())
	skip, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.store.ListSummaries(r.Context(), !rbac.Has(u.Role, rbac.CourseViewDrafts), skip, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetSummaryByCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID, err := pathID(r, "course_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.visibleCourse(ctx, model.UserFromContext(ctx), courseID); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.store.GetSummaryByCourse(ctx, courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if s == nil {
		h.writeError(w, r, notFound("SummaryNotFound"))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.store.GetSummary(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if s == nil {
		h.writeError(w, r, notFound("SummaryNotFound"))
		return
	}
	if _, err := h.visibleCourse(ctx, model.UserFromContext(ctx), s.CourseID); err != nil {
		h.writeError(w, r, notFound("SummaryNotFound"))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleCreateSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createSummaryRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ownedCourse(ctx, model.UserFromContext(ctx), req.CourseID, rbac.SummaryManageOwn); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.store.UpsertSummary(ctx, req.CourseID, req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) handleUpdateSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ownedSummary(ctx, model.UserFromContext(ctx), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateSummaryRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.store.UpdateSummary(ctx, id, req.Content); err != nil {
		h.writeError(w, r, err)
		return
	}
	s, err := h.store.GetSummary(ctx, id)
	if err == nil && s == nil {
		err = notFound("SummaryNotFound")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ownedSummary(ctx, model.UserFromContext(ctx), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.store.DeleteSummary(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
