package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pavelanni/academy/internal/extract"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/rbac"
	"github.com/pavelanni/academy/internal/storage"
)

type createCourseRequest struct {
	Title        string `json:"title" validate:"required,max=255"`
	Description  string `json:"description" validate:"max=5000"`
	OriginalText string `json:"original_text"`
	FileURL      string `json:"file_url" validate:"omitempty,url"`
}

type updateCourseRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	OriginalText *string `json:"original_text"`
	FileURL      *string `json:"file_url"`
}

// isBlobKey reports whether a course file reference points into the
// blob store rather than at an external URL.
func isBlobKey(ref string) bool {
	return ref != "" && !strings.Contains(ref, "://")
}

// visibleCourse loads a course the user may read. Drafts are reported as
// missing to users who cannot see them.
func (h *Handler) visibleCourse(ctx context.Context, u *model.User, id int64) (*model.Course, error) {
	c, err := h.store.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || (!c.Published() && !rbac.Has(u.Role, rbac.CourseViewDrafts)) {
		return nil, notFound("CourseNotFound")
	}
	return c, nil
}

// ownedCourse loads a course and checks that u may act on it under an
// owner-scoped permission.
func (h *Handler) ownedCourse(ctx context.Context, u *model.User, id int64, perm rbac.Permission) (*model.Course, error) {
	c, err := h.store.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("CourseNotFound")
	}
	if v := rbac.Check(u.Role, c.CreatedBy, u.ID, perm); !v.Allowed() {
		slog.Warn("access denied", "user_id", u.ID, "course_id", id, "permission", perm, "verdict", v)
		return nil, forbidden("Forbidden")
	}
	return c, nil
}

func (h *Handler) reloadCourse(ctx context.Context, id int64) (*model.Course, error) {
	c, err := h.store.GetCourse(ctx, id)
	if err == nil && c == nil {
		err = notFound("CourseNotFound")
	}
	return c, err
}

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	u := model.UserFromContext(r.Context())
	skip, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	courses, err := h.store.ListCourses(r.Context(), !rbac.Has(u.Role, rbac.CourseViewDrafts), skip, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	for i := range courses {
		courses[i].OriginalText = ""
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *Handler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.visibleCourse(r.Context(), model.UserFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.OriginalText) == "" && req.FileURL == "" {
		h.writeError(w, r, model.Invalid("CourseSourceRequired", "original_text or file_url is required", nil))
		return
	}
	u := model.UserFromContext(r.Context())
	c, err := h.store.CreateCourse(r.Context(), model.Course{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		OriginalText: req.OriginalText,
		FileURL:      req.FileURL,
		CreatedBy:    u.ID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleUploadCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	maxMB := map[string]any{"MaxMB": h.config.MaxUploadBytes >> 20}
	tooLarge := &apiError{kind: errTooLarge, msgID: "FileTooLarge", data: maxMB}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.writeError(w, r, tooLarge)
			return
		}
		h.writeError(w, r, model.Invalid("InvalidRequestBody", "invalid multipart form: "+err.Error(), nil))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		h.writeError(w, r, model.Invalid("FieldRequired", "title is required", map[string]any{"Field": "title"}))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, model.Invalid("FileRequired", "file is required", nil))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.MaxUploadBytes+1))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > h.config.MaxUploadBytes {
		h.writeError(w, r, tooLarge)
		return
	}
	text, err := extract.Text(header.Filename, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	key, err := h.blobs.Put(ctx, strings.ToLower(filepath.Ext(header.Filename)), bytes.NewReader(data))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("store upload: %w", err))
		return
	}
	u := model.UserFromContext(ctx)
	c, err := h.store.CreateCourse(ctx, model.Course{
		Title:        title,
		Description:  r.FormValue("description"),
		OriginalText: text,
		FileURL:      key,
		CreatedBy:    u.ID,
	})
	if err != nil {
		if derr := h.blobs.Delete(ctx, key); derr != nil {
			slog.Error("failed to remove orphaned upload", "key", key, "error", derr)
		}
		h.writeError(w, r, err)
		return
	}
	slog.Info("uploaded course file", "course_id", c.ID, "filename", header.Filename, "bytes", len(data))
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleCourseFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.visibleCourse(r.Context(), model.UserFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if c.FileURL == "" {
		h.writeError(w, r, notFound("FileNotFound"))
		return
	}
	if !isBlobKey(c.FileURL) {
		http.Redirect(w, r, c.FileURL, http.StatusFound)
		return
	}

	rc, err := h.blobs.Get(r.Context(), c.FileURL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = notFound("FileNotFound")
		}
		h.writeError(w, r, err)
		return
	}
	defer rc.Close()

	ext := filepath.Ext(c.FileURL)
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="course-%d%s"`, c.ID, ext))
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("failed to stream course file", "course_id", c.ID, "error", err)
	}
}

func (h *Handler) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.ownedCourse(ctx, model.UserFromContext(ctx), id, rbac.CourseManageOwn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateCourseRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		h.writeError(w, r, model.Invalid("FieldRequired", "title must not be empty", map[string]any{"Field": "title"}))
		return
	}
	if _, err := h.store.UpdateCourse(ctx, id, model.CourseUpdate{
		Title:        req.Title,
		Description:  req.Description,
		OriginalText: req.OriginalText,
		FileURL:      req.FileURL,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.FileURL != nil && *req.FileURL != c.FileURL && isBlobKey(c.FileURL) {
		h.removeBlob(ctx, c.FileURL)
	}
	updated, err := h.reloadCourse(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handlePublishCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.ownedCourse(ctx, model.UserFromContext(ctx), id, rbac.CourseManageOwn); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.store.SetCourseStatus(ctx, id, model.CoursePublished); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.reloadCourse(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.ownedCourse(ctx, model.UserFromContext(ctx), id, rbac.CourseManageOwn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.store.DeleteCourse(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	if isBlobKey(c.FileURL) {
		h.removeBlob(ctx, c.FileURL)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeBlob(ctx context.Context, key string) {
	if err := h.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("failed to delete course file", "key", key, "error", err)
	}
}

// courseText returns the text content generation works from: the stored
// text, or failing that the text extracted from the stored file.
func (h *Handler) courseText(ctx context.Context, c *model.Course) (string, error) {
	if strings.TrimSpace(c.OriginalText) != "" {
		return c.OriginalText, nil
	}
	if !isBlobKey(c.FileURL) {
		return "", model.Invalid("CourseHasNoText", "course has no text to generate content from", nil)
	}
	rc, err := h.blobs.Get(ctx, c.FileURL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", model.Invalid("CourseHasNoText", "course file is missing", nil)
		}
		return "", fmt.Errorf("open course file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read course file: %w", err)
	}
	return extract.Text(c.FileURL, data)
}
