package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/report"
	"github.com/pavelanni/academy/internal/store"
)

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Invalid("InvalidQueryParam", "invalid value for "+name, map[string]any{"Name": name})
	}
	return id, nil
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request, f store.ResultFilter) {
	skip, limit, err := paging(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f.Skip, f.Limit = skip, limit
	views, err := h.store.ListResults(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	grading.Annotate(views)
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	courseID, err := queryID(r, "course_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.listResults(w, r, store.ResultFilter{CourseID: courseID})
}

func (h *Handler) handleMyResults(w http.ResponseWriter, r *http.Request) {
	h.listResults(w, r, store.ResultFilter{StudentID: model.UserFromContext(r.Context()).ID})
}

func (h *Handler) handleMyCourseResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := model.UserFromContext(ctx)
	courseID, err := pathID(r, "course_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.visibleCourse(ctx, u, courseID); err != nil {
		h.writeError(w, r, err)
		return
	}
	views, err := h.store.ListResults(ctx, store.ResultFilter{StudentID: u.ID, CourseID: courseID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]model.DetailedResult, 0, len(views))
	for _, v := range views {
		t, err := h.store.GetTest(ctx, v.TestID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if t == nil {
			continue
		}
		out = append(out, grading.Detail(v, t.Questions))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleExportResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	courseID, err := queryID(r, "course_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	delim, err := report.ParseDelimiter(q.Get("delimiter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	gran, err := report.ParseGranularity(q.Get("granularity"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if lang := q.Get("lang"); lang != "" && i18n.Supported(lang) {
		ctx = i18n.WithLocalizer(ctx, i18n.NewLocalizer(lang))
	}

	rows, err := h.store.ExportResults(ctx, courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(ctx, &buf, rows, report.Options{Delimiter: delim, Granularity: gran}); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="test_results.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
