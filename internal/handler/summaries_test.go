package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pavelanni/academy/internal/model"
)

func TestSummaryLifecycle(t *testing.T) {
	f := newFixture(t, model.ServerConfig{})
	_, methodist := f.user("m@example.com", model.UserRoleMethodist)
	_, other := f.user("other@example.com", model.UserRoleMethodist)
	_, student := f.user("s@example.com", model.UserRoleStudent)
	c := f.course(methodist, false)

	rec := f.do(http.MethodPost, "/api/summaries", methodist, map[string]any{"course_id": c.ID, "content": "First draft."})
	f.expect(rec, http.StatusCreated)
	s := decode[model.Summary](t, rec)

	rec = f.do(http.MethodPost, "/api/summaries", methodist, map[string]any{"course_id": c.ID, "content": "Second draft."})
	f.expect(rec, http.StatusCreated)
	if again := decode[model.Summary](t, rec); again.ID != s.ID || again.Content != "Second draft." {
		t.Errorf("upsert = %+v, want id %d with new content", again, s.ID)
	}

	byCourse := fmt.Sprintf("/api/summaries/course/%d", c.ID)
	path := fmt.Sprintf("/api/summaries/%d", s.ID)

	f.expect(f.do(http.MethodGet, byCourse, student, nil), http.StatusNotFound)
	f.expect(f.do(http.MethodGet, path, student, nil), http.StatusNotFound)
	rec = f.do(http.MethodGet, "/api/summaries", student, nil)
	f.expect(rec, http.StatusOK)
	if got := decode[[]model.Summary](t, rec); len(got) != 0 {
		t.Errorf("student sees %d summaries of draft courses", len(got))
	}

	f.expect(f.do(http.MethodPatch, fmt.Sprintf("/api/courses/%d/publish", c.ID), methodist, nil), http.StatusOK)

	rec = f.do(http.MethodGet, byCourse, student, nil)
	f.expect(rec, http.StatusOK)
	if got := decode[model.Summary](t, rec); got.Content != "Second draft." {
		t.Errorf("summary by course = %+v", got)
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"student creates", http.MethodPost, "/api/summaries", student, map[string]any{"course_id": c.ID, "content": "x"}, http.StatusForbidden},
		{"other updates", http.MethodPatch, path, other, map[string]string{"content": "x"}, http.StatusForbidden},
		{"other deletes", http.MethodDelete, path, other, nil, http.StatusForbidden},
		{"missing course", http.MethodPost, "/api/summaries", methodist, map[string]any{"course_id": 999, "content": "x"}, http.StatusNotFound},
		{"empty content", http.MethodPost, "/api/summaries", methodist, map[string]any{"course_id": c.ID}, http.StatusBadRequest},
		{"missing summary", http.MethodPatch, "/api/summaries/999", methodist, map[string]string{"content": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.expect(f.do(tt.method, tt.path, tt.token, tt.body), tt.status)
		})
	}

	rec = f.do(http.MethodPatch, path, methodist, map[string]string{"content": "Final."})
	f.expect(rec, http.StatusOK)
	if got := decode[model.Summary](t, rec); got.Content != "Final." || got.UpdatedAt == nil {
		t.Errorf("updated summary = %+v", got)
	}

	f.expect(f.do(http.MethodDelete, path, methodist, nil), http.StatusNoContent)
	f.expect(f.do(http.MethodGet, byCourse, methodist, nil), http.StatusNotFound)
}
