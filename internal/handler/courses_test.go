package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavelanni/academy/internal/model"
)

func TestCourseVisibility(t *testing.T) {
	f := newFixture(t, model.ServerConfig{})
	_, methodist := f.user("m@example.com", model.UserRoleMethodist)
	_, student := f.user("s@example.com", model.UserRoleStudent)

	c := f.course(methodist, false)
	if c.Status != model.CourseDraft || c.OriginalText == "" {
		t.Fatalf("created course = %+v", c)
	}
	path := fmt.Sprintf("/api/courses/%d", c.ID)

	rec := f.do(http.MethodGet, "/api/courses", student, nil)
	f.expect(rec, http.StatusOK)
	if got := decode[[]model.Course](t, rec); len(got) != 0 {
		t.Errorf("student sees %d draft courses", len(got))
	}
	f.expect(f.do(http.MethodGet, path, student, nil), http.StatusNotFound)

	rec = f.do(http.MethodGet, "/api/courses", methodist, nil)
	f.expect(rec, http.StatusOK)
	list := decode[[]model.Course](t, rec)
	if len(list) != 1 || list[0].OriginalText != "" {
		t.Errorf("methodist list = %+v", list)
	}

	f.expect(f.do(http.MethodPatch, path+"/publish", methodist, nil), http.StatusOK)

	rec = f.do(http.MethodGet, path, student, nil)
	f.expect(rec, http.StatusOK)
	if got := decode[model.Course](t, rec); got.OriginalText != "Goroutines and channels." {
		t.Errorf("detail view = %+v", got)
	}
	rec = f.do(http.MethodGet, "/api/courses", student, nil)
	if got := decode[[]model.Course](t, rec); len(got) != 1 {
		t.Errorf("student sees %d published courses, want 1", len(got))
	}
}

func TestCourseOwnership(t *testing.T) {
	f := newFixture(t, model.ServerConfig{})
	_, owner := f.user("owner@example.com", model.UserRoleMethodist)
	_, other := f.user("other@example.com", model.UserRoleMethodist)
	_, student := f.user("s@example.com", model.UserRoleStudent)
	c := f.course(owner, true)
	path := fmt.Sprintf("/api/courses/%d", c.ID)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"student creates", http.MethodPost, "/api/courses", student, map[string]string{"title": "x", "original_text": "y"}, http.StatusForbidden},
		{"other updates", http.MethodPatch, path, other, map[string]string{"title": "Hijacked"}, http.StatusForbidden},
		{"other publishes", http.MethodPatch, path + "/publish", other, nil, http.StatusForbidden},
		{"other deletes", http.MethodDelete, path, other, nil, http.StatusForbidden},
		{"student deletes", http.MethodDelete, path, student, nil, http.StatusForbidden},
		{"missing course", http.MethodPatch, "/api/courses/999", owner, map[string]string{"title": "x"}, http.StatusNotFound},
		{"empty title", http.MethodPatch, path, owner, map[string]string{"title": "  "}, http.StatusBadRequest},
		{"no source", http.MethodPost, "/api/courses", owner, map[string]string{"title": "x"}, http.StatusBadRequest},
		{"bad file url", http.MethodPost, "/api/courses", owner, map[string]string{"title": "x", "file_url": "not a url"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.expect(f.do(tt.method, tt.path, tt.token, tt.body), tt.status)
		})
	}

	rec := f.do(http.MethodPatch, path, owner, map[string]string{"title": "Go in depth"})
	f.expect(rec, http.StatusOK)
	if got := decode[model.Course](t, rec); got.Title != "Go in depth" || got.Description != "Intro" {
		t.Errorf("updated course = %+v", got)
	}
}

func TestDeleteCourseCascades(t *testing.T) {
	f := newFixture(t, model.ServerConfig{})
	_, methodist := f.user("m@example.com", model.UserRoleMethodist)
	_, student := f.user("s@example.com", model.UserRoleStudent)
	c := f.course(methodist, true)
	tst := f.test(methodist, c.ID)
	f.expect(f.do(http.MethodPost, fmt.Sprintf("/api/tests/%d/submit", tst.ID), student, map[string]any{
		"answers": []map[string]any{{"question_id": 0, "selected_answer": "right"}},
	}), http.StatusOK)

	f.expect(f.do(http.MethodDelete, fmt.Sprintf("/api/courses/%d", c.ID), methodist, nil), http.StatusNoContent)
	f.expect(f.do(http.MethodGet, fmt.Sprintf("/api/tests/%d/full", tst.ID), methodist, nil), http.StatusNotFound)

	rec := f.do(http.MethodGet, "/api/results", methodist, nil)
	f.expect(rec, http.StatusOK)
	if got := decode[[]model.ResultView](t, rec); len(got) != 0 {
		t.Errorf("expected results to be deleted, got %d", len(got))
	}
}

func upload(t *testing.T, f *fixture, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", "Uploaded course")
	_ = mw.WriteField("description", "From a file")
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/courses/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadCourse(t *testing.T) {
	f := newFixture(t, model.ServerConfig{MaxUploadBytes: 1 << 10})
	_, methodist := f.user("m@example.com", model.UserRoleMethodist)

	rec := upload(t, f, methodist, "lesson.md", []byte("# Lesson\n\nChannels synchronize goroutines."))
	f.expect(rec, http.StatusCreated)
	c := decode[model.Course](t, rec)
	if c.OriginalText != "# Lesson\n\nChannels synchronize goroutines." || c.FileURL == "" {
		t.Fatalf("uploaded course = %+v", c)
	}

	rec = f.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/file", c.ID), methodist, nil)
	f.expect(rec, http.StatusOK)
	data, _ := io.ReadAll(rec.Body)
	if string(data) != "# Lesson\n\nChannels synchronize goroutines." {
		t.Errorf("downloaded file = %q", data)
	}
	if cd := rec.Header().Get("Content-Disposition"); !contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
	}{
		{"unsupported type", "slides.pptx", []byte("x"), http.StatusBadRequest},
		{"no file", "", nil, http.StatusBadRequest},
		{"empty text", "blank.txt", []byte("   "), http.StatusBadRequest},
		{"too large", "big.txt", bytes.Repeat([]byte("a"), 2<<10), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.expect(upload(t, f, methodist, tt.filename, tt.content), tt.status)
		})
	}
}

func TestCourseFileMissing(t *testing.T) {
	f := newFixture(t, model.ServerConfig{})
	_, methodist := f.user("m@example.com", model.UserRoleMethodist)
	c := f.course(methodist, false)
	f.expect(f.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/file", c.ID), methodist, nil), http.StatusNotFound)

	rec := f.do(http.MethodPost, "/api/courses", methodist, map[string]string{
		"title": "Linked", "file_url": "https://example.com/course.pdf",
	})
	f.expect(rec, http.StatusCreated)
	linked := decode[model.Course](t, rec)
	rec = f.do(http.MethodGet, fmt.Sprintf("/api/courses/%d/file", linked.ID), methodist, nil)
	f.expect(rec, http.StatusFound)
	if loc := rec.Header().Get("Location"); loc != "https://example.com/course.pdf" {
		t.Errorf("Location = %q", loc)
	}
}
