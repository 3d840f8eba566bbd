package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/rbac"
)

type memUsers map[int64]*model.User

func (m memUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m memUsers) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	return m[id], nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func testUsers(t *testing.T) memUsers {
	t.Helper()
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return memUsers{
		1: {ID: 1, Email: "methodist@example.com", FullName: "T", PasswordHash: hash, Role: model.UserRoleMethodist},
		2: {ID: 2, Email: "student@example.com", FullName: "S", PasswordHash: hash, Role: model.UserRoleStudent},
	}
}

func TestIssueAndParse(t *testing.T) {
	s := newTestService(t)
	token, err := s.Issue(&model.User{ID: 42, Role: model.UserRoleStudent})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("UserID = %d, %v; want 42", id, err)
	}
	if claims.Role != model.UserRoleStudent {
		t.Errorf("Role = %q", claims.Role)
	}
	if claims.Issuer != Issuer {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestParseRejects(t *testing.T) {
	s := newTestService(t)
	user := &model.User{ID: 1, Role: model.UserRoleMethodist}

	expired := newTestService(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _ := expired.Issue(user)

	other, _ := NewService("other-secret", time.Hour)
	foreignToken, _ := other.Issue(user)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role: model.UserRoleMethodist,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: model.UserRoleMethodist,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"expired", expiredToken},
		{"wrong secret", foreignToken},
		{"alg none", noneToken},
		{"wrong issuer", wrongIssuer},
		{"unknown role", badRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
	s, err := NewService("x", 0)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if s.TTL() != DefaultTokenTTL {
		t.Errorf("TTL = %v, want %v", s.TTL(), DefaultTokenTTL)
	}
}

func TestLogin(t *testing.T) {
	s := newTestService(t)
	users := testUsers(t)

	token, u, err := s.Login(context.Background(), users, "methodist@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.ID != 1 || token == "" {
		t.Errorf("Login returned user %d, token %q", u.ID, token)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "methodist@example.com", "nope"},
		{"unknown email", "ghost@example.com", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Login(context.Background(), users, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, model.ErrUnauthorized) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func recordError(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		w.WriteHeader(http.StatusUnauthorized)
	case errors.Is(err, model.ErrForbidden):
		w.WriteHeader(http.StatusForbidden)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
	_, _ = w.Write([]byte(err.Error()))
}

func TestMiddleware(t *testing.T) {
	s := newTestService(t)
	users := testUsers(t)
	studentToken, _ := s.Issue(users[2])
	ghostToken, _ := s.Issue(&model.User{ID: 99, Role: model.UserRoleStudent})

	h := s.Middleware(users, recordError)(
		Require(rbac.TestSubmit, recordError)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(model.UserFromContext(r.Context()).Email))
			})))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
		{"deleted user", "Bearer " + ghostToken, http.StatusUnauthorized, ""},
		{"student", "Bearer " + studentToken, http.StatusOK, "student@example.com"},
		{"lowercase scheme", "bearer " + studentToken, http.StatusOK, "student@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("missing WWW-Authenticate header")
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireForbidsRole(t *testing.T) {
	s := newTestService(t)
	users := testUsers(t)
	methodistToken, _ := s.Issue(users[1])

	h := s.Middleware(users, recordError)(
		Require(rbac.TestSubmit, recordError)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+methodistToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
