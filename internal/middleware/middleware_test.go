package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeVerifier struct{}

func (fakeVerifier) VerifyAccess(token string) (int64, models.Role, error) {
	switch token {
	case "teacher-token":
		return 1, models.RoleTeacher, nil
	case "student-token":
		return 2, models.RoleStudent, nil
	}
	return 0, "", errors.New("bad token")
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserID(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-User", string(Role(r.Context())))
	if uid > 0 {
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(fakeVerifier{})(http.HandlerFunc(echoUser))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantRole   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, ""},
		{"teacher", "Bearer teacher-token", http.StatusOK, "teacher"},
		{"lowercase scheme", "bearer student-token", http.StatusOK, "student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantRole, rr.Header().Get("X-User"))
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := AuthMiddleware(fakeVerifier{})(
		RequireRole(models.RoleTeacher, "Only teachers can do this")(http.HandlerFunc(echoUser)),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Only teachers can do this")

	req.Header.Set("Authorization", "Bearer teacher-token")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
}
