package auth

import (
	"testing"
	"time"

	"github.com/preppro/backend/internal/models"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	user := models.User{ID: 42, Role: models.RoleTeacher}

	pair, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims, err := m.Parse(pair.Access, TokenAccess)
	if err != nil {
		t.Fatalf("Parse(access) error: %v", err)
	}
	if claims.UserID != 42 || claims.Role != models.RoleTeacher {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}

	if _, err := m.Parse(pair.Refresh, TokenRefresh); err != nil {
		t.Errorf("Parse(refresh) error: %v", err)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	user := models.User{ID: 7, Role: models.RoleStudent}
	pair, _ := m.Issue(user)

	other := NewTokenManager("other-secret", time.Hour, 24*time.Hour)

	expired := NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.Issue(user)

	tests := []struct {
		name  string
		mgr   *TokenManager
		token string
		typ   string
	}{
		{"refresh used as access", m, pair.Refresh, TokenAccess},
		{"access used as refresh", m, pair.Access, TokenRefresh},
		{"wrong secret", other, pair.Access, TokenAccess},
		{"expired", m, stale.Access, TokenAccess},
		{"garbage", m, "not.a.jwt", TokenAccess},
		{"empty", m, "", TokenAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.mgr.Parse(tt.token, tt.typ); err != ErrInvalidToken {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
