package auth

import (
	"testing"
	"time"

	"github.com/preppro/backend/internal/models"
)

func TestMakeVerifyResetToken(t *testing.T) {
	timeout := 3 * 24 * time.Hour
	gen := NewResetTokens("secret", timeout)

	now := time.Now()
	usr := models.User{
		ID:           1,
		Username:     "t",
		Email:        "t@test.test",
		Role:         models.RoleStudent,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		LastLogin:    &now,
	}

	validToken := gen.Make(usr)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	gen.now = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := gen.Make(usr)
	gen.now = time.Now

	changed := usr
	changed.PasswordHash = "$2a$10$zzzzzzzzzzzzzzzzzzzzzz"

	tests := []struct {
		name    string
		usr     models.User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidResetToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidResetToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidResetToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidResetToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidResetToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errResetTokenExpired},
		{name: "password changed", usr: changed, token: validToken, wantErr: errInvalidResetToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.Verify(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	uid := EncodeUID(1234)
	id, err := DecodeUID(uid)
	if err != nil || id != 1234 {
		t.Fatalf("DecodeUID(%q) = %d, %v", uid, id, err)
	}

	for _, bad := range []string{"", "!!!", EncodeUID(0), "YWJj"} {
		if _, err := DecodeUID(bad); err != errInvalidUID {
			t.Errorf("DecodeUID(%q) error = %v, want errInvalidUID", bad, err)
		}
	}
}
