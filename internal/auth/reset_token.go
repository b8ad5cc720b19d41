package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/preppro/backend/internal/models"
)

var (
	resetSalt = []byte("preppro.backend.auth.reset_token")

	errInvalidResetToken = errors.New("invalid token")
	errResetTokenExpired = errors.New("token expired")
	errInvalidUID        = errors.New("invalid uid")

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// ResetTokens makes and checks one-time password reset tokens. A token is
// bound to the user's password hash and last login, so it stops working once
// either changes.
type ResetTokens struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

func NewResetTokens(secret string, timeout time.Duration) *ResetTokens {
	return &ResetTokens{secret: []byte(secret), timeout: timeout, now: time.Now}
}

// EncodeUID base64 encodes a user ID for use in reset links.
func EncodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, errInvalidUID
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidUID
	}
	return id, nil
}

func (r *ResetTokens) Make(usr models.User) string {
	return r.makeWithTimestamp(usr, numDaysSince2001(r.now()))
}

func (r *ResetTokens) Verify(usr models.User, token string) error {
	if token == "" {
		return errInvalidResetToken
	}
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidResetToken
	}
	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidResetToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidResetToken
	}

	// check that token has not been tampered with
	expected := r.makeWithTimestamp(usr, ts)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 0 {
		return errInvalidResetToken
	}

	if numDaysSince2001(r.now())-ts > int(r.timeout/(24*time.Hour)) {
		return errResetTokenExpired
	}
	return nil
}

func (r *ResetTokens) makeWithTimestamp(usr models.User, ts int) string {
	tsB32 := b32.EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, r.sign(hashValue(usr, ts)))
}

func (r *ResetTokens) sign(val []byte) string {
	key := sha256.Sum256(append(append([]byte{}, resetSalt...), r.secret...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr models.User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.FormatInt(usr.ID, 10))
	val.WriteString(usr.PasswordHash)
	if usr.LastLogin != nil {
		val.WriteString(usr.LastLogin.UTC().Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
