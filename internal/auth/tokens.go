package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/preppro/backend/internal/models"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are carried by both access and refresh tokens; Type tells them apart.
type Claims struct {
	UserID int64       `json:"user_id"`
	Role   models.Role `json:"role"`
	Type   string      `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 JWTs.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *TokenManager) sign(user models.User, typ string, ttl time.Duration) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// Issue returns a fresh access/refresh pair for user.
func (m *TokenManager) Issue(user models.User) (models.TokenPair, error) {
	access, _, err := m.sign(user, TokenAccess, m.accessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, _, err := m.sign(user, TokenRefresh, m.refreshTTL)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse verifies signature, expiry and token type.
func (m *TokenManager) Parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess satisfies middleware.Verifier.
func (m *TokenManager) VerifyAccess(token string) (int64, models.Role, error) {
	claims, err := m.Parse(token, TokenAccess)
	if err != nil {
		return 0, "", err
	}
	return claims.UserID, claims.Role, nil
}
