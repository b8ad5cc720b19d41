package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/httpx"
	mailer "github.com/preppro/backend/internal/mail"
	"github.com/preppro/backend/internal/middleware"
	"github.com/preppro/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type userStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string, role models.Role) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	RevokeToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Handler struct {
	store       userStore
	tokens      *TokenManager
	resets      *ResetTokens
	mail        mailer.Service
	frontendURL string
}

func NewHandler(store userStore, tokens *TokenManager, resets *ResetTokens, mail mailer.Service, frontendURL string) *Handler {
	return &Handler{
		store:       store,
		tokens:      tokens,
		resets:      resets,
		mail:        mail,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// RegisterRoutes mounts sign-in and reset endpoints on public and the
// session endpoints on protected.
func (h *Handler) RegisterRoutes(public, protected *mux.Router) {
	public.HandleFunc("/auth/register", h.Register).Methods("POST")
	public.HandleFunc("/auth/login", h.Login).Methods("POST")
	public.HandleFunc("/auth/token/refresh", h.Refresh).Methods("POST")
	public.HandleFunc("/auth/forgot-password", h.ForgotPassword).Methods("POST")
	public.HandleFunc("/auth/reset-password", h.ResetPassword).Methods("POST")

	protected.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	protected.HandleFunc("/auth/me", h.GetCurrentUser).Methods("GET")
}

// HashPassword bcrypt-hashes a plaintext password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	username := strings.TrimSpace(req.Username)

	hashed, err := HashPassword(req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), email, username, hashed, req.Role)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	log.Printf("[auth] registered user %d (%s)", user.ID, user.Role)
	httpx.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := h.store.GetByEmail(r.Context(), email)
	if apperr.IsNotFound(err) {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid credentials"})
		return
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid credentials"})
		return
	}

	now := time.Now()
	if err := h.store.TouchLastLogin(r.Context(), user.ID, now); err != nil {
		log.Printf("[auth] failed to record login for user %d: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	tokens, err := h.tokens.Issue(*user)
	if err != nil {
		httpx.WriteError(w, r, apperr.Internal("Failed to generate token", err))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, models.AuthResponse{User: *user, Tokens: tokens})
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair issued.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	claims, err := h.liveRefreshClaims(r.Context(), req.Refresh)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Token is invalid or expired"})
		return
	}

	user, err := h.store.GetByID(r.Context(), claims.UserID)
	if apperr.IsNotFound(err) {
		httpx.WriteJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Token is invalid or expired"})
		return
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.store.RevokeToken(r.Context(), claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	tokens, err := h.tokens.Issue(*user)
	if err != nil {
		httpx.WriteError(w, r, apperr.Internal("Failed to generate token", err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.RefreshRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Refresh token is required"})
		return
	}

	claims, err := h.tokens.Parse(req.Refresh, TokenRefresh)
	if err != nil || claims.UserID != userID {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid token"})
		return
	}

	if err := h.store.RevokeToken(r.Context(), claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	user, err := h.store.GetByID(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := h.store.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	link := h.resetLink(*user)
	msg := mailer.Message{
		To:      []mail.Address{{Name: user.Username, Address: user.Email}},
		Subject: "Password Reset Request",
		Text: fmt.Sprintf(
			"Hi %s,\n\nClick the link below to reset your password:\n%s\n\nIf you did not request this, you can ignore this email.",
			user.Username, link),
	}
	if err := h.mail.Send(r.Context(), msg); err != nil {
		httpx.WriteError(w, r, apperr.Internal("Failed to send email", err))
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Password reset email sent.", nil)
}

func (h *Handler) resetLink(user models.User) string {
	q := url.Values{}
	q.Set("uid", EncodeUID(user.ID))
	q.Set("token", h.resets.Make(user))
	return h.frontendURL + "/login/reset-password?" + q.Encode()
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	uid := r.URL.Query().Get("uid")
	token := r.URL.Query().Get("token")
	if uid == "" || token == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid or missing reset link"})
		return
	}

	var req models.ResetPasswordRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Passwords do not match"})
		return
	}

	userID, err := DecodeUID(uid)
	if err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid user"})
		return
	}
	user, err := h.store.GetByID(r.Context(), userID)
	if apperr.IsNotFound(err) {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid user"})
		return
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.resets.Verify(*user, token); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid or expired token"})
		return
	}

	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.store.UpdatePassword(r.Context(), user.ID, hashed); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	log.Printf("[auth] password reset for user %d", user.ID)
	httpx.WriteMessage(w, http.StatusOK, "Password reset successful", nil)
}

func (h *Handler) liveRefreshClaims(ctx context.Context, token string) (*Claims, error) {
	claims, err := h.tokens.Parse(token, TokenRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := h.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errors.New("token revoked")
	}
	return claims, nil
}
