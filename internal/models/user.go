package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

type Profile struct {
	UserID       int64     `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number"`
	Address      string    `json:"address"`
	DateOfBirth  *string   `json:"date_of_birth"`
	Bio          string    `json:"bio"`
	ProfilePhoto *string   `json:"profile_photo"`
	Department   string    `json:"department"`
	Subjects     []string  `json:"subjects"`
	StudentClass string    `json:"student_class"`
	Section      string    `json:"section"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns "First Last", falling back to whichever part is set.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type UserWithProfile struct {
	User
	Profile *Profile `json:"profile"`
}

// ── API Request/Response Types ────────────────────────────

type RegisterRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     Role   `json:"role" validate:"required,role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AuthResponse struct {
	User   User      `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type ProfileRequest struct {
	FirstName    *string  `json:"first_name" validate:"omitempty,max=100"`
	LastName     *string  `json:"last_name" validate:"omitempty,max=100"`
	PhoneNumber  *string  `json:"phone_number" validate:"omitempty,max=20"`
	Address      *string  `json:"address"`
	DateOfBirth  *string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Bio          *string  `json:"bio"`
	ProfilePhoto *string  `json:"profile_photo"`
	Department   *string  `json:"department" validate:"omitempty,max=100"`
	Subjects     []string `json:"subjects"`
	StudentClass *string  `json:"student_class" validate:"omitempty,max=50"`
	Section      *string  `json:"section" validate:"omitempty,max=10"`
}

type FilterOptions struct {
	Classes  []string `json:"classes"`
	Sections []string `json:"sections"`
	Subjects []string `json:"subjects"`
}

type TeacherCounts struct {
	TotalQuestions int `json:"total_questions"`
	ActiveTests    int `json:"active_tests"`
	StudentCount   int `json:"student_count"`
	TeacherCount   int `json:"teacher_count"`
}

type StudentCounts struct {
	ActiveTests        int  `json:"active_tests"`
	PendingTests       int  `json:"pending_tests"`
	ClassTotalStudents int  `json:"class_total_students"`
	StudentRank        *int `json:"student_rank"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
