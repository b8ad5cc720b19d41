package users

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/auth"
	"github.com/preppro/backend/internal/httpx"
	"github.com/preppro/backend/internal/middleware"
	"github.com/preppro/backend/internal/models"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func teacherOnly(msg string, fn http.HandlerFunc) http.Handler {
	return middleware.RequireRole(models.RoleTeacher, msg)(fn)
}

// RegisterRoutes mounts the /users endpoints on an authenticated router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/users/profile-setup", h.ProfileSetup).Methods("POST")
	r.HandleFunc("/users/update-user", h.UpdateUser).Methods("PUT", "PATCH")
	r.HandleFunc("/users/update-profile", h.UpdateProfile).Methods("PUT", "PATCH")
	r.HandleFunc("/users/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/users/students/filter", h.FilterOptions).Methods("GET")
	r.HandleFunc("/users/student/counts", h.StudentCounts).Methods("GET")

	r.Handle("/users/delete-user", teacherOnly("Only teachers can delete users.", h.DeleteUser)).Methods("DELETE")
	r.Handle("/users/fetch", teacherOnly("Not authenticated user.", h.FetchUsers)).Methods("GET")
	r.Handle("/users/students", teacherOnly("Only teachers can view students.", h.ListStudents)).Methods("GET")
	r.Handle("/users/students/{id}/profile", teacherOnly("Only teachers can view students.", h.GetStudentProfile)).Methods("GET")
	r.Handle("/users/teacher/counts", teacherOnly("Not authorized", h.TeacherCounts)).Methods("GET")
}

func (h *Handler) ProfileSetup(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.ProfileRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p := &models.Profile{UserID: userID}
	applyProfile(p, req)

	created, err := h.store.CreateProfile(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.UpdateUserRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if req.Username != nil {
		v := strings.TrimSpace(*req.Username)
		req.Username = &v
	}
	if req.Email != nil {
		v := strings.TrimSpace(strings.ToLower(*req.Email))
		req.Email = &v
	}
	var hashed *string
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		hashed = &hash
	}

	user, err := h.store.UpdateUser(r.Context(), userID, req.Username, req.Email, hashed)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.ProfileRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	p, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	applyProfile(p, req)

	saved, err := h.store.SaveProfile(r.Context(), p)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, saved)
}

// DeleteUser takes user_id from the query string, or from a JSON body.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" && r.Body != nil {
		var body struct {
			UserID json.Number `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			raw = body.UserID.String()
		}
	}
	if raw == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "user_id is required"})
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.WriteError(w, r, apperr.NotFound("User not found"))
		return
	}

	if err := h.store.SoftDeleteUser(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FetchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context(), nil)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if users == nil {
		users = []models.UserWithProfile{}
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	profile, err := h.store.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.UserWithProfile{User: *user, Profile: profile})
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	role := models.RoleStudent
	students, err := h.store.ListUsers(r.Context(), &role)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if students == nil {
		students = []models.UserWithProfile{}
	}
	httpx.WriteJSON(w, http.StatusOK, students)
}

func (h *Handler) GetStudentProfile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", "student")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	student, err := h.store.GetStudent(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, student)
}

func (h *Handler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.store.FilterOptions(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, opts)
}

func (h *Handler) TeacherCounts(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	counts, err := h.store.TeacherCounts(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, counts)
}

func (h *Handler) StudentCounts(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	counts, err := h.store.StudentCounts(r.Context(), userID, time.Now())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, counts)
}
