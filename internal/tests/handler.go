package tests

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/preppro/backend/internal/httpx"
	"github.com/preppro/backend/internal/middleware"
	"github.com/preppro/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	teacher := func(msg string, fn http.HandlerFunc) http.Handler {
		return middleware.RequireRole(models.RoleTeacher, msg)(fn)
	}
	student := func(msg string, fn http.HandlerFunc) http.Handler {
		return middleware.RequireRole(models.RoleStudent, msg)(fn)
	}
	manage := "You can only manage tests that you created."

	r.HandleFunc("/tests", h.List).Methods("GET")
	r.Handle("/tests", teacher("Only teachers can create tests.", h.Create)).Methods("POST")
	r.Handle("/tests/assign", teacher("Only teachers can assign tests.", h.Assign)).Methods("POST")
	r.Handle("/tests/attempt", student("Only students can attempt tests.", h.Attempt)).Methods("POST")
	r.HandleFunc("/tests/assigned", h.Assigned).Methods("GET")
	r.HandleFunc("/tests/attempts", h.ListAttempts).Methods("GET")
	r.Handle("/tests/status", teacher("Only teachers can view test status.", h.Status)).Methods("GET")

	r.Handle("/tests/{id:[0-9]+}", teacher(manage, h.Get)).Methods("GET")
	r.Handle("/tests/{id:[0-9]+}", teacher(manage, h.Update)).Methods("PUT", "PATCH")
	r.Handle("/tests/{id:[0-9]+}", teacher(manage, h.Delete)).Methods("DELETE")
	r.Handle("/tests/{id:[0-9]+}/publish", teacher("You are not authorized to publish this test.", h.Publish)).Methods("POST")
	r.Handle("/tests/{id:[0-9]+}/analytics", teacher(manage, h.Analytics)).Methods("GET")
	r.HandleFunc("/tests/{id:[0-9]+}/attempts", h.ListTestAttempts).Methods("GET")
	r.HandleFunc("/tests/{id:[0-9]+}/attempt-preview", h.AttemptPreview).Methods("GET")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	tests, err := h.service.List(r.Context(), userID, middleware.Role(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if tests == nil {
		tests = []models.Test{}
	}
	httpx.WriteJSON(w, http.StatusOK, tests)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.TestRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	t, err := h.service.Create(r.Context(), req, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusCreated, "Test created successfully!", t)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "test")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	t, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "test")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req models.TestRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	t, err := h.service.Update(r.Context(), id, req, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Test updated successfully!", t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "test")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Test deleted successfully!", nil)
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "test")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.service.Analytics(r.Context(), id, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.AssignmentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.service.Assign(r.Context(), req, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) Attempt(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.AttemptRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	at, err := h.service.Attempt(r.Context(), req, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, at)
}

func (h *Handler) Assigned(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	assigned, err := h.service.Assigned(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, assigned)
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "test")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.Publish(r.Context(), id, userID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Test results published successfully!", nil)
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	h.listAttempts(w, r, 0)
}

func (h *Handler) ListTestAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", "test")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.listAttempts(w, r, id)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request, testID int64) {
	userID, _ := middleware.UserID(r.Context())
	attempts, err := h.service.Attempts(r.Context(), userID, middleware.Role(r.Context()), testID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, attempts)
}

func (h *Handler) AttemptPreview(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "test")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.service.Preview(r.Context(), id, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	resp, err := h.service.Status(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
