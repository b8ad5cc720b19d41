package feedback

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
	request := middleware.RequireRole(models.RoleStudent, "Only students can request feedback")(http.HandlerFunc(h.Request))
	teacherList := middleware.RequireRole(models.RoleTeacher, "Only teachers can view feedback list")(http.HandlerFunc(h.TeacherList))

	r.Handle("/tests/feedback", request).Methods("POST")
	r.Handle("/feedback", request).Methods("POST")
	r.HandleFunc("/tests/feedback/list", h.List).Methods("GET")
	r.Handle("/feedback/list", teacherList).Methods("GET")
	r.Handle("/tests/feedback/{id:[0-9]+}/respond",
		middleware.RequireRole(models.RoleTeacher, "Only teachers can respond to feedback")(http.HandlerFunc(h.Respond))).Methods("POST")
	r.HandleFunc("/tests/feedback/{id:[0-9]+}/mark-read", h.MarkRead).Methods("POST")
	r.HandleFunc("/tests/attempt/feedback/{attempt_id:[0-9]+}", h.ForAttempt).Methods("GET")
	r.Handle("/tests/attempt/feedback",
		middleware.RequireRole(models.RoleTeacher, "Only teachers can view feedback summaries")(http.HandlerFunc(h.Summary))).Methods("GET")
}

func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.FeedbackRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	f, err := h.service.Request(r.Context(), userID, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusCreated, "Feedback request submitted successfully", f)
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "feedback")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req models.FeedbackResponseRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	f, err := h.service.Respond(r.Context(), userID, id, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Feedback response submitted successfully", f)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	fbs, err := h.service.List(r.Context(), userID, middleware.Role(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, fbs)
}

func (h *Handler) TeacherList(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	fbs, err := h.service.List(r.Context(), userID, models.RoleTeacher)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, fbs)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "feedback")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), userID, middleware.Role(r.Context()), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Feedback marked as read", nil)
}

func (h *Handler) ForAttempt(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "attempt_id", "attempt")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	fbs, err := h.service.ForAttempt(r.Context(), userID, id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, fbs)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	rows, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}
