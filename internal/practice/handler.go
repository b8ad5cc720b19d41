package practice

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
	create := middleware.RequireRole(models.RoleStudent, "Only students can create practice sessions")(http.HandlerFunc(h.Create))

	r.Handle("/practice", create).Methods("POST")
	r.HandleFunc("/practice", h.List).Methods("GET")
	r.HandleFunc("/practice/{id:[0-9]+}", h.Get).Methods("GET")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.PracticeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sess, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sess)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	sessions, err := h.service.List(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessions)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	id, err := httpx.PathID(r, "id", "session")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sess, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}
