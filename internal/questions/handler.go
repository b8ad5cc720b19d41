package questions

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
	teacher := func(fn http.HandlerFunc) http.Handler {
		return middleware.RequireRole(models.RoleTeacher, "Only teachers can manage questions.")(fn)
	}

	r.HandleFunc("/questions", h.List).Methods("GET")
	r.Handle("/questions/create", teacher(h.Create)).Methods("POST")
	r.Handle("/questions/bulk", teacher(h.CreateBulk)).Methods("POST")
	r.HandleFunc("/questions/{id:[0-9]+}", h.Get).Methods("GET")
	r.Handle("/questions/{id:[0-9]+}/update", teacher(h.Update)).Methods("PUT", "PATCH")
	r.Handle("/questions/{id:[0-9]+}/delete", teacher(h.Delete)).Methods("DELETE")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.QuestionFilter{
		Subject:    query.Get("subject"),
		Topic:      query.Get("topic"),
		Difficulty: query.Get("difficulty"),
		Search:     query.Get("search"),
		Limit:      httpx.IntQueryParam(query, "limit", defaultLimit),
		Offset:     httpx.IntQueryParam(query, "offset", 0),
	}

	questions, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}
	httpx.WriteMessage(w, http.StatusOK, "Questions retrieved successfully", questions)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", "question")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Question retrieved successfully", q)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.QuestionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	q, err := h.service.Create(r.Context(), req, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusCreated, "Question created successfully", q)
}

func (h *Handler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req models.BulkQuestionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	qs, err := h.service.CreateBulk(r.Context(), req, userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusCreated, "Questions created successfully", qs)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", "question")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req models.QuestionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	q, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Question updated successfully", q)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", "question")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Question deleted successfully", nil)
}
