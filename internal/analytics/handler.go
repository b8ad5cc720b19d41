package analytics

import (
	"bytes"
	"context"
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
		return middleware.RequireRole(models.RoleTeacher, "Only teachers can view teacher analytics.")(fn)
	}

	r.HandleFunc("/tests/analytics/student", serve(h.service.Student)).Methods("GET")
	r.HandleFunc("/tests/analytics/student-subject", serve(h.service.StudentSubjects)).Methods("GET")
	r.HandleFunc("/tests/analytics/student-monthly", serve(h.service.StudentMonthly)).Methods("GET")
	r.HandleFunc("/tests/analytics/student/graphs", serve(h.service.StudentGraphs)).Methods("GET")
	r.HandleFunc("/tests/analytics/student/mastery", serve(h.service.Mastery)).Methods("GET")

	r.Handle("/tests/analytics/teacher", teacher(serve(h.service.Teacher))).Methods("GET")
	r.Handle("/tests/analytics/subject-count", teacher(serve(h.service.SubjectCounts))).Methods("GET")
	r.Handle("/tests/analytics/monthly-count", teacher(serve(h.service.MonthlyCounts))).Methods("GET")
	r.Handle("/tests/analytics/teacher/graphs", teacher(h.TeacherGraphs)).Methods("GET")
}

// serve adapts a per-user report to a JSON handler.
func serve[T any](report func(ctx context.Context, userID int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := middleware.UserID(r.Context())
		out, err := report(r.Context(), userID)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func (h *Handler) TeacherGraphs(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var buf bytes.Buffer
	if err := h.service.TeacherGraphs(r.Context(), &buf, userID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
