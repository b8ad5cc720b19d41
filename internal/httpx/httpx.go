// Package httpx holds the JSON request/response helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/logger"
	"github.com/preppro/backend/internal/models"
	"github.com/preppro/backend/internal/validate"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func WriteMessage(w http.ResponseWriter, status int, msg string, data interface{}) {
	WriteJSON(w, status, models.MessageResponse{Message: msg, Data: data})
}

// WriteError maps err to a status and JSON body. 5xx causes are logged and
// reported; clients only see the message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		WriteJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Validation failed", Fields: verr.Fields})
		return
	}
	status, msg := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.RequestError(r, err)
	}
	WriteJSON(w, status, models.ErrorResponse{Error: msg})
}

// Decode reads a JSON body into dst and runs struct validation on it.
func Decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return validate.Struct(dst)
}

// PathID parses the named mux variable as a positive int64.
func PathID(r *http.Request, name, label string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequestf("Invalid %s ID", label)
	}
	return id, nil
}

func IntQueryParam(query url.Values, key string, defaultVal int) int {
	if v := query.Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
