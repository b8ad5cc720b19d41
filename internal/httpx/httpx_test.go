package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/preppro/backend/internal/apperr"
	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"app error", apperr.NotFound("Test not found"), http.StatusNotFound, "Test not found"},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)
			assert.Equal(t, tt.wantStatus, rr.Code)

			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestDecode_Validation(t *testing.T) {
	var req models.LoginRequest
	err := Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":""}`)), &req)
	require.Error(t, err)

	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest(http.MethodPost, "/", nil), err)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"password":"this field is required"`)

	err = Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`)), &req)
	status, msg := apperr.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", msg)
}

func TestPathID(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "12"})
	id, err := PathID(req, "id", "test")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	_, err = PathID(req, "id", "test")
	_, msg := apperr.StatusOf(err)
	assert.Equal(t, "Invalid test ID", msg)
}

func TestIntQueryParam(t *testing.T) {
	q := url.Values{"limit": {"5"}, "bad": {"x"}}
	assert.Equal(t, 5, IntQueryParam(q, "limit", 20))
	assert.Equal(t, 20, IntQueryParam(q, "bad", 20))
	assert.Equal(t, 0, IntQueryParam(q, "offset", 0))
}
