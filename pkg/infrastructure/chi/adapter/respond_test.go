package adapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/expresso-van/pkg/application"
)

type messageBody struct {
	Text string `json:"text" validate:"required,max=10"`
}

func TestDecodeJSONValidates(t *testing.T) {
	var body messageBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":""}`))
	err := DecodeJSON(req, &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Text failed on required")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, "hi", body.Text)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi","extra":1}`))
	assert.Error(t, DecodeJSON(req, &body))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.EqualError(t, DecodeJSON(req, &body), "request body is empty")
}

func TestRouterHealthAndErrorEnvelope(t *testing.T) {
	router := NewRouter(application.NopLogger{})
	router.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusConflict, "no_seats_available", "no seats available")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no_seats_available", resp.Error.Kind)
	assert.NotEmpty(t, resp.RequestID)
}
