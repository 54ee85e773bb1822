package analogy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/generation"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/utilities"
)

func serve(h *Handler, method, target, body string, user int64) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analogies", h.Create)
	mux.HandleFunc("POST /analogies/{id}/quiz", h.Quiz)
	mux.HandleFunc("GET /history", h.History)

	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if user != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) utilities.ErrorDetail {
	t.Helper()
	var body utilities.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"provider", &generation.ProviderError{Status: 500, Err: errors.New("secret upstream text")}, http.StatusBadGateway, "provider_error"},
		{"malformed", &generation.MalformedError{Reason: "bad"}, http.StatusUnprocessableEntity, "malformed_output"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{analogyFn: func(context.Context, string, string) (generation.AnalogyContent, error) {
				return generation.AnalogyContent{}, tc.err
			}}
			svc, _ := newTestService(gen)
			rec := serve(NewHandler(svc, zap.NewNop().Sugar()), http.MethodPost, "/analogies", `{"concept":"DNS"}`, 1)

			assert.Equal(t, tc.status, rec.Code)
			detail := decodeError(t, rec)
			assert.Equal(t, tc.code, detail.Code)
			assert.NotContains(t, detail.Message, "secret upstream text")
		})
	}
}

func TestHandler_CreateAndQuiz(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{})
	h := NewHandler(svc, zap.NewNop().Sugar())

	rec := serve(h, http.MethodPost, "/analogies", `{"concept":"DNS","level":"intermediate"}`, 1)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AnalogyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "intermediate", created.Analogy.Level)

	rec = serve(h, http.MethodPost, "/analogies/"+created.Analogy.ID+"/quiz", ``, 2)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Code)

	rec = serve(h, http.MethodPost, "/analogies/nope/quiz", ``, 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodPost, "/analogies/"+created.Analogy.ID+"/quiz", ``, 1)
	require.Equal(t, http.StatusCreated, rec.Code)
	var quiz QuizResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&quiz))
	require.NotEmpty(t, quiz.Quiz.Questions)
}

func TestHandler_BadRequests(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{})
	h := NewHandler(svc, zap.NewNop().Sugar())

	rec := serve(h, http.MethodPost, "/analogies", `{"concept":`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPost, "/analogies", `{"concept":"this concept is way too long for the limit"}`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeError(t, rec).Code)

	rec = serve(h, http.MethodGet, "/history?kind=bogus", ``, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/history", ``, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_EmptyHistoryIsArray(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{})
	rec := serve(NewHandler(svc, zap.NewNop().Sugar()), http.MethodGet, "/history", ``, 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())
}
