package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeVerifier struct {
	id  int64
	err error
}

func (f fakeVerifier) Verify(string) (int64, error) { return f.id, f.err }

func TestMiddleware(t *testing.T) {
	var gotID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		v      fakeVerifier
		want   int
		wantID int64
	}{
		{"ok", "Bearer good", fakeVerifier{id: 9}, http.StatusOK, 9},
		{"missing", "", fakeVerifier{id: 9}, http.StatusUnauthorized, 0},
		{"expired", "Bearer old", fakeVerifier{err: ErrTokenExpired}, http.StatusUnauthorized, 0},
		{"invalid", "Bearer bad", fakeVerifier{err: errors.Join(ErrTokenInvalid)}, http.StatusUnauthorized, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotID = 0
			req := httptest.NewRequest(http.MethodGet, "/history", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Middleware(tc.v, zap.NewNop().Sugar())(next).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.wantID, gotID)
		})
	}
}
