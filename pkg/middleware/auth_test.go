package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travel-booking/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, subject, role string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, _ := utils.GetUsernameFromContext(r.Context())
		role, _ := utils.GetRoleFromContext(r.Context())
		w.Write([]byte(username + "|" + role))
	})
}

func TestAuthJWT(t *testing.T) {
	handler := AuthJWT(testSecret, zap.NewNop())(echoIdentity())
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid user token",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "alice", "", future),
			wantStatus: http.StatusOK,
			wantBody:   "alice|user",
		},
		{
			name:       "admin role is lowercased",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "root", "ADMIN", future),
			wantStatus: http.StatusOK,
			wantBody:   "root|admin",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic YWxpY2U6cHc=",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), "alice", "", future),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "alice", "", time.Now().Add(-time.Minute)),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no subject",
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), "", "", future),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "alg none rejected",
			header:     "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, "alice", "admin", future),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(echoIdentity())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(utils.SetUserContext(req.Context(), "alice", utils.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(utils.SetUserContext(req.Context(), "root", utils.RoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(utils.GetRequestIDFromContext(r.Context())))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Body.String())
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Request-ID"))
}
