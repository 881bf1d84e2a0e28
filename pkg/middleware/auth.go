package middleware

import (
	"net/http"
	"strings"

	"travel-booking/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims are issued by the Auth service; the subject is the username.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthJWT middleware untuk validasi bearer token dari Auth service
func AuthJWT(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenStr == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				logger.Warn("Invalid or expired token", zap.Error(err))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			username, err := claims.GetSubject()
			if err != nil || username == "" {
				utils.ResponseUnauthorized(w, "Token has no subject")
				return
			}

			role := claims.Role
			if role == "" {
				role = utils.RoleUser
			}

			ctx := utils.SetUserContext(r.Context(), username, strings.ToLower(role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after AuthJWT.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !utils.IsAdmin(r.Context()) {
				username, _ := utils.GetUsernameFromContext(r.Context())
				logger.Warn("Admin access denied",
					zap.String("username", username),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseForbidden(w, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
