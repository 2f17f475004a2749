package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const (
	userIDContextKey   contextKey = "user_id"
	userRoleContextKey contextKey = "user_role"
)

// Authenticate validates the Bearer token and stores the caller's identity
// in the request context.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				unauthorized(w, "authorization header must use the Bearer scheme")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid or expired token")
				return
			}

			userID, ok := claims["user_id"].(float64)
			if !ok {
				unauthorized(w, "token is missing user identity")
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, int(userID))
			if role, ok := claims["role"].(string); ok {
				ctx = context.WithValue(ctx, userRoleContextKey, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route to callers carrying one of the given roles. It
// must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRoleFromContext(r.Context())
			if !ok {
				unauthorized(w, "missing role claim")
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func GetUserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDContextKey).(int)
	return id, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(userRoleContextKey).(string)
	return role, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, "{\n\t\"error\": %q\n}\n", message)
}
