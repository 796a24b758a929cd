package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/modelmagic/portal/internal/api/types"
)

type userKeyType string

const (
	UserIDKey userKeyType = "user_id"
	RoleKey   userKeyType = "role"
	EmailKey  userKeyType = "email"
)

const roleAdmin = "ADMIN"

// Auth validates a Bearer JWT using the provided HMAC secret and adds the
// user id, role and email to the context. Login-link tokens carry a purpose
// claim and are refused here; they can only be exchanged for a session.
func Auth(hmacSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				deny(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			tokenStr := strings.TrimSpace(ah[len("Bearer "):])
			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return hmacSecret, nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				deny(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized", "invalid token claims")
				return
			}
			if _, scoped := claims["purpose"]; scoped {
				deny(w, http.StatusUnauthorized, "unauthorized", "token is not a session token")
				return
			}
			uid, _ := claims["sub"].(string)
			if uid == "" {
				deny(w, http.StatusUnauthorized, "unauthorized", "invalid token subject")
				return
			}
			role, _ := claims["role"].(string)
			email, _ := claims["email"].(string)
			ctx := context.WithValue(r.Context(), UserIDKey, uid)
			ctx = context.WithValue(ctx, RoleKey, role)
			ctx = context.WithValue(ctx, EmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth applies Auth only when an Authorization header is present.
func OptionalAuth(hmacSecret []byte) func(http.Handler) http.Handler {
	auth := Auth(hmacSecret)
	return func(next http.Handler) http.Handler {
		authed := auth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authed.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRole(r.Context()) != roleAdmin {
			deny(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func GetRole(ctx context.Context) string {
	return stringValue(ctx, RoleKey)
}

func GetEmail(ctx context.Context) string {
	return stringValue(ctx, EmailKey)
}

func stringValue(ctx context.Context, key userKeyType) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func deny(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.APIResponse{Success: false, Error: &types.APIError{Code: code, Message: msg}})
}
