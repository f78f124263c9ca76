// Package middleware provides HTTP middleware for authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// reviewerIDKey is the context key for the authenticated reviewer ID.
const reviewerIDKey ContextKey = "reviewerID"

// TokenValidator validates bearer tokens. The middleware works with any
// JWT service implementation through this interface.
type TokenValidator interface {
	ValidateToken(tokenString string) (ReviewerIDGetter, error)
}

// ReviewerIDGetter extracts the reviewer ID from token claims.
type ReviewerIDGetter interface {
	GetReviewerID() string
}

// AuthMiddleware validates bearer tokens and adds the reviewer ID to the
// request context.
func AuthMiddleware(jwtService TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// "Bearer" is matched case-insensitively.
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), reviewerIDKey, claims.GetReviewerID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetReviewerID extracts the authenticated reviewer ID from the request
// context.
func GetReviewerID(r *http.Request) (string, error) {
	reviewerID, ok := r.Context().Value(reviewerIDKey).(string)
	if !ok || reviewerID == "" {
		return "", fmt.Errorf("reviewer ID not found in request context")
	}
	return reviewerID, nil
}

// ReviewerIDKey returns the context key for the reviewer ID, for tests.
func ReviewerIDKey() ContextKey {
	return reviewerIDKey
}
