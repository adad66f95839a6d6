package middleware

import (
	"context"
	"net/http"
	"strings"

	"quizarena/internal/common"
	"quizarena/internal/common/security"
	"quizarena/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserTypeCtxKey contextKey = "userType"
	IsAdminCtxKey  contextKey = "isAdmin"
)

func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context()) // Extracts token from Authorization header

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		userType, err := security.GetUserTypeFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		isAdmin := security.GetIsAdminFromClaims(claims)

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		ctx = context.WithValue(ctx, UserTypeCtxKey, userType)
		ctx = context.WithValue(ctx, IsAdminCtxKey, isAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthenticator populates the user context when a valid token is
// present but lets anonymous requests through. Public contest routes use it
// to apply per-user visibility rules without requiring login.
func OptionalAuthenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		userType, err := security.GetUserTypeFromClaims(claims)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		isAdmin := security.GetIsAdminFromClaims(claims)

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		ctx = context.WithValue(ctx, UserTypeCtxKey, userType)
		ctx = context.WithValue(ctx, IsAdminCtxKey, isAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isAdmin, ok := r.Context().Value(IsAdminCtxKey).(bool)
		if !ok || !isAdmin {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper to get user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

// Helper to get user type from context
func GetUserTypeFromContext(ctx context.Context) (string, bool) {
	userType, ok := ctx.Value(UserTypeCtxKey).(string)
	return userType, ok
}

func GetIsAdminFromContext(ctx context.Context) bool {
	isAdmin, ok := ctx.Value(IsAdminCtxKey).(bool)
	return ok && isAdmin
}

// UserFromContext reconstructs the caller's identity from the request
// context, or returns nil for anonymous requests.
func UserFromContext(ctx context.Context) *model.User {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return nil
	}
	userType, _ := GetUserTypeFromContext(ctx)
	return &model.User{
		ID:       userID,
		UserType: userType,
		IsAdmin:  GetIsAdminFromContext(ctx),
	}
}
