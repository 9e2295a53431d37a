package middleware

import (
	"net/http"

	"vinmarket-be/internal/auth"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/utils"
)

// AuthMiddleware attaches the caller's identity when a valid token is present.
// Requests without a token pass through anonymously.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("rejected access token")
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			role := claims.Role
			if role != utils.RoleAdmin {
				role = utils.RoleUser
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, role)
			ctx = logger.WithUserID(ctx, claims.UserID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
