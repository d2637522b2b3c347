package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"member-vault/internal/transport/http/shared"
	"member-vault/pkg/domain"
	dErrors "member-vault/pkg/domain-errors"
	"member-vault/pkg/requestcontext"
)

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the validated claims handlers care about.
type Claims struct {
	UserID domain.UserID
	Email  string
}

// GetUserID retrieves the authenticated principal id from the context.
// The boolean is false when no principal was attached; handlers must
// treat that as unauthenticated even behind RequireAuth.
func GetUserID(ctx context.Context) (domain.UserID, bool) {
	id, ok := requestcontext.UserID(ctx)
	return domain.UserID(id), ok
}

// RequireAuth rejects requests without a valid bearer token and stores the
// principal id in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID.Int64())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
