package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recipegraph/pkg/auth"
	"recipegraph/pkg/common"
	pkgerrors "recipegraph/pkg/errors"
)

// Authenticator guards routes with bearer JWTs. A nil validator leaves
// routes open, which is how local development runs.
type Authenticator struct {
	validator *auth.JWTValidator
	errors    *pkgerrors.ErrorHandler
	logger    *zap.Logger
}

// NewAuthenticator creates the auth middleware set
func NewAuthenticator(validator *auth.JWTValidator, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *Authenticator {
	return &Authenticator{validator: validator, errors: errorHandler, logger: logger}
}

// Enabled reports whether tokens are checked.
func (a *Authenticator) Enabled() bool {
	return a.validator != nil
}

// Authenticate rejects requests without a valid token and stores the
// caller's identity in the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			a.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("missing authentication token"))
			return
		}

		claims, err := a.validator.ValidateToken(token)
		if err != nil {
			a.logger.Warn("Invalid token",
				zap.Error(err),
				zap.String("ip", ClientIP(r)),
				zap.String("path", r.URL.Path),
			)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				a.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("token has expired"))
			case errors.Is(err, auth.ErrInvalidSignature):
				a.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("invalid token signature"))
			default:
				a.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("invalid token"))
			}
			return
		}

		ctx := common.WithUserID(r.Context(), claims.UserID)
		ctx = common.WithUserRoles(ctx, claims.Roles)

		a.logger.Debug("Request authenticated",
			zap.String("user_id", claims.UserID),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after Authenticate.
func (a *Authenticator) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !a.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !common.HasRole(r.Context(), role) {
				a.errors.Handle(w, r, pkgerrors.NewForbiddenError("requires role "+role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
