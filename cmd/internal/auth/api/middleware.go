package authapi

import (
	"context"
	"net/http"
	"time"

	"stash/cmd/identity"
)

type ctxUserKey struct{}

// UserFromContext returns the authenticated user attached by requireAuth.
func UserFromContext(ctx context.Context) (identity.Profile, bool) {
	u, ok := ctx.Value(ctxUserKey{}).(identity.Profile)
	return u, ok
}

// requireAuth verifies the access token, resolves the subject to a live user
// and attaches the sanitized profile to the request context. The token is
// taken from the accessToken cookie first, then from the Authorization
// header.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		claims, err := h.sessions.VerifyAccessToken(token, time.Now().UTC())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid access token")
			return
		}

		u, err := h.sessions.GetUser(r.Context(), claims.UserID)
		if err != nil {
			// A valid signature for a deleted user is still unauthorized;
			// a store fault is not the caller's doing.
			if identity.IsNotFound(err) {
				writeError(w, http.StatusUnauthorized, "Token is invalid or used")
				return
			}
			h.log.Error("auth.authenticate.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey{}, u.Profile())
		next(w, r.WithContext(ctx))
	}
}
