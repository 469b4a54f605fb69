package middleware

import (
	"net/http"
	"strings"

	"rundown/internal/auth"
	"rundown/internal/httputil"
)

// OriginTagHeader carries the opaque client-connection tag used for echo
// suppression. Clients send the same tag on writes and on their stream
// subscription.
const OriginTagHeader = "X-Client-ID"

// AuthMiddleware validates the bearer token and stores the actor id (and
// origin tag, when present) on the request context. Unauthenticated
// requests are rejected before reaching any handler, except the health
// check.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			r = httputil.WithUserID(r, claims.GetUserID())
			if tag := r.Header.Get(OriginTagHeader); tag != "" {
				r = httputil.WithOriginTag(r, tag)
			}

			next.ServeHTTP(w, r)
		})
	}
}
