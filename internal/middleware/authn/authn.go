package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	resp "user_auth/internal/lib/api/response"
	jwtlib "user_auth/internal/lib/jwt"
	sl "user_auth/internal/lib/logger"

	"github.com/go-chi/render"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// New protects routes with a bearer access token. The user id from the
// token is placed into the request context for downstream handlers.
func New(log *slog.Logger, tokens *jwtlib.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				log.Warn("missing bearer token")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Not authorized, no token"))

				return
			}

			uid, err := tokens.ParseAccessToken(token)
			if err != nil {
				log.Warn("invalid access token", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Not authorized, token failed"))

				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)

	return uid, ok
}
