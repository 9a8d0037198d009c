package logout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"user_auth/internal/auth"
	resp "user_auth/internal/lib/api/response"
	sl "user_auth/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	Token string `json:"token"`
}

type Response struct {
	resp.Response
}

// New завершает все активные сессии пользователя, инвалидируя каждый его
// refresh токен. The endpoint always acknowledges success: an invalid or
// missing token means there is nothing left to revoke, which is not a
// failure from the caller's point of view.
func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.logout.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Warn("Failed to decode request body", sl.Err(err))
		}

		if req.Token != "" {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			authService.Logout(ctx, req.Token)
		}

		log.Info("user logged out")

		render.JSON(w, r, Response{
			Response: resp.OKMessage("Logged out successfully"),
		})
	}
}
