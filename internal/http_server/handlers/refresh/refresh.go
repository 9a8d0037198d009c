package refresh

import (
	"context"
	"errors"
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
	AccessToken string `json:"accessToken"`
}

func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if req.Token == "" {
			log.Warn("missing refresh token")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Refresh token is required"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		accessToken, err := authService.Refresh(ctx, req.Token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidRefreshToken) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Invalid or expired refresh token"))

				return
			}

			log.Error("failed to refresh access token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Access token refreshed successfully")

		render.JSON(w, r, Response{
			Response:    resp.OK(),
			AccessToken: accessToken,
		})
	}
}
