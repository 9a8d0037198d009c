package rateLimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	resp "user_auth/internal/lib/api/response"
	sl "user_auth/internal/lib/logger"

	httprate "github.com/go-chi/httprate"
	"github.com/go-chi/render"
)

// AttemptCounter is a shared fixed-window counter, backed by Redis so the
// login limit holds across instances.
type AttemptCounter interface {
	IncrLoginAttempt(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Login limits login attempts to 10 requests per 15 minutes per client IP.
func Login(log *slog.Logger, counter AttemptCounter) func(http.Handler) http.Handler {
	const (
		limit  = 10
		window = 15 * time.Minute
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			attempts, err := counter.IncrLoginAttempt(r.Context(), ip, window)
			if err != nil {
				// Counter outage must not lock everyone out.
				log.Error("login rate limiter unavailable", sl.Err(err))

				next.ServeHTTP(w, r)

				return
			}

			if attempts > limit {
				log.Warn("login rate limit exceeded", slog.String("ip", ip))

				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error("Too many login attempts, please try again after 15 minutes"))

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func Signup() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Refresh() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func Logout() func(http.Handler) http.Handler {
	return limitByIP(20, 10*time.Minute)
}

func Verify() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func ResendVerificationEmail() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window)
}
