package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const userIDContextKey = "taskboard.userID"

// RequireAuth resolves the caller's user id from the Authorization header
// before any entity access. Requests without a valid token never reach a
// handler.
func RequireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return fail(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
			}
			c.Set(userIDContextKey, userID)
			return next(c)
		}
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}

// RateLimit enforces a fixed-window request budget per caller against the
// injected counter store. Counter failures let the request through; limiting
// is protection, not a dependency.
func RateLimit(store CounterStore, limit int, window time.Duration, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := userID(c)
			if key == "" {
				key = c.RealIP()
			}
			count, err := store.Incr(c.Request().Context(), key, window)
			if err != nil {
				logger.WithFields(log.Fields{"key": key, "error": err.Error()}).Warn("rate limit counter unavailable")
				return next(c)
			}
			if count > int64(limit) {
				return fail(c, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// DecompressRequest unwraps gzip-encoded request bodies so handlers work with
// plain JSON. Bulk reorder payloads are the ones that benefit. Invalid gzip
// is rejected with a 400.
func DecompressRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.Contains(strings.ToLower(req.Header.Get(echo.HeaderContentEncoding)), "gzip") {
				return next(c)
			}

			body := req.Body
			gr, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return fail(c, http.StatusBadRequest, CodeValidation, "invalid gzip body")
			}

			req.Body = &decompressedBody{Reader: gr, inner: body}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)
			return next(c)
		}
	}
}

type decompressedBody struct {
	*gzip.Reader
	inner io.Closer
}

func (d *decompressedBody) Close() error {
	err := d.Reader.Close()
	if cerr := d.inner.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
