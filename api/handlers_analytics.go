package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

// getAnalytics recomputes the aggregate view from the caller's current
// collections on every request. Nothing is persisted; the numbers are always
// re-derivable.
func getAnalytics(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		uid := userID(c)

		tasks, _, err := store.ListTasks(ctx, uid, storage.TaskFilter{})
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		projects, err := store.ListProjects(ctx, uid)
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}

		summary := domain.Aggregate(tasks, projects, time.Now())
		return ok(c, http.StatusOK, summary)
	}
}

func getMe(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := store.GetUser(c.Request().Context(), userID(c))
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, user)
	}
}

type profileRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

func putMe(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req profileRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
		}
		if req.Email == "" {
			return fail(c, http.StatusBadRequest, CodeValidation, "email: is required")
		}

		user := &domain.User{
			ID:        userID(c),
			Email:     req.Email,
			Name:      req.Name,
			AvatarURL: req.AvatarURL,
		}
		if err := store.UpsertUser(c.Request().Context(), user); err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, user)
	}
}
