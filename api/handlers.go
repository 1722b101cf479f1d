package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

const (
	defaultPageSize = 30
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

// Config tunes optional behavior of the registered routes.
type Config struct {
	// RateLimit is the per-caller request budget within RateWindow. Zero
	// leaves the limiter unenforced; the counter store still exists so it can
	// be switched on without redeploying callers.
	RateLimit  int
	RateWindow time.Duration
	// Debug lets raw internal errors through to clients.
	Debug bool
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, counter CounterStore, logger *log.Logger, cfg Config) {
	e.GET("/healthz", healthz)

	g := e.Group("/api", RequireAuth(auth))
	if cfg.RateLimit > 0 && counter != nil {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		g.Use(RateLimit(counter, cfg.RateLimit, window, logger))
	}

	g.GET("/tasks", listTasks(store, logger, cfg))
	g.POST("/tasks", createTask(store, cfg))
	g.GET("/tasks/:id", getTask(store, cfg))
	g.PATCH("/tasks/:id", updateTask(store, cfg))
	g.DELETE("/tasks/:id", deleteTask(store, cfg))
	g.POST("/tasks/bulk", reorderTasks(store, cfg), DecompressRequest())

	g.GET("/projects", listProjects(store, cfg))
	g.POST("/projects", createProject(store, cfg))
	g.GET("/projects/:id", getProject(store, cfg))
	g.PATCH("/projects/:id", updateProject(store, cfg))
	g.DELETE("/projects/:id", deleteProject(store, cfg))

	g.GET("/tags", listTags(store, cfg))
	g.POST("/tags", createTag(store, cfg))
	g.DELETE("/tags/:id", deleteTag(store, cfg))

	g.GET("/analytics", getAnalytics(store, cfg))
	g.GET("/me", getMe(store, cfg))
	g.PUT("/me", putMe(store, cfg))
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func decodeBody(c echo.Context, dest any) error {
	lr := io.LimitReader(c.Request().Body, maxBodyBytes)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

type taskListResponse struct {
	Tasks      []domain.Task `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

func listTasks(store Storage, logger *log.Logger, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		filter := storage.TaskFilter{
			ProjectID: c.QueryParam("projectId"),
			Page:      1,
			Limit:     defaultPageSize,
		}
		if status := c.QueryParam("status"); status != "" {
			s := domain.Status(status)
			if !s.Valid() {
				metrics.SetErrorStage("invalid_status")
				return fail(c, http.StatusBadRequest, CodeValidation, "status: unknown status value")
			}
			filter.Status = s
		}
		if raw := c.QueryParam("page"); raw != "" {
			page, parseErr := strconv.Atoi(raw)
			if parseErr != nil || page < 1 {
				metrics.SetErrorStage("invalid_page")
				return fail(c, http.StatusBadRequest, CodeValidation, "page: must be a positive integer")
			}
			filter.Page = page
		}
		if raw := c.QueryParam("limit"); raw != "" {
			limit, parseErr := strconv.Atoi(raw)
			if parseErr != nil || limit < 1 || limit > maxPageSize {
				metrics.SetErrorStage("invalid_limit")
				return fail(c, http.StatusBadRequest, CodeValidation, "limit: must be between 1 and 100")
			}
			filter.Limit = limit
		}

		fetchStart := time.Now()
		tasks, total, fetchErr := store.ListTasks(ctx, userID(c), filter)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			return failStorage(c, fetchErr, cfg.Debug)
		}
		metrics.SetTasksReturned(len(tasks))

		if tasks == nil {
			tasks = []domain.Task{}
		}
		totalPages := 0
		if filter.Limit > 0 {
			totalPages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
		}
		encodeStart := time.Now()
		err = ok(c, http.StatusOK, taskListResponse{
			Tasks: tasks,
			Pagination: Pagination{
				Total:      total,
				Page:       filter.Page,
				Limit:      filter.Limit,
				TotalPages: totalPages,
			},
		})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getTask(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := store.GetTask(c.Request().Context(), userID(c), c.Param("id"))
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, task)
	}
}

func createTask(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
		}
		task, tagIDs, verr := req.validate()
		if verr != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, verr.Error())
		}

		created, err := store.CreateTask(c.Request().Context(), userID(c), task, tagIDs)
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusCreated, created)
	}
}

func updateTask(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
		}
		patch, verr := req.validate()
		if verr != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, verr.Error())
		}

		updated, err := store.UpdateTask(c.Request().Context(), userID(c), c.Param("id"), patch)
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, updated)
	}
}

func deleteTask(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.DeleteTask(c.Request().Context(), userID(c), c.Param("id")); err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, nil)
	}
}

type reorderResponse struct {
	Results []storage.ItemResult `json:"results"`
}

// reorderTasks persists a board move: an array of {id, status, order}
// triples, applied independently. The response reports per-item outcomes so
// callers can discover partial success.
func reorderTasks(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var items []domain.TaskPosition
		if err := decodeBody(c, &items); err != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
		}
		if len(items) == 0 {
			return fail(c, http.StatusBadRequest, CodeValidation, "items: at least one update is required")
		}

		results := store.ReorderTasks(c.Request().Context(), userID(c), items)
		status := http.StatusOK
		for _, r := range results {
			if !r.Applied {
				status = http.StatusMultiStatus
				break
			}
		}
		return ok(c, status, reorderResponse{Results: results})
	}
}
