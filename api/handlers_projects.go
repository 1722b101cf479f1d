package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskboard-api/domain"
)

func listProjects(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := store.ListProjects(c.Request().Context(), userID(c))
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		return ok(c, http.StatusOK, projects)
	}
}

func getProject(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		project, err := store.GetProject(c.Request().Context(), userID(c), c.Param("id"))
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, project)
	}
}

func createProject(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req projectRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
		}
		project, verr := req.validate()
		if verr != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, verr.Error())
		}

		created, err := store.CreateProject(c.Request().Context(), userID(c), project)
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusCreated, created)
	}
}

func updateProject(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
		}
		patch, verr := req.validate()
		if verr != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, verr.Error())
		}

		updated, err := store.UpdateProject(c.Request().Context(), userID(c), c.Param("id"), patch)
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, updated)
	}
}

// deleteProject removes a project and, through the storage cascade, every
// task under it together with their tag associations.
func deleteProject(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.DeleteProject(c.Request().Context(), userID(c), c.Param("id")); err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, nil)
	}
}
