package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskboard-api/domain"
)

func listTags(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		tags, err := store.ListTags(c.Request().Context(), userID(c))
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		if tags == nil {
			tags = []domain.Tag{}
		}
		return ok(c, http.StatusOK, tags)
	}
}

func createTag(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req tagRequest
		if err := decodeBody(c, &req); err != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, "invalid body")
		}
		tag, verr := req.validate()
		if verr != nil {
			return fail(c, http.StatusBadRequest, CodeValidation, verr.Error())
		}

		created, err := store.CreateTag(c.Request().Context(), userID(c), tag)
		if err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusCreated, created)
	}
}

func deleteTag(store Storage, cfg Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.DeleteTag(c.Request().Context(), userID(c), c.Param("id")); err != nil {
			return failStorage(c, err, cfg.Debug)
		}
		return ok(c, http.StatusOK, nil)
	}
}
