package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskboard-api/storage"
)

// Machine-readable error codes carried in the response envelope.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeDuplicate    = "DUPLICATE_RECORD"
	CodeForeignKey   = "FOREIGN_KEY_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeServerError  = "SERVER_ERROR"
)

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Pagination rides alongside list payloads.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func fail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, Envelope{Success: false, Error: msg, Code: code})
}

// failStorage maps store sentinel errors onto the wire taxonomy. Ownership
// failures arrive as ErrNotFound and stay that way; the envelope never
// confirms existence to non-owners. Unexpected errors collapse to a generic
// server error unless debug mode is on.
func failStorage(c echo.Context, err error, debug bool) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fail(c, http.StatusNotFound, CodeNotFound, "resource not found")
	case errors.Is(err, storage.ErrDuplicate):
		return fail(c, http.StatusConflict, CodeDuplicate, "a record with the same unique value already exists")
	case errors.Is(err, storage.ErrForeignKey):
		return fail(c, http.StatusBadRequest, CodeForeignKey, "referenced entity does not exist")
	}
	c.Logger().Error(err)
	msg := "internal server error"
	if debug {
		msg = err.Error()
	}
	return fail(c, http.StatusInternalServerError, CodeServerError, msg)
}
