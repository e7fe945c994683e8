package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/service"
)

type errorPayload struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// writeError maps service errors onto the JSON error envelope. Unknown errors are
// logged and reported as internal_error with the given message.
func writeError(c echo.Context, err error, internalMsg string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := NewErrorResponse("validation_error", verr.Error())
		resp.Error.Fields = verr.Fields
		return c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("permission_denied", "you don't have permission to do that"))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "not found"))
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "login required"))
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, NewErrorResponse("conflict", "concurrent update, please retry"))
	case errors.Is(err, service.ErrUpstream):
		zerolog.Ctx(c.Request().Context()).Warn().Err(err).Msg(internalMsg)
		return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_error", internalMsg))
	case errors.Is(err, service.ErrDisabled):
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "this feature is not configured"))
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg(internalMsg)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", internalMsg))
}

func parseIDParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", msg))
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "login required"))
}

func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return def
}
