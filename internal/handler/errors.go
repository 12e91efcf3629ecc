package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/service"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeValidation         = "validation_failed"
	codeInvalidCredentials = "invalid_credentials"
	codeUnauthenticated    = "unauthenticated"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeEmptyState         = "empty_state"
	codeConflict           = "conflict"
	codeInvalidTransition  = "invalid_transition"
	codeNotEligible        = "not_eligible"
	codeInsufficientFunds  = "insufficient_funds"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func writeError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps a service error onto a status and code. Anything
// unrecognised is logged and reported as a generic 500.
func writeServiceError(c echo.Context, log *zap.Logger, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Message, Code: codeValidation, Field: ve.Field})
	case errors.Is(err, service.ErrInvalidCredentials):
		return writeError(c, http.StatusUnauthorized, codeInvalidCredentials, err.Error())
	case errors.Is(err, service.ErrNoSession):
		return writeError(c, http.StatusUnauthorized, codeUnauthenticated, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return writeError(c, http.StatusForbidden, codeForbidden, "not allowed")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, http.StatusNotFound, codeNotFound, "not found")
	case errors.Is(err, service.ErrInvalidTransition):
		return writeError(c, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrRoleAlreadySet),
		errors.Is(err, service.ErrAlreadyReviewed):
		return writeError(c, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, service.ErrNotEligible):
		return writeError(c, http.StatusUnprocessableEntity, codeNotEligible, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		return writeError(c, http.StatusUnprocessableEntity, codeInsufficientFunds, err.Error())
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return writeError(c, http.StatusInternalServerError, codeInternalError, "internal error")
}
