package server

import (
	"errors"
	"net/http"

	assemblydomain "github.com/craftbom/quotora/internal/assembly/domain"
	componentdomain "github.com/craftbom/quotora/internal/component/domain"
	quotationdomain "github.com/craftbom/quotora/internal/quotation/domain"
	"github.com/craftbom/quotora/internal/quotation/engine"
	"github.com/gin-gonic/gin"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTooManyRequest = errors.New("too_many_requests")
	ErrInternal       = errors.New("internal_error")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{Field: "request", Code: "invalid_request", Message: "invalid request"},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, quotationdomain.ErrSystemNotEmpty):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "system still has items",
		}
	case errors.Is(err, componentdomain.ErrNameTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "component name already in use",
		}
	case errors.Is(err, ErrTooManyRequest):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, componentdomain.ErrInvalidOrganization),
		errors.Is(err, componentdomain.ErrInvalidID),
		errors.Is(err, componentdomain.ErrInvalidName),
		errors.Is(err, componentdomain.ErrInvalidCost),
		errors.Is(err, componentdomain.ErrInvalidCurrency),
		errors.Is(err, assemblydomain.ErrInvalidID),
		errors.Is(err, assemblydomain.ErrInvalidName),
		errors.Is(err, assemblydomain.ErrInvalidMember),
		errors.Is(err, assemblydomain.ErrInvalidQuantity),
		errors.Is(err, assemblydomain.ErrCircularAssembly),
		errors.Is(err, quotationdomain.ErrInvalidID),
		errors.Is(err, quotationdomain.ErrInvalidName),
		errors.Is(err, quotationdomain.ErrInvalidStatus),
		errors.Is(err, quotationdomain.ErrInvalidSystem),
		errors.Is(err, quotationdomain.ErrInvalidItem),
		errors.Is(err, quotationdomain.ErrInvalidRate),
		errors.Is(err, engine.ErrNoActivePrice),
		errors.Is(err, engine.ErrCircularAssembly),
		errors.Is(err, engine.ErrInvalidRate),
		errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, engine.ErrInvalidItemType),
		errors.Is(err, engine.ErrMissingReference):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, componentdomain.ErrNotFound) ||
		errors.Is(err, assemblydomain.ErrNotFound) ||
		errors.Is(err, quotationdomain.ErrNotFound) ||
		errors.Is(err, quotationdomain.ErrNoCalculations)
}

// classifyErrorForLog feeds the request logger a stable (type, code) pair.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case isValidationError(err):
		return "validation_error", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	case errors.Is(err, ErrTooManyRequest):
		return "too_many_requests", err.Error()
	default:
		return "internal_error", err.Error()
	}
}
