package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	stablecoindomain "github.com/stableview/stableview/internal/stablecoin/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
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

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}
	case errors.Is(err, ErrNotFound), errors.Is(err, stablecoindomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "resource not found"}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, stablecoindomain.ErrInvalidID),
		errors.Is(err, stablecoindomain.ErrInvalidAddress),
		errors.Is(err, stablecoindomain.ErrInvalidName),
		errors.Is(err, stablecoindomain.ErrInvalidSymbol):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	case errors.Is(err, stablecoindomain.ErrDuplicateAddress):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "address already tracked"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal error"}
	}
}
