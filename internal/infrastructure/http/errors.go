package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps an error to its HTTP status and body.
func statusFor(err error) (int, errorResponse) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, errorResponse{Error: http.StatusText(he.Code), Message: msg}
	case errors.Is(err, entities.ErrNoMatch):
		return http.StatusNotFound, errorResponse{
			Error:   "No similar documents found",
			Message: "Unable to find relevant information for the given query.",
		}
	case errors.Is(err, entities.ErrEmbedding):
		return http.StatusBadGateway, errorResponse{Error: "Embedding failed", Message: err.Error()}
	case errors.Is(err, entities.ErrCompletion):
		return http.StatusBadGateway, errorResponse{Error: "Completion failed", Message: err.Error()}
	case errors.Is(err, entities.ErrExtraction):
		return http.StatusUnprocessableEntity, errorResponse{Error: "Extraction failed", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Message: err.Error()}
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, body := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request error", "method", c.Request().Method, "path", c.Request().URL.Path, "status", code, "error", err)
	}
	if err := c.JSON(code, body); err != nil {
		s.logger.Warn("writing error response", "error", err)
	}
}
