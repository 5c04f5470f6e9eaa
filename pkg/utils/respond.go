package utils

import (
	"errors"
	"net/http"

	"order-handoff/internal/models"

	"github.com/labstack/echo/v4"
)

// RespondWithJSON writes a JSON payload with the given status code.
func RespondWithJSON(c echo.Context, status int, payload interface{}) error {
	return c.JSON(status, payload)
}

// RespondWithError writes the standard error envelope.
func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Message: message})
}

// HandleServiceError maps the service-layer error taxonomy onto HTTP
// responses. Unrecognized errors become opaque 500s; the details stay in the
// server log.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: err.Error(), Code: models.CodeNotFound})
	case errors.Is(err, models.ErrForbidden):
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: err.Error(), Code: models.CodeForbidden})
	case errors.Is(err, models.ErrConflict):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error(), Code: models.CodeConflict})
	case errors.Is(err, models.ErrInvalidCode):
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: err.Error(), Code: models.CodeInvalidCode})
	case errors.Is(err, models.ErrCodeExpired):
		return c.JSON(http.StatusGone, models.ErrorResponse{Message: err.Error(), Code: models.CodeExpired})
	case errors.Is(err, models.ErrEvidenceMissing):
		return c.JSON(http.StatusPreconditionFailed, models.ErrorResponse{Message: err.Error(), Code: models.CodeEvidenceMissing})
	case errors.Is(err, models.ErrAlreadyVerified):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error(), Code: models.CodeAlreadyVerified})
	case errors.Is(err, models.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error(), Code: models.CodeBadTransition})
	case errors.Is(err, models.ErrRatingNotRequired), errors.Is(err, models.ErrRatingOutOfRange):
		return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Message: err.Error(), Code: models.CodeRatingRejected})
	default:
		c.Logger().Errorf("unhandled service error: %v", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "internal server error"})
	}
}
