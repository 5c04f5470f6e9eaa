package verification

import (
	"net/http"

	"order-handoff/internal/models"
	"order-handoff/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for passcode verification.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new verification handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GeneratePasscodes(c echo.Context) error {
	userID, role, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	pair, err := h.svc.Issue(c.Request().Context(), c.Param("orderId"), userID, role)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, pair)
}

func (h *Handler) ResendPasscode(c echo.Context) error {
	userID, role, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.ResendRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	pair, err := h.svc.Resend(c.Request().Context(), c.Param("orderId"), req.Kind, userID, role)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, pair)
}

func (h *Handler) VerifyPickup(c echo.Context) error {
	userID, role, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.VerifyPickup(c.Request().Context(), c.Param("orderId"), req, userID, role)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, result)
}

func (h *Handler) VerifyDelivery(c echo.Context) error {
	userID, role, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.VerifyDelivery(c.Request().Context(), c.Param("orderId"), req, userID, role)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, result)
}
