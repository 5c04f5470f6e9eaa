package orders

import (
	"net/http"
	"strconv"

	"order-handoff/internal/models"
	"order-handoff/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new order handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateOrder(c echo.Context) error {
	if _, _, err := utils.ExtractUserInfo(c); err != nil {
		return err
	}

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	order, pair, err := h.svc.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusCreated, map[string]interface{}{
		"order":     order,
		"passcodes": pair,
	})
}

func (h *Handler) GetOrderDetails(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	order, err := h.svc.GetOrderDetails(c.Request().Context(), c.Param("orderId"), userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, order)
}

func (h *Handler) ListMyOrders(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, total, err := h.svc.ListBusinessOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve orders")
	}

	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"orders": list, "total": total})
}

func (h *Handler) ReportIssue(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.ReportIssueRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.ReportIssue(c.Request().Context(), c.Param("orderId"), userID, req.Description); err != nil {
		return utils.HandleServiceError(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) GetVerificationStatus(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	status, err := h.svc.GetVerificationStatus(c.Request().Context(), c.Param("orderId"), userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, status)
}
