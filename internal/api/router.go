package api

import (
	"net/http"

	"order-handoff/internal/api/middleware"
	"order-handoff/internal/models"
	"order-handoff/internal/modules/evidence"
	"order-handoff/internal/modules/notifications"
	"order-handoff/internal/modules/orders"
	"order-handoff/internal/modules/ratings"
	"order-handoff/internal/modules/verification"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	orderHandler *orders.Handler,
	verificationHandler *verification.Handler,
	evidenceHandler *evidence.Handler,
	notificationHandler *notifications.Handler,
	ratingHandler *ratings.Handler,
	jwtSecret string,
) {
	authMiddleware := middleware.JWTAuth(jwtSecret)
	businessOnly := middleware.RoleRequired(models.RoleBusiness)

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Order hand-off verification service"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// --- Order Routes ---
	orderGroup := e.Group("/orders", authMiddleware)
	{
		orderGroup.POST("", orderHandler.CreateOrder)
		orderGroup.GET("", orderHandler.ListMyOrders)
		orderGroup.GET("/:orderId", orderHandler.GetOrderDetails)
		orderGroup.GET("/:orderId/verification", orderHandler.GetVerificationStatus)
		orderGroup.POST("/:orderId/issues", orderHandler.ReportIssue)

		// Passcode lifecycle
		orderGroup.POST("/:orderId/passcodes", verificationHandler.GeneratePasscodes)
		orderGroup.POST("/:orderId/passcodes/resend", verificationHandler.ResendPasscode)

		// Proof photos must be uploaded before the matching code is accepted.
		orderGroup.POST("/:orderId/proof", evidenceHandler.UploadProof)
		orderGroup.GET("/:orderId/proof", evidenceHandler.GetProof)

		// The two milestones of the hand-off
		orderGroup.POST("/:orderId/verify/pickup", verificationHandler.VerifyPickup)
		orderGroup.POST("/:orderId/verify/delivery", verificationHandler.VerifyDelivery)

		// Post-verification rating
		orderGroup.POST("/:orderId/rating", ratingHandler.Submit)
		orderGroup.POST("/:orderId/rating/skip", ratingHandler.Skip)
	}

	// --- Business Notification Feed ---
	feedGroup := e.Group("/business/orders", authMiddleware, businessOnly)
	{
		feedGroup.GET("/pending", notificationHandler.FetchPending)
		feedGroup.POST("/:orderId/viewed", notificationHandler.MarkViewed)
		feedGroup.POST("/viewed", notificationHandler.MarkAllViewed)
	}
}
