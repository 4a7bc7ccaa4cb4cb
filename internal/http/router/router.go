package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dkravtsov/marketplace-backend/internal/config"
	"github.com/dkravtsov/marketplace-backend/internal/http/handlers"
	"github.com/dkravtsov/marketplace-backend/internal/http/middleware"
	"github.com/dkravtsov/marketplace-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	balanceHandler *handlers.BalanceHandler,
	catalogHandler *handlers.CatalogHandler,
	purchaseHandler *handlers.PurchaseHandler,
	requestHandler *handlers.RequestHandler,
	disputeHandler *handlers.DisputeHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	disputeLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/services", catalogHandler.ListServices)
	api.GET("/requests", requestHandler.ListRequests)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/balance", balanceHandler.GetBalance)
		protected.POST("/balance/deposit", balanceHandler.Deposit)
		protected.GET("/balance/transactions", balanceHandler.ListTransactions)

		protected.POST("/services", catalogHandler.CreateService)
		protected.GET("/services/mine", catalogHandler.ListMyServices)
		protected.GET("/services/:id", middleware.UUIDValidator("id"), catalogHandler.GetService)
		protected.POST("/services/:id/purchase", middleware.UUIDValidator("id"), purchaseHandler.CreatePurchase)

		protected.GET("/purchases", purchaseHandler.ListMyPurchases)
		protected.GET("/purchases/:id", middleware.UUIDValidator("id"), purchaseHandler.GetPurchase)
		protected.POST("/purchases/:id/accept", middleware.UUIDValidator("id"), purchaseHandler.Accept)
		protected.POST("/purchases/:id/reject", middleware.UUIDValidator("id"), purchaseHandler.Reject)
		protected.POST("/purchases/:id/submit", middleware.UUIDValidator("id"), purchaseHandler.Submit)
		protected.POST("/purchases/:id/approve", middleware.UUIDValidator("id"), purchaseHandler.ApproveSubmission)
		protected.POST("/purchases/:id/request-changes", middleware.UUIDValidator("id"), purchaseHandler.RequestChanges)
		protected.POST("/purchases/:id/dispute", middleware.UUIDValidator("id"), disputeLimit, disputeHandler.OpenPurchaseDispute)

		protected.POST("/requests", requestHandler.CreateRequest)
		protected.GET("/requests/mine", requestHandler.ListMyRequests)
		protected.GET("/requests/:id", middleware.UUIDValidator("id"), requestHandler.GetRequest)
		protected.POST("/requests/:id/offers", middleware.UUIDValidator("id"), requestHandler.CreateOffer)
		protected.POST("/requests/:id/offers/:offerId/accept", middleware.UUIDValidator("id"), middleware.UUIDValidator("offerId"), requestHandler.AcceptOffer)
		protected.POST("/requests/:id/submit", middleware.UUIDValidator("id"), requestHandler.SubmitWork)
		protected.POST("/requests/:id/approve", middleware.UUIDValidator("id"), requestHandler.ApproveSubmission)
		protected.POST("/requests/:id/reject", middleware.UUIDValidator("id"), requestHandler.RejectSubmission)
		protected.POST("/requests/:id/dispute", middleware.UUIDValidator("id"), disputeLimit, disputeHandler.OpenRequestDispute)

		protected.GET("/disputes", disputeHandler.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.GetDispute)
		protected.POST("/disputes/:id/evidence", middleware.UUIDValidator("id"), disputeHandler.AttachEvidence)
	}

	// Администрирование
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireAdmin())
	{
		admin.GET("/disputes", disputeHandler.ListOpenDisputes)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
		admin.GET("/platform-balance", balanceHandler.GetPlatformBalance)
	}

	return r
}
