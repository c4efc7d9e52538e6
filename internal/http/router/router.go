package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/http/handlers"
	"github.com/ignatzorin/jobconnect-backend/internal/http/middleware"
	"github.com/ignatzorin/jobconnect-backend/internal/metrics"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	redisClient *redis.Client,
	tokenManager *service.TokenManager,
	jobHandler *handlers.JobHandler,
	escrowHandler *handlers.EscrowHandler,
	installerHandler *handlers.InstallerHandler,
	notificationHandler *handlers.NotificationHandler,
	eventHandler *handlers.EventHandler,
	adminHandler *handlers.AdminHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	protected.Use(middleware.RateLimitMiddleware(redisClient, cfg.RateLimitLimit, cfg.RateLimitPeriod))

	jobs := protected.Group("/jobs")
	{
		jobs.POST("", middleware.RequireRole(models.RoleJobGiver), jobHandler.CreateJob)

		job := jobs.Group("/:id", middleware.UUIDValidator("id"))
		job.GET("", jobHandler.GetJob)
		job.GET("/escrow", escrowHandler.ListForJob)
		job.POST("/bids", middleware.RequireRole(models.RoleInstaller), jobHandler.AddBid)
		job.POST("/messages", jobHandler.AddMessage)

		job.POST("/award", jobHandler.Award)
		job.POST("/offer/accept", jobHandler.AcceptOffer)
		job.POST("/offer/decline", jobHandler.DeclineOffer)
		job.POST("/bidding/close", jobHandler.CloseBidding)
		job.POST("/bidding/reopen", jobHandler.ReopenBidding)

		job.POST("/fund", jobHandler.Fund)
		job.POST("/funds", jobHandler.AddFunds)
		job.POST("/start", jobHandler.StartWork)
		job.POST("/complete", jobHandler.SubmitCompletion)
		job.POST("/approve", jobHandler.Approve)
		job.POST("/revision", jobHandler.RequestRevision)

		job.POST("/cancel", jobHandler.Cancel)
		job.POST("/cancellation", jobHandler.ProposeCancellation)
		job.POST("/cancellation/accept", jobHandler.AcceptCancellation)
		job.POST("/cancellation/reject", jobHandler.RejectCancellation)
		job.POST("/dispute", jobHandler.RaiseDispute)
		job.POST("/assistance", jobHandler.RequestAssistance)

		job.POST("/date-change", jobHandler.ProposeDateChange)
		job.POST("/date-change/accept", jobHandler.AcceptDateChange)
		job.POST("/date-change/reject", jobHandler.RejectDateChange)
		job.POST("/date-change/dismiss", jobHandler.DismissDateChange)
	}

	protected.GET("/installers/:id/reputation", middleware.UUIDValidator("id"), installerHandler.GetProfile)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
	}

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/jobs/:id/dispute/resolve", middleware.UUIDValidator("id"), adminHandler.ResolveDispute)
		admin.POST("/jobs/:id/assistance/resolve", middleware.UUIDValidator("id"), adminHandler.ResolveAssistance)
		admin.POST("/installers/:id/verify", middleware.UUIDValidator("id"), installerHandler.Verify)
		admin.POST("/escrow/:txnId/confirm", middleware.UUIDValidator("txnId"), escrowHandler.ConfirmAddOn)
		admin.POST("/escrow/:txnId/fail", middleware.UUIDValidator("txnId"), escrowHandler.FailAddOn)
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSettings)
		admin.POST("/sweeps/:name", adminHandler.RunSweep)
		admin.POST("/events/jobs", eventHandler.IngestJobChange)
	}

	return r
}
