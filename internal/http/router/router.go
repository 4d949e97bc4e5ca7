package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/winnipeg-connect/backend/internal/config"
	"github.com/winnipeg-connect/backend/internal/http/handlers"
	"github.com/winnipeg-connect/backend/internal/http/middleware"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/service"
)

// Handlers bundles every route handler the router wires up.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	Job          *handlers.JobHandler
	Quote        *handlers.QuoteHandler
	Payment      *handlers.PaymentHandler
	Category     *handlers.CategoryHandler
	Conversation *handlers.ConversationHandler
	Notification *handlers.NotificationHandler
	Review       *handlers.ReviewHandler
	Withdrawal   *handlers.WithdrawalHandler
	Media        *handlers.MediaHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler
}

// SetupRouter assembles the gin engine: global middleware, public routes,
// rate-limited auth routes and the authenticated API surface.
func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/sessions", h.Auth.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), h.Auth.DeleteSession)
		protectedAuth.DELETE("/sessions", h.Auth.DeleteAllSessionsExcept)
	}

	// Public routes.
	api.GET("/jobs", h.Job.List)
	api.GET("/jobs/:id", middleware.UUIDValidator("id"), h.Job.Get)
	api.GET("/jobs/:id/reviews", middleware.UUIDValidator("id"), h.Review.ListJobReviews)
	api.GET("/users/:id", middleware.UUIDValidator("id"), h.Profile.GetUserProfile)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), h.Review.ListUserReviews)
	api.GET("/providers/search", h.Profile.SearchProviders)
	api.GET("/categories", h.Category.Tree)
	api.GET("/categories/:slug", h.Category.GetBySlug)
	api.GET("/categories/:slug/children", h.Category.ListChildren)
	api.GET("/ws", h.WS.Handle)

	// Authenticated routes.
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", h.Profile.GetMe)
		protected.PUT("/profile", h.Profile.UpdateMe)

		protected.POST("/jobs", h.Job.Create)
		protected.GET("/jobs/my", h.Job.ListMine)
		protected.PUT("/jobs/:id", middleware.UUIDValidator("id"), h.Job.Update)
		protected.DELETE("/jobs/:id", middleware.UUIDValidator("id"), h.Job.Delete)
		protected.PUT("/jobs/:id/status", middleware.UUIDValidator("id"), h.Job.UpdateStatus)
		protected.GET("/jobs/:id/quotes", middleware.UUIDValidator("id"), h.Quote.ListForJob)
		protected.GET("/jobs/:id/payments", middleware.UUIDValidator("id"), h.Payment.ListForJob)

		protected.POST("/quotes", h.Quote.Submit)
		protected.GET("/quotes/my", h.Quote.ListMine)
		protected.GET("/quotes/:id", middleware.UUIDValidator("id"), h.Quote.Get)
		protected.PUT("/quotes/:id/accept", middleware.UUIDValidator("id"), h.Quote.Accept)
		protected.PUT("/quotes/:id/reject", middleware.UUIDValidator("id"), h.Quote.Reject)
		protected.DELETE("/quotes/:id", middleware.UUIDValidator("id"), h.Quote.Withdraw)

		protected.POST("/payments/create-payment-intent", h.Payment.CreateIntent)
		protected.POST("/payments/confirm-payment", h.Payment.Confirm)
		protected.GET("/payments/my", h.Payment.ListMine)
		protected.GET("/payments/earnings", h.Payment.Earnings)
		protected.GET("/payments/earnings/history", h.Payment.EarningsHistory)
		protected.GET("/payments/:id", middleware.UUIDValidator("id"), h.Payment.Get)
		protected.POST("/payments/:id/approve-release", middleware.UUIDValidator("id"), h.Payment.ApproveRelease)
		protected.POST("/payments/:id/release", middleware.UUIDValidator("id"), h.Payment.Release)
		protected.POST("/payments/:id/refund", middleware.UUIDValidator("id"), h.Payment.Refund)
		protected.POST("/payments/:id/dispute", middleware.UUIDValidator("id"), h.Payment.Dispute)
		protected.POST("/payments/:id/resolve-dispute",
			middleware.UUIDValidator("id"), middleware.RequireRole(models.RoleAdmin), h.Payment.ResolveDispute)
		protected.POST("/users/:id/earnings/recompute",
			middleware.UUIDValidator("id"), middleware.RequireRole(models.RoleAdmin), h.Payment.RecomputeEarnings)

		protected.POST("/withdrawals", h.Withdrawal.Create)
		protected.GET("/withdrawals/my", h.Withdrawal.ListMine)
		protected.GET("/withdrawals/:id", middleware.UUIDValidator("id"), h.Withdrawal.Get)
		protected.PUT("/withdrawals/:id/complete",
			middleware.UUIDValidator("id"), middleware.RequireRole(models.RoleAdmin), h.Withdrawal.Complete)
		protected.PUT("/withdrawals/:id/reject",
			middleware.UUIDValidator("id"), middleware.RequireRole(models.RoleAdmin), h.Withdrawal.Reject)

		protected.POST("/conversations", h.Conversation.Start)
		protected.GET("/conversations/my", h.Conversation.ListMine)
		protected.GET("/conversations/:conversationId/messages", middleware.UUIDValidator("conversationId"), h.Conversation.ListMessages)
		protected.POST("/conversations/:conversationId/messages", middleware.UUIDValidator("conversationId"), h.Conversation.SendMessage)

		protected.GET("/notifications", h.Notification.List)
		protected.GET("/notifications/unread/count", h.Notification.CountUnread)
		protected.PUT("/notifications/read-all", h.Notification.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), h.Notification.Delete)

		protected.POST("/reviews", h.Review.Create)

		protected.POST("/media/photos", h.Media.UploadPhoto)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), h.Media.DeleteMedia)
	}

	return r
}
