package routes

import (
	"github.com/gin-gonic/gin"

	"bizdesk/internal/authz"
	"bizdesk/internal/handlers"
	"bizdesk/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	opportunityHandler *handlers.OpportunityHandler,
	proposalHandler *handlers.ProposalHandler,
	notificationHandler *handlers.NotificationHandler,
	mentionHandler *handlers.MentionHandler,
	reportHandler *handlers.ReportHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {

	// ---- public
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.RefreshToken)

	// websocket-фид (auth-мидлварь пропускает /ws/ как публичный путь)
	r.GET("/ws/opportunities/:id", wsHandler.Subscribe)

	// ---- protected
	r.Use(middleware.AuthMiddleware())
	r.Use(middleware.ReadOnlyGuard())

	// USERS (справочник для назначений и @mention)
	users := r.Group("/users")
	{
		users.GET("/", userHandler.ListActive)
		users.GET("/:id", userHandler.GetByID)
	}

	// OPPORTUNITIES
	opps := r.Group("/opportunities")
	{
		opps.POST("/", opportunityHandler.Create)
		opps.GET("/", opportunityHandler.List)
		opps.GET("/:id", opportunityHandler.GetByID)
		opps.PUT("/:id", opportunityHandler.Update)
		opps.DELETE("/:id", opportunityHandler.Delete)

		// PROPOSALS: вкладка открыта только админу, как и раньше
		proposals := opps.Group("/:id/proposals", middleware.RequireRoles(authz.RoleAdmin))
		{
			proposals.GET("", proposalHandler.List)
			proposals.POST("", proposalHandler.Create)
			proposals.PUT("/:pid/name", proposalHandler.Rename)
			proposals.PUT("/:pid/link", proposalHandler.SetLink)
			proposals.PUT("/:pid/pricing", proposalHandler.SetPricing)
			proposals.DELETE("/:pid", proposalHandler.Delete)
			proposals.GET("/:pid/pdf", proposalHandler.ExportPDF)

			proposals.POST("/:pid/stages/:idx/approve", proposalHandler.ApproveStage)
			proposals.POST("/:pid/stages/:idx/reject", proposalHandler.RejectStage)
			proposals.POST("/:pid/stages/:idx/assign", proposalHandler.AssignStage)
			proposals.POST("/:pid/stages/:idx/comments", proposalHandler.CommentStage)
			proposals.POST("/:pid/stages/:idx/status", proposalHandler.SetStageStatus)
		}
	}

	// NOTIFICATIONS
	notifications := r.Group("/notifications")
	{
		notifications.GET("/", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}

	// MENTIONS
	ment := r.Group("/mentions")
	{
		ment.GET("/suggest", mentionHandler.Suggest)
		ment.POST("/insert", mentionHandler.Insert)
	}

	// REPORTS (audit/ops/mgmt/admin)
	reports := r.Group("/reports",
		middleware.RequireRoles(authz.RoleAudit, authz.RoleOperations, authz.RoleManagement, authz.RoleAdmin),
	)
	{
		reports.GET("/summary", reportHandler.GetSummary)
	}

	return r
}
