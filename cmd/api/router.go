package api

import (
	"net/http"

	"mailiq-backend/internal/auth/delivery"
	authUsecase "mailiq-backend/internal/auth/usecase"
	emailDelivery "mailiq-backend/internal/email/delivery"
	emailUsecase "mailiq-backend/internal/email/usecase"
	"mailiq-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUc authUsecase.AuthUsecase, emailUc emailUsecase.EmailUsecase, cfg *config.Config) {
	authHandler := delivery.NewAuthHandler(authUc, cfg)
	emailHandler := emailDelivery.NewEmailHandler(emailUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "MailIQ Backend is running"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/google", authHandler.GoogleLogin)
			auth.GET("/google/callback", authHandler.GoogleCallback)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
		}

		// Email routes (protected)
		emails := api.Group("/emails")
		emails.Use(delivery.AuthMiddleware(authUc))
		{
			emails.POST("/sync", emailHandler.SyncEmails)
			emails.GET("", emailHandler.GetEmails)
			emails.GET("/stats/domains", emailHandler.GetDomainStats)
			emails.GET("/stats/domains/:domain/froms", emailHandler.GetFromsForDomain)
			emails.GET("/from/:fromEmail", emailHandler.GetEmailsByFrom)
			emails.DELETE("/from/:fromEmail", emailHandler.DeleteEmailsByFrom)
			emails.PATCH("/:id/read", emailHandler.MarkAsRead)
			// Must be last to avoid route conflicts
			emails.GET("/:id", emailHandler.GetSingleEmail)
		}
	}
}
