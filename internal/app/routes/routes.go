package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/submity/internal/app/controllers"
	"github.com/yigit/submity/internal/app/models/dto"
	"github.com/yigit/submity/internal/middleware"
	"github.com/yigit/submity/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	submissionController *controllers.SubmissionController,
	wsHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
	}

	// --- Authenticated Auth routes ---
	authProtected := v1.Group("/auth")
	authProtected.Use(authMiddleware.JWTAuth())
	{
		authProtected.POST("/logout", authController.Logout)
		authProtected.GET("/me", authController.Me)
	}

	// --- Submissions ---
	submissions := v1.Group("/submissions")
	{
		// anyone can submit; a valid token links the submission to the account
		submissions.POST("", authMiddleware.OptionalAuth(), submissionController.CreateSubmission)

		// consultation and grading only need the link and the edit code
		submissions.GET("/:id", submissionController.GetSubmission)
		submissions.POST("/:id/verify", submissionController.VerifyEditCode)
		submissions.POST("/:id/correction", submissionController.GradeSubmission)
		submissions.GET("/:id/ws", wsHandler.HandleConnection)

		submissions.GET("", authMiddleware.JWTAuth(), submissionController.ListMySubmissions)
		submissions.DELETE("/:id", authMiddleware.JWTAuth(), submissionController.DeleteSubmission)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.APIResponse{
			Data: gin.H{"status": "ok"},
		})
	})
}
