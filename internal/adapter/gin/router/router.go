package router

import (
	"net/http"

	"social-user-service/api/swagger"
	"social-user-service/internal/adapter/gin/handler"
	"social-user-service/internal/adapter/gin/middleware"
	grpcadapter "social-user-service/internal/adapter/grpc"
	grpcmiddleware "social-user-service/internal/adapter/grpc/middleware"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// OpenAPIPath serves the raw OpenAPI document used by the Swagger UI.
const OpenAPIPath = "/openapi/social.swagger.json"

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	userHandler *handler.UserHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	health *grpcadapter.HealthService,
	log *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.RateLimiter(rateLimiter))

	router.GET("/health", func(c *gin.Context) {
		report := health.Refresh(c.Request.Context())
		code := http.StatusOK
		if !report.Serving {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	})

	router.GET(OpenAPIPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", swagger.Document)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(OpenAPIPath))))

	api := router.Group(handler.BaseURI)
	{
		users := api.Group("/users")
		{
			users.GET("", userHandler.ListUsers)
			users.POST("", userHandler.CreateUser)
			users.GET("/by", userHandler.GetUserBy)
			users.GET("/:userId", userHandler.GetUser)
			users.PATCH("/:userId", userHandler.UpdateUser)
			users.DELETE("/:userId", userHandler.DeleteUser)
			users.GET("/:userId/friends", userHandler.ListFriends)
			users.PUT("/:userId/friends/:friendId", userHandler.AddFriend)
			users.DELETE("/:userId/friends/:friendId", userHandler.RemoveFriend)
		}
	}

	return router
}
