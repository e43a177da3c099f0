package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Router builds the gin engine with all gateway routes.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// API routes
	api := r.Group("/api")
	{
		api.POST("/cameras/:cameraId/stream", s.handleStartStream)
		api.DELETE("/cameras/:cameraId/stream", s.handleStopStream)
		api.POST("/cameras/:cameraId/stream/refresh", s.handleRefreshStream)
		api.POST("/cameras/:cameraId/stream/dismiss-error", s.handleDismissError)
		api.GET("/cameras/:cameraId/stream", s.handleGetStreamStatus)
		api.GET("/cameras/:cameraId/frame", s.handleGetFrame)
		api.GET("/streams", s.handleListStreams)
	}

	// WebSocket route for the browser relay
	r.GET("/ws/cameras/:cameraId", s.handleWebSocket)

	// Static viewer page
	r.GET("/viewer", func(c *gin.Context) {
		c.File("./viewer.html")
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	return r
}
