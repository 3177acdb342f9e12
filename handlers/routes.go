package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with middleware and every route.
// fileHandler may be nil when no storage is configured.
func NewRouter(log *zap.Logger, contractHandler *ContractHandler, fileHandler *FileHandler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(log), Recovery(log))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Contract endpoints
		api.POST("/contracts/analyze", contractHandler.AnalyzeContract)
		api.GET("/contracts/:id", contractHandler.GetContract)
		api.GET("/contracts/:id/tasks", contractHandler.GetContractTasks)
		api.GET("/users/:id/contracts", contractHandler.ListUserContracts)

		// File endpoints
		if fileHandler != nil {
			api.GET("/contracts/:id/files", fileHandler.ListContractFiles)
			api.GET("/files/:id", fileHandler.GetFile)
		}
	}

	return r
}
