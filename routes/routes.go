package routes

import (
	"github.com/gin-gonic/gin"

	"feed-import-service/controllers"
)

func RegisterImportRoutes(r *gin.Engine, ic *controllers.ImportController) {
	importRoutes := r.Group("/imports")
	{
		importRoutes.POST("/", ic.CreateImport)
		importRoutes.GET("/", ic.ListImports)
		importRoutes.GET("/:id", ic.GetImport)
		importRoutes.GET("/:id/fields", ic.FeedFields)
		importRoutes.GET("/:id/logs", ic.ListLogs)
		importRoutes.POST("/:id/process", ic.ProcessChunk)
		importRoutes.POST("/:id/pause", ic.Pause)
		importRoutes.POST("/:id/resume", ic.Resume)
		importRoutes.POST("/:id/retry", ic.Retry)
	}

	mappingRoutes := r.Group("/mappings")
	{
		mappingRoutes.POST("/infer", ic.InferMapping)
	}
}
