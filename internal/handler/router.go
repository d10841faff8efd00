package handler

import "github.com/gin-gonic/gin"

// Router groups the handlers served by wk-search. Nil handlers are not mounted.
type Router struct {
	Provider   *ProviderHandler
	Subjects   *SubjectHandler
	Properties *PropertyHandler
	Sync       *SyncHandler
	Metrics    *MetricsHandler
}

// Register mounts operational endpoints at the root and the API under prefix.
func (rt Router) Register(engine *gin.Engine, prefix string) {
	if rt.Metrics != nil {
		engine.GET("/health", rt.Metrics.Health)
		engine.GET("/metrics", rt.Metrics.Prometheus)
	}

	api := engine.Group(prefix)

	if rt.Provider != nil {
		providers := api.Group("/providers/:authority")
		providers.GET("/search_suggest_query", rt.Provider.Query)
		providers.GET("/type", rt.Provider.Type)
		providers.POST("/search_suggest_query", rt.Provider.Mutate)
		providers.PUT("/search_suggest_query", rt.Provider.Mutate)
		providers.DELETE("/search_suggest_query", rt.Provider.Mutate)
	}

	if rt.Subjects != nil {
		api.GET("/suggestions", rt.Subjects.Suggest)
		api.GET("/subjects/:id", rt.Subjects.Get)
		api.PUT("/subjects/:id", rt.Subjects.Put)
		api.GET("/subjects/:id/keys", rt.Subjects.Keys)
	}

	if rt.Properties != nil {
		api.GET("/properties", rt.Properties.List)
		api.DELETE("/properties", rt.Properties.Reset)
		api.GET("/properties/:name", rt.Properties.Get)
		api.PUT("/properties/:name", rt.Properties.Put)
		api.DELETE("/properties/:name", rt.Properties.Delete)
	}

	if rt.Sync != nil {
		api.POST("/sync/subjects", rt.Sync.Submit)
		api.POST("/sync/full", rt.Sync.FullResync)
		api.GET("/sync/jobs/:id", rt.Sync.Status)
	}

	if rt.Metrics != nil {
		api.GET("/stats", rt.Metrics.Stats)
	}
}
