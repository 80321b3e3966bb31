package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ljarka/immich-timeline/internal/config"
	"github.com/ljarka/immich-timeline/internal/logger"
	"github.com/ljarka/immich-timeline/internal/metrics"
	"github.com/ljarka/immich-timeline/internal/store"
	"github.com/ljarka/immich-timeline/internal/timeline"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    store.Store
	Timeline *timeline.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Logger))

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.Timeline != nil {
		timeline.RegisterRoutes(api, deps.Timeline)
	}

	return router
}
