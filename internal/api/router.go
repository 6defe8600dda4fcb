package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// NewRouter wires the dashboard JSON API.
func NewRouter(h *Handlers, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(recovery(), accessLog())

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/developers", h.ByDeveloper)
	api.GET("/design", h.DesignByDeveloper)
	api.GET("/sprints", h.BySprint)
	api.GET("/sprints/:sprint/developers/:name", h.DeveloperIssues)
	api.GET("/investigate", h.ShouldInvestigate)
	api.GET("/issues", h.Issues)
	api.GET("/cache", h.CacheStatus)

	return r
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http")
	}
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
			}
		}()
		c.Next()
	}
}
