package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mealsnap-backend/internal/analyses"
	"mealsnap-backend/internal/shared/config"
)

func registerRoutes(r *gin.Engine, cfg config.Config, repo analyses.Repo) {
	api := r.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"name":    cfg.AppName,
			"version": cfg.AppVersion,
		})
	})

	analyses.NewHandler(repo).RegisterRoutes(api)
}
