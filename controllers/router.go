package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the API routes onto a gin engine.
func NewRouter(analysis *AnalysisController) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/quote/:symbol", analysis.HandleGetQuote)
		v1.GET("/expirations/:symbol", analysis.HandleGetExpirations)
		v1.POST("/analyze", analysis.HandleAnalyze)
		v1.POST("/payoff", analysis.HandlePayoff)
	}

	return router
}
