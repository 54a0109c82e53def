// Package server wires the HTTP surface of the settlement daemon.
package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/halcyonlabs/settler-go/internal/handlers"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(settlementHandler *handlers.SettlementHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(configureCORS())
	router.Use(handlers.LogRequest())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/execute", settlementHandler.Execute)
		v1.POST("/execute/meta", settlementHandler.ExecuteMeta)
		v1.POST("/simulate", settlementHandler.Simulate)
		v1.GET("/settlements", settlementHandler.ListSettlements)
		v1.GET("/version", settlementHandler.Version)
	}

	return router
}

// configureCORS returns a configured CORS middleware
func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		// Default to localhost if not set
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}

	return cors.New(corsConfig)
}
