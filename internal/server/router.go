package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the HTTP routes. allowedOrigins controls which browser
// origins may call the API cross-origin.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(allowedOrigins))

	r.GET("/health", h.Health)
	r.POST("/upload", h.Upload)
	r.GET("/records", h.Records)
	r.GET("/kpis", h.KPIs)
	r.GET("/batches", h.Batches)
	r.GET("/export", h.Export)

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
