package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 允许任意来源的跨域访问，不携带凭证
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Length", "Content-Type", HeaderRequestID},
		ExposeHeaders:   []string{"Content-Length", HeaderRequestID},
		MaxAge:          12 * time.Hour,
	})
}
