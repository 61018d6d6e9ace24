package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/imobgestao/locacoes/backend/config"
)

// CORS allows the web frontend to call the API. With no configured origins
// every origin is allowed.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AddAllowMethods("PATCH")
	corsConfig.AddAllowHeaders("Authorization", RequestIDHeader)
	corsConfig.AddExposeHeaders(RequestIDHeader, "Content-Disposition", "Retry-After")
	corsConfig.MaxAge = 12 * time.Hour

	return cors.New(corsConfig)
}
