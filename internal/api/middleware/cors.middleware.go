package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/ga4-insights/internal/config"
)

// CORSMiddleware applies the configured cross-origin policy and answers
// preflight requests.
func CORSMiddleware(corsConfig config.CORSConfig) gin.HandlerFunc {
	methods := "GET, POST, OPTIONS"
	if len(corsConfig.AllowedMethods) > 0 {
		methods = strings.Join(corsConfig.AllowedMethods, ", ")
	}
	headers := "Origin, Content-Type, Accept, " + RequestIDHeader
	if len(corsConfig.AllowedHeaders) > 0 {
		headers = strings.Join(corsConfig.AllowedHeaders, ", ")
	}
	exposed := RequestIDHeader
	if len(corsConfig.ExposedHeaders) > 0 {
		exposed = strings.Join(corsConfig.ExposedHeaders, ", ")
	}
	maxAge := "3600"
	if corsConfig.MaxAge > 0 {
		maxAge = strconv.Itoa(corsConfig.MaxAge)
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, corsConfig.AllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Expose-Headers", exposed)
		c.Header("Access-Control-Max-Age", maxAge)
		if corsConfig.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isOriginAllowed checks origin against the allow-list. "*" allows any
// origin and "*.example.com" allows subdomains.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	}

	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", origin == allowed:
			return true
		case strings.HasPrefix(allowed, "*."):
			if strings.HasSuffix(origin, allowed[1:]) {
				return true
			}
		}
	}
	return false
}
