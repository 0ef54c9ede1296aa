package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/landplots/backend/internal/infrastructure/config"
	"github.com/landplots/backend/internal/infrastructure/logger"
)

// RequestIDHeader is the header carrying the request correlation ID
const RequestIDHeader = "X-Request-ID"

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Origin", "Content-Type", "Accept", "Cache-Control", RequestIDHeader}
	corsExposeHeaders  = []string{"Content-Length", "Content-Disposition", RequestIDHeader}
)

// CORSConfigFrom builds a cors.Config from application settings.
// An empty origin list only admits requests whose Origin matches the Host.
func CORSConfigFrom(cfg config.CORSConfig) cors.Config {
	out := cors.Config{
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    corsExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	if len(out.AllowMethods) == 0 {
		out.AllowMethods = defaultCORSMethods
	}
	if len(out.AllowHeaders) == 0 {
		out.AllowHeaders = defaultCORSHeaders
	}
	if out.MaxAge <= 0 {
		out.MaxAge = 12 * time.Hour
	}

	for _, o := range cfg.AllowOrigins {
		if strings.TrimSpace(o) == "*" {
			out.AllowAllOrigins = true
			// Browsers reject credentials with a wildcard origin
			out.AllowCredentials = false
			return out
		}
	}
	if len(cfg.AllowOrigins) > 0 {
		out.AllowOrigins = cfg.AllowOrigins
		return out
	}
	out.AllowOriginWithContextFunc = func(c *gin.Context, origin string) bool {
		return originMatchesHost(origin, c.Request.Host)
	}
	return out
}

// CORS returns the cross-origin middleware for the browser frontend
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(CORSConfigFrom(cfg))
}

func originMatchesHost(origin, host string) bool {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(host) == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := u.Hostname()
	if originHost == "" {
		return false
	}
	hostName := strings.TrimSpace(host)
	if parsed, _, err := net.SplitHostPort(hostName); err == nil {
		hostName = parsed
	}
	return strings.EqualFold(originHost, hostName)
}

// RequestID adds a unique request ID to each request; it must run before logger.GinMiddleware
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = generateRequestID()
		}
		c.Set(logger.GinRequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Next()
	}
}

func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// SecurityConfig holds configuration for security headers
type SecurityConfig struct {
	HSTSEnabled bool
	HSTSMaxAge  int // in seconds

	// The API only serves JSON and file downloads
	CSPDirective string
}

// DefaultSecurityConfig returns secure default settings; HSTS is off until TLS terminates here
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:   31536000,
		CSPDirective: "default-src 'none'; frame-ancestors 'none'",
	}
}

// Secure adds security headers to responses using default configuration
func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig adds security headers to responses with custom configuration
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	var hsts string
	if cfg.HSTSEnabled {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge)
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if cfg.CSPDirective != "" {
			h.Set("Content-Security-Policy", cfg.CSPDirective)
		}
		if hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}
