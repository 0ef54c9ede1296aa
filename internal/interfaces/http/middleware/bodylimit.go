package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies larger than maxBytes. Requests without a
// Content-Length are cut off while streaming; the handler then sees a
// *http.MaxBytesError from binding. maxBytes <= 0 disables the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return passthrough
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				c.GetString(logger.GinRequestIDKey),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
