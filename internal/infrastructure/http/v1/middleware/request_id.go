package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tradeledger/pkg/logger"
)

// HeaderRequestID carries the request identifier in and out.
const HeaderRequestID = "X-Request-ID"

// RequestID middleware assigns each request an identifier for log
// correlation. An incoming X-Request-ID header is honored.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}
