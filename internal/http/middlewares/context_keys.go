package middlewares

import "github.com/gin-gonic/gin"

const (
	CtxRequestID = "request_id"
	// CtxUserID is the target user of the request, set by handlers so the
	// access log can carry it.
	CtxUserID = "user_id"
)

func RequestIDFrom(c *gin.Context) string {
	v, ok := c.Get(CtxRequestID)
	if !ok {
		return ""
	}

	s, _ := v.(string)
	return s
}

// abortError writes the same error envelope the handlers use.
func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": RequestIDFrom(c),
		},
	})
}
