package handlers

import "github.com/gin-gonic/gin"

func requestIDFromContext(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	return c.Request.Header.Get("X-Request-Id")
}
