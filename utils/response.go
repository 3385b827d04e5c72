package utils

import "github.com/gin-gonic/gin"

func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

func RespondData(c *gin.Context, status int, msg string, data any) {
	body := gin.H{
		"success": true,
		"data":    data,
	}
	if msg != "" {
		body["message"] = msg
	}
	c.JSON(status, body)
}
