package common

import "github.com/gin-gonic/gin"

// OK writes data as the JSON body with the given status.
func OK(c *gin.Context, httpStatus int, data any) {
	c.JSON(httpStatus, data)
}

// Fail writes an {"error": msg} body and aborts the handler chain.
func Fail(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{"error": msg})
}
