package response

import "github.com/gin-gonic/gin"

// OK writes the payload as-is. Handlers return flat documents so clients can
// consume them without unwrapping an envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

// Error writes the uniform failure body {"error": message}.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{"error": message})
}
