package handlers

import (
	"net/http"

	"campuspark/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest backend health snapshot.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"message":  "Hi, I'm the campus parking assistant",
		"backends": utils.GetHealthStatus(),
	})
}
