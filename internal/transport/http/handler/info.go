package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ServiceName = "warranty-register-api"
	apiTitle    = "Warranty Register API"
	apiDesc     = "Register and manage device warranties for external assets."
)

type InfoHandler struct {
	version string
}

func NewInfoHandler(version string) *InfoHandler {
	return &InfoHandler{version: version}
}

// GET /health
func (h *InfoHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName, "version": h.version})
}

// GET /api
func (h *InfoHandler) API(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        apiTitle,
		"version":     h.version,
		"description": apiDesc,
		"health":      "/health",
	})
}

// GET /
func (h *InfoHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, webLoginPath)
}
