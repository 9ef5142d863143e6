package handlers

import (
	"net/http"

	"facetrack-go/internal/core/session"
	"facetrack-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// SystemHandler serves health and system status endpoints.
type SystemHandler struct {
	sessions   *session.Store
	recognizer FaceRecognizer
}

// NewSystemHandler creates the system handler.
func NewSystemHandler(sessions *session.Store, recognizer FaceRecognizer) *SystemHandler {
	return &SystemHandler{
		sessions:   sessions,
		recognizer: recognizer,
	}
}

// RegisterRoutes registers the system endpoints on the router group.
func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
	router.GET("/system/status", h.SystemStatus)
}

// Health is the liveness endpoint.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "facetrack",
	})
}

// SystemStatus reports process statistics, live session count and whether
// the recognizer collaborator is reachable.
func (h *SystemHandler) SystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"system":               utils.CollectSystemStats(),
		"active_sessions":      h.sessions.Len(),
		"recognizer_reachable": h.recognizer.Ping(c.Request.Context()),
	})
}
