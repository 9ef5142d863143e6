package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/db/repository"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// IdentityHandler serves the registration directory endpoints.
type IdentityHandler struct {
	identities repository.IdentityStore
}

// NewIdentityHandler creates the directory handler.
func NewIdentityHandler(identities repository.IdentityStore) *IdentityHandler {
	return &IdentityHandler{identities: identities}
}

// RegisterRoutes registers the directory endpoints on the router group.
func (h *IdentityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/identities", h.ListIdentities)
	router.POST("/identities", h.CreateIdentity)
	router.DELETE("/identities/:id", h.DeactivateIdentity)
}

// ListIdentities returns all registered identities, active first.
func (h *IdentityHandler) ListIdentities(c *gin.Context) {
	identities, err := h.identities.GetIdentities(false)
	if err != nil {
		log.WithError(err).Error("Failed to fetch identities")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch identities"})
		return
	}
	if identities == nil {
		identities = []models.Identity{}
	}
	c.JSON(http.StatusOK, identities)
}

type createIdentityRequest struct {
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	Encoding   []float64 `json:"encoding"`
}

// CreateIdentity registers a new person with the encoding produced by the
// recognizer's detect endpoint.
func (h *IdentityHandler) CreateIdentity(c *gin.Context) {
	var req createIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if len(req.Encoding) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "encoding is required"})
		return
	}

	encodingJSON, err := json.Marshal(req.Encoding)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid encoding"})
		return
	}

	identity := models.Identity{
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		Department:   req.Department,
		Encoding:     datatypes.JSON(encodingJSON),
		Active:       true,
		RegisteredAt: time.Now(),
	}
	if err := h.identities.SaveIdentity(&identity); err != nil {
		if strings.Contains(strings.ToUpper(err.Error()), "UNIQUE") {
			c.JSON(http.StatusConflict, gin.H{"error": "an identity with this name already exists"})
			return
		}
		log.WithError(err).Errorf("Failed to register identity '%s'", identity.Name)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register identity"})
		return
	}

	log.Infof("Registered new identity '%s' (ID %d)", identity.Name, identity.ID)
	c.JSON(http.StatusCreated, identity)
}

// DeactivateIdentity soft-deactivates an identity. Historical events keep
// referring to it; the recognizer simply stops receiving its encoding.
func (h *IdentityHandler) DeactivateIdentity(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identity ID"})
		return
	}

	if err := h.identities.DeactivateIdentity(uint(id)); err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
			return
		}
		log.WithError(err).Errorf("Failed to deactivate identity %d", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate identity"})
		return
	}

	log.Infof("Deactivated identity %d", id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
