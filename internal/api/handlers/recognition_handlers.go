package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/api/middleware"
	"facetrack-go/internal/assistant"
	"facetrack-go/internal/core/engine"
	"facetrack-go/internal/core/models"
	"facetrack-go/internal/core/session"
	"facetrack-go/internal/core/stats"
	"facetrack-go/internal/db/repository"
	"facetrack-go/internal/metrics"
	"facetrack-go/internal/mqtt"
	"facetrack-go/internal/server/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// FaceRecognizer is the external detector/recognizer collaborator. Tests
// inject a deterministic stub implementing this interface.
type FaceRecognizer interface {
	Recognize(ctx context.Context, imageData string, known []models.Identity) ([]models.Detection, error)
	Ping(ctx context.Context) bool
}

// RecognitionHandler serves the recognition, session and statistics endpoints.
type RecognitionHandler struct {
	cfg         *config.Config
	engine      *engine.Engine
	sessions    *session.Store
	events      repository.EventStore
	identities  repository.IdentityStore
	aggregator  *stats.Aggregator
	recognizer  FaceRecognizer
	interpreter *assistant.Interpreter
	sseHub      *sse.Hub
	publisher   *mqtt.Publisher
}

// NewRecognitionHandler creates the handler with its dependencies.
func NewRecognitionHandler(
	cfg *config.Config,
	eng *engine.Engine,
	sessions *session.Store,
	events repository.EventStore,
	identities repository.IdentityStore,
	aggregator *stats.Aggregator,
	recognizer FaceRecognizer,
	sseHub *sse.Hub,
	publisher *mqtt.Publisher,
) *RecognitionHandler {
	return &RecognitionHandler{
		cfg:         cfg,
		engine:      eng,
		sessions:    sessions,
		events:      events,
		identities:  identities,
		aggregator:  aggregator,
		recognizer:  recognizer,
		interpreter: assistant.NewInterpreter(),
		sseHub:      sseHub,
		publisher:   publisher,
	}
}

// RegisterRoutes registers the recognition endpoints on the router group.
func (h *RecognitionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/recognize", h.Recognize)
	router.POST("/reset-recognition-session", h.ResetSession)
	router.GET("/recognition-stats", h.RecognitionStats)
	router.GET("/recognition-events/recent", h.RecentEvents)
	router.POST("/chat-query", h.ChatQuery)
	router.GET("/events/stream", h.EventStream)
}

type recognizeRequest struct {
	ImageData string `json:"imageData"`
	SessionID string `json:"sessionId"`
}

// Recognize processes one camera frame: it forwards the image and the active
// directory to the recognizer, classifies the candidates against the session
// dedup state, logs new sightings and returns the annotated detections.
// Collaborator failures degrade to an empty, well-formed result.
func (h *RecognitionHandler) Recognize(c *gin.Context) {
	var req recognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ImageData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageData is required"})
		return
	}

	sessionID := h.resolveSessionID(c, req.SessionID)
	startTime := time.Now()
	metrics.FramesProcessed.Inc()

	// The directory read is best-effort: with no known faces the recognizer
	// still detects, it just cannot match.
	known, err := h.identities.GetIdentities(true)
	if err != nil {
		log.WithError(err).Error("Failed to load identity directory for recognition")
		known = nil
	}

	candidates, err := h.recognizer.Recognize(c.Request.Context(), req.ImageData, known)
	if err != nil {
		// Recognition is best-effort per frame: degrade to an empty frame
		// instead of propagating the collaborator failure.
		log.WithError(err).Warn("Recognizer unavailable, returning empty detection list")
		metrics.RecognizerFailures.Inc()
		candidates = nil
	}

	result, appendErr := h.engine.ProcessBatch(sessionID, candidates)
	if appendErr != nil {
		// Surfaced for durability visibility, but the per-frame results are
		// already computed and still returned.
		log.WithError(appendErr).Error("One or more recognition events could not be persisted")
		metrics.EventAppendFailures.Inc()
	}

	for _, d := range result.Detections {
		switch {
		case !d.IsRecognized:
			metrics.Detections.WithLabelValues(metrics.OutcomeUnknown).Inc()
		case d.AlreadyCounted:
			metrics.Detections.WithLabelValues(metrics.OutcomeRepeat).Inc()
		default:
			metrics.Detections.WithLabelValues(metrics.OutcomeNew).Inc()
		}
	}
	metrics.ActiveSessions.Set(float64(h.sessions.Len()))

	for _, event := range result.Logged {
		h.sseHub.BroadcastEvent(event)
		h.publisher.PublishEvent(event)
	}

	c.JSON(http.StatusOK, gin.H{
		"detections":      result.Detections,
		"count":           len(result.Detections),
		"processing_time": fmt.Sprintf("%dms", time.Since(startTime).Milliseconds()),
	})
}

type resetRequest struct {
	SessionID string `json:"sessionId"`
}

// ResetSession clears the dedup state for one session. Always succeeds and
// is idempotent; resetting an unknown session is a no-op.
func (h *RecognitionHandler) ResetSession(c *gin.Context) {
	var req resetRequest
	// An empty or absent body means "reset my default session".
	_ = c.ShouldBindJSON(&req)

	sessionID := h.resolveSessionID(c, req.SessionID)
	h.engine.ResetSession(sessionID)
	metrics.ActiveSessions.Set(float64(h.sessions.Len()))

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RecognitionStats returns the aggregate metrics recomputed from the event log.
func (h *RecognitionHandler) RecognitionStats(c *gin.Context) {
	statistics, err := h.aggregator.Compute()
	if err != nil {
		log.WithError(err).Error("Failed to compute recognition statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute statistics"})
		return
	}
	c.JSON(http.StatusOK, statistics)
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

// RecentEvents returns the newest recognition events, newest first.
func (h *RecognitionHandler) RecentEvents(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	events, err := h.events.Recent(limit)
	if err != nil {
		log.WithError(err).Error("Failed to query recent recognition events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query events"})
		return
	}
	if events == nil {
		events = []models.RecognitionEvent{}
	}
	c.JSON(http.StatusOK, events)
}

type chatRequest struct {
	Message string `json:"message"`
}

// ChatQuery answers a dashboard question over a read-only snapshot of the
// current statistics, recent events and the directory.
func (h *RecognitionHandler) ChatQuery(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	statistics, err := h.aggregator.Compute()
	if err != nil {
		log.WithError(err).Error("Failed to compute statistics for chat query")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer query"})
		return
	}
	recent, err := h.events.Recent(50)
	if err != nil {
		log.WithError(err).Warn("Failed to load recent events for chat query")
		recent = nil
	}
	identities, err := h.identities.GetIdentities(false)
	if err != nil {
		log.WithError(err).Warn("Failed to load identities for chat query")
		identities = nil
	}

	answer := h.interpreter.Answer(req.Message, assistant.Snapshot{
		Stats:      statistics,
		Recent:     recent,
		Identities: identities,
	})
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// EventStream streams newly logged recognition events to the dashboard via
// server-sent events.
func (h *RecognitionHandler) EventStream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	client := make(sse.Client, 8)
	h.sseHub.Register(client)
	defer h.sseHub.Unregister(client)

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("recognition", string(message))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// resolveSessionID applies the session fallback chain: explicit body value,
// then the browser's cookie token, then the default sentinel.
func (h *RecognitionHandler) resolveSessionID(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if token := middleware.TokenFromContext(c); token != "" {
		return token
	}
	return models.DefaultSessionID
}
