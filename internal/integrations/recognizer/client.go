// Package recognizer talks to the external face detector/recognizer service.
// The service is trusted for content shape once parsed, but not for
// availability: callers substitute an empty detection list when it is down,
// slow or returns malformed data.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"facetrack-go/config"
	"facetrack-go/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// knownFace is one registry entry sent to the recognizer for matching.
type knownFace struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Encoding json.RawMessage `json:"encoding"`
}

// recognizeRequest is the wire request of the recognizer's /recognize endpoint.
type recognizeRequest struct {
	ImageData  string      `json:"image_data"`
	KnownFaces []knownFace `json:"known_faces"`
}

// wireDetection is one candidate as the recognizer reports it. Confidence may
// arrive as a fraction in [0,1]; it is normalized here, at the boundary.
type wireDetection struct {
	BBox         []float64 `json:"bbox"`
	Name         string    `json:"name"`
	PersonID     *uint     `json:"personId"`
	Confidence   float64   `json:"confidence"`
	IsRecognized bool      `json:"isRecognized"`
}

// recognizeResponse is the wire response of the recognizer's /recognize endpoint.
type recognizeResponse struct {
	Detections     []wireDetection `json:"detections"`
	Count          int             `json:"count"`
	ProcessingTime string          `json:"processing_time"`
	Error          string          `json:"error,omitempty"`
}

// Client handles communication with the recognizer service.
type Client struct {
	cfg        config.RecognizerConfig
	httpClient *http.Client
}

// NewClient creates a recognizer client with the configured request timeout.
func NewClient(cfg config.RecognizerConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NormalizeConfidence converts a recognizer confidence into the canonical
// percentage representation. Values at or below 1.0 are treated as fractions.
// The result is kept within [0,100] and never rounded here; rounding happens
// only at display time.
func NormalizeConfidence(c float64) float64 {
	if c <= 1.0 {
		c = c * 100
	}
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Recognize sends a frame plus the known identity directory to the
// recognizer and returns normalized detection candidates.
func (c *Client) Recognize(ctx context.Context, imageData string, known []models.Identity) ([]models.Detection, error) {
	if !c.cfg.Enabled {
		return nil, fmt.Errorf("recognizer service is not enabled in config")
	}

	reqBody := recognizeRequest{
		ImageData:  imageData,
		KnownFaces: make([]knownFace, 0, len(known)),
	}
	for _, identity := range known {
		reqBody.KnownFaces = append(reqBody.KnownFaces, knownFace{
			ID:       identity.ID,
			Name:     identity.Name,
			Encoding: json.RawMessage(identity.Encoding),
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recognize request: %w", err)
	}

	apiURL, err := url.JoinPath(c.cfg.URL, "/recognize")
	if err != nil {
		return nil, fmt.Errorf("failed to join recognizer URL path: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Warnf("Recognizer request failed after %v: %v", duration, err)
		return nil, fmt.Errorf("failed to send request to recognizer: %w", err)
	}
	defer resp.Body.Close()

	log.Debugf("Recognizer request completed in %v with status: %s", duration, resp.Status)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recognizer response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Warnf("Recognizer returned non-OK status: %s. Body: %s", resp.Status, string(respBody))
		return nil, fmt.Errorf("recognizer request failed with status: %s", resp.Status)
	}

	var recognizeResp recognizeResponse
	if err := json.Unmarshal(respBody, &recognizeResp); err != nil {
		log.Warnf("Failed to decode recognizer JSON response: %v. Body: %s", err, string(respBody))
		return nil, fmt.Errorf("failed to decode recognizer response: %w", err)
	}
	if recognizeResp.Error != "" {
		return nil, fmt.Errorf("recognizer reported error: %s", recognizeResp.Error)
	}

	detections := make([]models.Detection, 0, len(recognizeResp.Detections))
	for _, d := range recognizeResp.Detections {
		name := d.Name
		if d.PersonID == nil && name == "" {
			name = models.UnknownPersonName
		}
		detections = append(detections, models.Detection{
			BBox:         d.BBox,
			Name:         name,
			PersonID:     d.PersonID,
			Confidence:   NormalizeConfidence(d.Confidence),
			IsRecognized: d.PersonID != nil,
		})
	}

	return detections, nil
}

// Ping checks whether the recognizer service is reachable and healthy.
func (c *Client) Ping(ctx context.Context) bool {
	if !c.cfg.Enabled {
		return false
	}

	pingURL, err := url.JoinPath(c.cfg.URL, "/health")
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugf("Recognizer ping failed: %v", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
