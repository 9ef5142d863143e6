// Package engine implements the per-frame recognition decision: which
// detector candidates constitute a new, countable sighting and which are
// repeats or unknowns.
package engine

import (
	"encoding/json"
	"errors"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/core/session"
	"facetrack-go/internal/db/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Engine classifies detection candidates against the session dedup store and
// appends recognition events for countable sightings.
type Engine struct {
	sessions *session.Store
	events   repository.EventStore
}

// New creates a decision engine on the given session store and event log.
func New(sessions *session.Store, events repository.EventStore) *Engine {
	return &Engine{
		sessions: sessions,
		events:   events,
	}
}

// Result is the outcome of one processed frame.
type Result struct {
	// Detections holds every candidate, annotated in detector-response order.
	Detections []models.Detection
	// Logged holds the events appended for this frame, for fan-out to the
	// SSE hub and the MQTT publisher.
	Logged []models.RecognitionEvent
}

// ProcessBatch classifies all candidates of one detector response as a single
// logical batch. Candidates are expected with confidence already normalized
// to a percentage. Classification depends only on read state; a failed append
// for one candidate does not change the decision for the others. Append
// failures are joined into the returned error while the full annotated batch
// is still returned.
func (e *Engine) ProcessBatch(sessionID string, candidates []models.Detection) (Result, error) {
	if sessionID == "" {
		sessionID = models.DefaultSessionID
	}

	result := Result{
		Detections: make([]models.Detection, 0, len(candidates)),
	}
	var appendErrs []error
	now := time.Now()

	for _, d := range candidates {
		if d.PersonID != nil {
			d.IsRecognized = true
			d.AlreadyCounted = e.sessions.CheckAndMark(sessionID, *d.PersonID)
			if d.AlreadyCounted {
				log.Debugf("Person %d already counted in session '%s', display only", *d.PersonID, sessionID)
				result.Detections = append(result.Detections, d)
				continue
			}

			event := models.RecognitionEvent{
				SessionID:    sessionID,
				PersonID:     d.PersonID,
				PersonName:   d.Name,
				Confidence:   d.Confidence,
				IsRecognized: true,
				BBox:         marshalBBox(d.BBox),
				DetectedAt:   now,
			}
			if err := e.events.Append(&event); err != nil {
				log.WithError(err).Errorf("Failed to append recognition event for person %d in session '%s'", *d.PersonID, sessionID)
				appendErrs = append(appendErrs, err)
			} else {
				log.Infof("New sighting of '%s' (person %d) in session '%s', confidence %.1f%%", d.Name, *d.PersonID, sessionID, d.Confidence)
				result.Logged = append(result.Logged, event)
			}
			result.Detections = append(result.Detections, d)
			continue
		}

		// Unknown faces carry no stable identity key, so there is nothing to
		// deduplicate against: every unknown detection is logged.
		d.IsRecognized = false
		if d.Name == "" {
			d.Name = models.UnknownPersonName
		}
		event := models.RecognitionEvent{
			SessionID:    sessionID,
			PersonName:   models.UnknownPersonName,
			Confidence:   d.Confidence,
			IsRecognized: false,
			BBox:         marshalBBox(d.BBox),
			DetectedAt:   now,
		}
		if err := e.events.Append(&event); err != nil {
			log.WithError(err).Errorf("Failed to append unknown-face event in session '%s'", sessionID)
			appendErrs = append(appendErrs, err)
		} else {
			result.Logged = append(result.Logged, event)
		}
		result.Detections = append(result.Detections, d)
	}

	return result, errors.Join(appendErrs...)
}

// ResetSession clears the dedup state for the session; previously counted
// persons become countable again. Idempotent.
func (e *Engine) ResetSession(sessionID string) {
	if sessionID == "" {
		sessionID = models.DefaultSessionID
	}
	e.sessions.Reset(sessionID)
	log.Infof("Recognition session '%s' reset", sessionID)
}

func marshalBBox(bbox []float64) datatypes.JSON {
	if len(bbox) == 0 {
		return nil
	}
	data, err := json.Marshal(bbox)
	if err != nil {
		log.Warnf("Failed to marshal bounding box: %v", err)
		return nil
	}
	return datatypes.JSON(data)
}
