package models

import (
	"time"

	"gorm.io/datatypes"
)

// UnknownPersonName is the label given to detections that could not be
// matched against the registration directory.
const UnknownPersonName = "Unknown"

// DefaultSessionID is used when a caller supplies no session token.
const DefaultSessionID = "default"

// Identity represents a registered person in the directory. Identities are
// soft-deactivated via Active, never hard-deleted, so that historical events
// keep a valid person reference.
type Identity struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"uniqueIndex;not null" json:"name"`
	Role         string         `json:"role,omitempty"`
	Department   string         `json:"department,omitempty"`
	Encoding     datatypes.JSON `gorm:"type:json" json:"-"` // opaque feature vector, passed through to the recognizer
	Active       bool           `gorm:"index" json:"active"`
	RegisteredAt time.Time      `gorm:"index" json:"registeredAt"`
	CreatedAt    time.Time      `json:"-"`
	UpdatedAt    time.Time      `json:"-"`
}

// RecognitionEvent is a persisted, immutable record of a counted detection.
// Rows are append-only; there is deliberately no uniqueness constraint on
// (SessionID, PersonID) — dedup is the decision engine's job, not the store's.
type RecognitionEvent struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	SessionID    string         `gorm:"index" json:"sessionId"`
	PersonID     *uint          `gorm:"index" json:"personId"`
	PersonName   string         `json:"personName"`
	Confidence   float64        `json:"confidence"` // percentage, 0-100
	IsRecognized bool           `gorm:"index" json:"isRecognized"`
	BBox         datatypes.JSON `gorm:"type:json" json:"bbox,omitempty"`
	DetectedAt   time.Time      `gorm:"index" json:"detectedAt"`
	CreatedAt    time.Time      `json:"-"`
}

// Detection is one ephemeral per-frame candidate from the external
// recognizer, annotated by the decision engine. It is never persisted as-is.
type Detection struct {
	BBox           []float64 `json:"bbox"`
	Name           string    `json:"name"`
	PersonID       *uint     `json:"personId"`
	Confidence     float64   `json:"confidence"` // percentage, 0-100
	IsRecognized   bool      `json:"isRecognized"`
	AlreadyCounted bool      `json:"alreadyCounted,omitempty"`
}

// Statistics holds the derived metrics computed from the event log.
type Statistics struct {
	TotalDetections   int64 `json:"totalDetections"`
	RecognizedFaces   int64 `json:"recognizedFaces"`
	UnknownFaces      int64 `json:"unknownFaces"`
	AverageConfidence int   `json:"averageConfidence"` // integer percentage, 0 when empty
	TodayDetections   int64 `json:"todayDetections"`
	KnownIdentities   int64 `json:"knownIdentities"`
}
