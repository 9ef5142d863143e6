package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"facetrack-go/internal/core/models"

	"gorm.io/gorm"
)

// ErrIdentityNotFound is returned when an identity lookup finds no row.
var ErrIdentityNotFound = errors.New("identity not found")

// EventStore is the append-only log of recognition events plus the read
// primitives the stats aggregator and the history endpoints need.
type EventStore interface {
	// Append persists the event, assigning an identifier and a server-side
	// detection timestamp when the caller supplied none. It never rejects
	// duplicate content.
	Append(event *models.RecognitionEvent) error
	// Recent returns events ordered newest-first, bounded by limit, with ties
	// on the timestamp broken by identifier.
	Recent(limit int) ([]models.RecognitionEvent, error)
	// CountSince counts events detected at or after the given instant.
	CountSince(since time.Time) (int64, error)
	// CountAll counts every logged event.
	CountAll() (int64, error)
	// CountRecognized counts events matching the given isRecognized flag.
	CountRecognized(recognized bool) (int64, error)
	// AverageConfidence returns the mean confidence over all events, and 0
	// with no error when the log is empty.
	AverageConfidence() (float64, error)
}

// IdentityStore is the registration directory consumed by the recognizer
// client and the directory endpoints.
type IdentityStore interface {
	GetIdentities(activeOnly bool) ([]models.Identity, error)
	GetIdentityByID(id uint) (*models.Identity, error)
	SaveIdentity(identity *models.Identity) error
	// DeactivateIdentity soft-deactivates an identity; it is never hard-deleted.
	DeactivateIdentity(id uint) error
	CountActive() (int64, error)
}

// GormRepository implements EventStore and IdentityStore on a GORM handle.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository bound to the given database handle.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// --- EventStore ---

func (r *GormRepository) Append(event *models.RecognitionEvent) error {
	if event.DetectedAt.IsZero() {
		event.DetectedAt = time.Now()
	}
	if event.SessionID == "" {
		event.SessionID = models.DefaultSessionID
	}
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to append recognition event: %w", err)
	}
	return nil
}

func (r *GormRepository) Recent(limit int) ([]models.RecognitionEvent, error) {
	var events []models.RecognitionEvent
	err := r.db.
		Order("detected_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	return events, nil
}

func (r *GormRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.RecognitionEvent{}).
		Where("detected_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count events since %s: %w", since, err)
	}
	return count, nil
}

func (r *GormRepository) CountAll() (int64, error) {
	var count int64
	if err := r.db.Model(&models.RecognitionEvent{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *GormRepository) CountRecognized(recognized bool) (int64, error) {
	var count int64
	err := r.db.Model(&models.RecognitionEvent{}).
		Where("is_recognized = ?", recognized).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count events by recognition flag: %w", err)
	}
	return count, nil
}

func (r *GormRepository) AverageConfidence() (float64, error) {
	var avg sql.NullFloat64
	err := r.db.Model(&models.RecognitionEvent{}).
		Select("AVG(confidence)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to average confidence: %w", err)
	}
	if !avg.Valid {
		// Empty log: defined as 0, not an error.
		return 0, nil
	}
	return avg.Float64, nil
}

// --- IdentityStore ---

func (r *GormRepository) GetIdentities(activeOnly bool) ([]models.Identity, error) {
	var identities []models.Identity
	q := r.db.Order("active DESC, name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&identities).Error; err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	return identities, nil
}

func (r *GormRepository) GetIdentityByID(id uint) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.First(&identity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity %d: %w", id, err)
	}
	return &identity, nil
}

func (r *GormRepository) SaveIdentity(identity *models.Identity) error {
	if identity.RegisteredAt.IsZero() {
		identity.RegisteredAt = time.Now()
	}
	if err := r.db.Save(identity).Error; err != nil {
		return fmt.Errorf("failed to save identity '%s': %w", identity.Name, err)
	}
	return nil
}

func (r *GormRepository) DeactivateIdentity(id uint) error {
	result := r.db.Model(&models.Identity{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate identity %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (r *GormRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.Identity{}).
		Where("active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active identities: %w", err)
	}
	return count, nil
}
