package cleanup

import (
	"time"

	"facetrack-go/internal/core/session"
	"facetrack-go/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// Service evicts recognition sessions that have been idle longer than the
// configured TTL. The dedup state is a presentation-layer cache, so eviction
// is equivalent to an implicit session reset; the persisted event log is
// never touched.
type Service struct {
	sessions      *session.Store
	idleTTL       time.Duration
	checkInterval time.Duration
	stopChan      chan struct{}
}

// NewService creates a new cleanup service. Returns nil when eviction is
// disabled (idleTTL <= 0).
func NewService(sessions *session.Store, idleTTL, checkInterval time.Duration) *Service {
	if idleTTL <= 0 {
		log.Info("Session eviction disabled (idle_ttl_minutes <= 0).")
		return nil
	}
	if sessions == nil {
		log.Error("Cannot initialize cleanup service: session store is nil")
		return nil
	}
	log.Infof("Initializing cleanup service: IdleTTL=%s, CheckInterval=%s", idleTTL, checkInterval)
	return &Service{
		sessions:      sessions,
		idleTTL:       idleTTL,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically evicts idle
// sessions.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return
	}
	log.Info("Starting background session eviction routine...")

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunEvictionCycle()
			case <-s.stopChan:
				log.Info("Stopping background session eviction routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	close(s.stopChan)
}

// RunEvictionCycle evicts all sessions idle past the TTL once.
func (s *Service) RunEvictionCycle() {
	cutoff := time.Now().Add(-s.idleTTL)
	evicted := s.sessions.EvictIdle(cutoff)
	if evicted > 0 {
		log.Infof("Evicted %d idle recognition session(s), %d remaining", evicted, s.sessions.Len())
	}
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
}
