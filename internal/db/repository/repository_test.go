package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/db"

	"gorm.io/datatypes"
)

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return NewGormRepository(conn)
}

func uintPtr(v uint) *uint { return &v }

func TestAppendDefaults(t *testing.T) {
	repo := newTestRepo(t)

	event := models.RecognitionEvent{
		PersonName:   "Alice",
		PersonID:     uintPtr(1),
		Confidence:   91.2,
		IsRecognized: true,
	}
	if err := repo.Append(&event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if event.ID == 0 {
		t.Error("expected Append to assign an ID")
	}
	if event.DetectedAt.IsZero() {
		t.Error("expected Append to assign a detection timestamp")
	}
	if event.SessionID != models.DefaultSessionID {
		t.Errorf("expected default session ID, got %q", event.SessionID)
	}
}

func TestAppendAcceptsDuplicates(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		event := models.RecognitionEvent{
			SessionID:    "s1",
			PersonID:     uintPtr(1),
			PersonName:   "Alice",
			Confidence:   90,
			IsRecognized: true,
		}
		if err := repo.Append(&event); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	count, err := repo.CountAll()
	if err != nil {
		t.Fatalf("CountAll failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 events, got %d", count)
	}
}

func TestRecentOrdering(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Now().Add(-time.Hour)
	names := []string{"first", "second", "third"}
	for i, name := range names {
		event := models.RecognitionEvent{
			SessionID:    "s1",
			PersonName:   name,
			IsRecognized: true,
			DetectedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Append(&event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := repo.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].PersonName != "third" || events[1].PersonName != "second" {
		t.Errorf("expected newest-first ordering, got %q then %q",
			events[0].PersonName, events[1].PersonName)
	}
}

func TestRecentBreaksTimestampTiesByID(t *testing.T) {
	repo := newTestRepo(t)

	at := time.Now().Truncate(time.Second)
	for _, name := range []string{"a", "b"} {
		event := models.RecognitionEvent{
			SessionID:  "s1",
			PersonName: name,
			DetectedAt: at,
		}
		if err := repo.Append(&event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if events[0].PersonName != "b" {
		t.Errorf("expected the later insert first on a timestamp tie, got %q", events[0].PersonName)
	}
}

func TestCounters(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now()
	rows := []models.RecognitionEvent{
		{SessionID: "s1", PersonName: "Alice", PersonID: uintPtr(1), Confidence: 90, IsRecognized: true, DetectedAt: now},
		{SessionID: "s1", PersonName: models.UnknownPersonName, Confidence: 40, IsRecognized: false, DetectedAt: now},
		{SessionID: "s2", PersonName: "Bob", PersonID: uintPtr(2), Confidence: 80, IsRecognized: true, DetectedAt: now.Add(-48 * time.Hour)},
	}
	for i := range rows {
		if err := repo.Append(&rows[i]); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if n, _ := repo.CountAll(); n != 3 {
		t.Errorf("CountAll = %d, want 3", n)
	}
	if n, _ := repo.CountRecognized(true); n != 2 {
		t.Errorf("CountRecognized(true) = %d, want 2", n)
	}
	if n, _ := repo.CountRecognized(false); n != 1 {
		t.Errorf("CountRecognized(false) = %d, want 1", n)
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := repo.CountSince(midnight)
	if err != nil {
		t.Fatalf("CountSince failed: %v", err)
	}
	if today != 2 {
		t.Errorf("CountSince(midnight) = %d, want 2", today)
	}

	avg, err := repo.AverageConfidence()
	if err != nil {
		t.Fatalf("AverageConfidence failed: %v", err)
	}
	if avg != 70 {
		t.Errorf("AverageConfidence = %v, want 70", avg)
	}
}

func TestAverageConfidenceEmptyLog(t *testing.T) {
	repo := newTestRepo(t)

	avg, err := repo.AverageConfidence()
	if err != nil {
		t.Fatalf("AverageConfidence on empty log errored: %v", err)
	}
	if avg != 0 {
		t.Errorf("AverageConfidence on empty log = %v, want 0", avg)
	}
}

func TestIdentityLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	identity := models.Identity{
		Name:     "Alice",
		Role:     "Engineer",
		Encoding: datatypes.JSON("[0.1,0.2]"),
		Active:   true,
	}
	if err := repo.SaveIdentity(&identity); err != nil {
		t.Fatalf("SaveIdentity failed: %v", err)
	}
	if identity.ID == 0 {
		t.Fatal("expected SaveIdentity to assign an ID")
	}
	if identity.RegisteredAt.IsZero() {
		t.Error("expected SaveIdentity to default RegisteredAt")
	}

	got, err := repo.GetIdentityByID(identity.ID)
	if err != nil {
		t.Fatalf("GetIdentityByID failed: %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("GetIdentityByID returned %q, want Alice", got.Name)
	}

	if n, _ := repo.CountActive(); n != 1 {
		t.Errorf("CountActive = %d, want 1", n)
	}

	if err := repo.DeactivateIdentity(identity.ID); err != nil {
		t.Fatalf("DeactivateIdentity failed: %v", err)
	}
	if n, _ := repo.CountActive(); n != 0 {
		t.Errorf("CountActive after deactivation = %d, want 0", n)
	}

	// The row survives deactivation.
	got, err = repo.GetIdentityByID(identity.ID)
	if err != nil {
		t.Fatalf("GetIdentityByID after deactivation failed: %v", err)
	}
	if got.Active {
		t.Error("expected identity to be inactive")
	}
}

func TestDeactivateMissingIdentity(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.DeactivateIdentity(12345)
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestGetIdentitiesFiltersAndOrders(t *testing.T) {
	repo := newTestRepo(t)

	for _, row := range []models.Identity{
		{Name: "Zoe", Encoding: datatypes.JSON("[]"), Active: true},
		{Name: "Bob", Encoding: datatypes.JSON("[]"), Active: false},
		{Name: "Amy", Encoding: datatypes.JSON("[]"), Active: true},
	} {
		r := row
		if err := repo.SaveIdentity(&r); err != nil {
			t.Fatalf("SaveIdentity failed: %v", err)
		}
	}

	active, err := repo.GetIdentities(true)
	if err != nil {
		t.Fatalf("GetIdentities(true) failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active identities, got %d", len(active))
	}
	if active[0].Name != "Amy" || active[1].Name != "Zoe" {
		t.Errorf("expected name ordering Amy, Zoe; got %q, %q", active[0].Name, active[1].Name)
	}

	all, err := repo.GetIdentities(false)
	if err != nil {
		t.Fatalf("GetIdentities(false) failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 identities, got %d", len(all))
	}
	if all[2].Name != "Bob" {
		t.Errorf("expected inactive identities last, got %q", all[2].Name)
	}
}

func TestSaveIdentityUniqueName(t *testing.T) {
	repo := newTestRepo(t)

	first := models.Identity{Name: "Alice", Encoding: datatypes.JSON("[]"), Active: true}
	if err := repo.SaveIdentity(&first); err != nil {
		t.Fatalf("SaveIdentity failed: %v", err)
	}

	dup := models.Identity{Name: "Alice", Encoding: datatypes.JSON("[]"), Active: true}
	if err := repo.SaveIdentity(&dup); err == nil {
		t.Error("expected a uniqueness violation for a duplicate name")
	}
}
