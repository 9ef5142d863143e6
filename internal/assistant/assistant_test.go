package assistant

import (
	"strings"
	"testing"
	"time"

	"facetrack-go/internal/core/models"
)

func snapshot() Snapshot {
	now := time.Now()
	alice := uint(1)
	return Snapshot{
		Stats: models.Statistics{
			TotalDetections:   12,
			RecognizedFaces:   9,
			UnknownFaces:      3,
			AverageConfidence: 87,
			TodayDetections:   5,
			KnownIdentities:   4,
		},
		Recent: []models.RecognitionEvent{
			{PersonID: &alice, PersonName: "Alice", Confidence: 92, IsRecognized: true, DetectedAt: now.Add(-5 * time.Minute)},
			{PersonName: models.UnknownPersonName, Confidence: 40, IsRecognized: false, DetectedAt: now.Add(-10 * time.Minute)},
			{PersonID: &alice, PersonName: "Alice", Confidence: 88, IsRecognized: true, DetectedAt: now.Add(-time.Hour)},
		},
		Identities: []models.Identity{
			{ID: 1, Name: "Alice", Active: true, RegisteredAt: now.Add(-48 * time.Hour)},
			{ID: 2, Name: "Bob", Active: true, RegisteredAt: now.Add(-24 * time.Hour)},
			{ID: 3, Name: "Carol", Active: false, RegisteredAt: now.Add(-time.Hour)},
		},
	}
}

func TestAnswer(t *testing.T) {
	interp := NewInterpreter()
	snap := snapshot()

	cases := []struct {
		question string
		want     string
	}{
		{"how many detections today?", "5"},
		{"how many people are registered?", "4"},
		{"who was the last person registered?", "Bob"},
		{"how many unknown faces?", "3 of 12"},
		{"what is the average confidence?", "87%"},
		{"when was Alice last seen?", "Alice"},
		{"who was seen recently?", "Alice"},
		{"total detections?", "12"},
	}
	for _, tc := range cases {
		got := interp.Answer(tc.question, snap)
		if !strings.Contains(got, tc.want) {
			t.Errorf("Answer(%q) = %q, want it to contain %q", tc.question, got, tc.want)
		}
	}
}

func TestAnswerLastRegisteredSkipsInactive(t *testing.T) {
	interp := NewInterpreter()
	got := interp.Answer("who was last registered?", snapshot())
	if strings.Contains(got, "Carol") {
		t.Errorf("expected inactive identities to be skipped, got %q", got)
	}
}

func TestAnswerLastSeenUsesNewestEvent(t *testing.T) {
	interp := NewInterpreter()
	got := interp.Answer("when was alice last seen?", snapshot())
	if !strings.Contains(got, "92%") {
		t.Errorf("expected the newest sighting's confidence, got %q", got)
	}
}

func TestAnswerUnknownPersonAndEmptyQuestion(t *testing.T) {
	interp := NewInterpreter()
	snap := snapshot()

	got := interp.Answer("when was Mallory last seen?", snap)
	if !strings.Contains(got, "couldn't tell") {
		t.Errorf("expected an unknown-person reply, got %q", got)
	}

	help := interp.Answer("", snap)
	if !strings.Contains(help, "Try asking") {
		t.Errorf("expected the usage hint, got %q", help)
	}
	if interp.Answer("zzz gibberish", snap) != help {
		t.Error("expected the usage hint for an unmatched question")
	}
}

func TestAnswerEmptySnapshot(t *testing.T) {
	interp := NewInterpreter()
	var empty Snapshot

	got := interp.Answer("who was seen recently?", empty)
	if !strings.Contains(got, "No one") {
		t.Errorf("expected a no-activity reply, got %q", got)
	}
	got = interp.Answer("who was last registered?", empty)
	if !strings.Contains(got, "No one") {
		t.Errorf("expected a no-registrations reply, got %q", got)
	}
}
