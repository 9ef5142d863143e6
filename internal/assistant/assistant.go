// Package assistant answers dashboard questions about recognition activity.
// It is a pure query-interpretation component: it consumes read-only
// snapshots of statistics and events and performs keyword routing only — no
// natural-language understanding and no access to mutable engine state.
package assistant

import (
	"fmt"
	"strings"

	"facetrack-go/internal/core/models"
)

// Snapshot is the read-only view the interpreter works on.
type Snapshot struct {
	Stats      models.Statistics
	Recent     []models.RecognitionEvent
	Identities []models.Identity
}

// Interpreter routes a free-text question to a canned answer over the snapshot.
type Interpreter struct{}

// NewInterpreter creates a query interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Answer produces a response for the question, or a usage hint when no
// keyword rule matches.
func (i *Interpreter) Answer(question string, snap Snapshot) string {
	q := strings.ToLower(strings.TrimSpace(question))

	switch {
	case q == "":
		return i.help()

	case strings.Contains(q, "last") && (strings.Contains(q, "registered") || strings.Contains(q, "register")):
		if last := lastRegistered(snap.Identities); last != nil {
			return fmt.Sprintf("The last person registered was %s at %s.",
				last.Name, last.RegisteredAt.Format("Jan 2, 3:04 PM"))
		}
		return "No one has been registered yet."

	case strings.Contains(q, "how many") && (strings.Contains(q, "registered") || strings.Contains(q, "identities") || strings.Contains(q, "people")):
		return fmt.Sprintf("There are %d registered identities.", snap.Stats.KnownIdentities)

	case strings.Contains(q, "today"):
		return fmt.Sprintf("There have been %d detections today.", snap.Stats.TodayDetections)

	case strings.Contains(q, "unknown"):
		return fmt.Sprintf("%d of %d detections were unknown faces.",
			snap.Stats.UnknownFaces, snap.Stats.TotalDetections)

	case strings.Contains(q, "confidence"):
		return fmt.Sprintf("The average recognition confidence is %d%%.", snap.Stats.AverageConfidence)

	case strings.Contains(q, "last seen") || strings.Contains(q, "when was"):
		if name := matchIdentityName(q, snap.Identities); name != "" {
			if ev := lastSeen(name, snap.Recent); ev != nil {
				return fmt.Sprintf("%s was last seen at %s with %.0f%% confidence.",
					name, ev.DetectedAt.Format("Jan 2, 3:04 PM"), ev.Confidence)
			}
			return fmt.Sprintf("%s has not been seen recently.", name)
		}
		return "I couldn't tell which person you mean."

	case strings.Contains(q, "who"):
		names := recentNames(snap.Recent)
		if len(names) == 0 {
			return "No one has been recognized recently."
		}
		return fmt.Sprintf("Recently recognized: %s.", strings.Join(names, ", "))

	case strings.Contains(q, "how many") || strings.Contains(q, "count") || strings.Contains(q, "total"):
		return fmt.Sprintf("There have been %d detections in total: %d recognized, %d unknown.",
			snap.Stats.TotalDetections, snap.Stats.RecognizedFaces, snap.Stats.UnknownFaces)
	}

	return i.help()
}

func (i *Interpreter) help() string {
	return "Try asking: 'how many detections today?', 'who was seen recently?', " +
		"'when was <name> last seen?', or 'how many people are registered?'"
}

func lastRegistered(identities []models.Identity) *models.Identity {
	var last *models.Identity
	for idx := range identities {
		id := &identities[idx]
		if !id.Active {
			continue
		}
		if last == nil || id.RegisteredAt.After(last.RegisteredAt) {
			last = id
		}
	}
	return last
}

func matchIdentityName(q string, identities []models.Identity) string {
	for _, id := range identities {
		if strings.Contains(q, strings.ToLower(id.Name)) {
			return id.Name
		}
	}
	return ""
}

func lastSeen(name string, events []models.RecognitionEvent) *models.RecognitionEvent {
	// Events arrive newest-first from the store.
	for idx := range events {
		if strings.EqualFold(events[idx].PersonName, name) && events[idx].IsRecognized {
			return &events[idx]
		}
	}
	return nil
}

func recentNames(events []models.RecognitionEvent) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, ev := range events {
		if !ev.IsRecognized {
			continue
		}
		if _, ok := seen[ev.PersonName]; ok {
			continue
		}
		seen[ev.PersonName] = struct{}{}
		names = append(names, ev.PersonName)
	}
	return names
}
