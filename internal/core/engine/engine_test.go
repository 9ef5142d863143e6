package engine

import (
	"errors"
	"testing"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/core/session"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeEventStore records appended events in memory and can be told to fail.
type fakeEventStore struct {
	appended  []models.RecognitionEvent
	failNext  int
	appendErr error
}

func (f *fakeEventStore) Append(event *models.RecognitionEvent) error {
	if f.failNext > 0 {
		f.failNext--
		return f.appendErr
	}
	event.ID = uint(len(f.appended) + 1)
	f.appended = append(f.appended, *event)
	return nil
}

func (f *fakeEventStore) Recent(limit int) ([]models.RecognitionEvent, error) {
	if limit > len(f.appended) {
		limit = len(f.appended)
	}
	out := make([]models.RecognitionEvent, 0, limit)
	for i := len(f.appended) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.appended[i])
	}
	return out, nil
}

func (f *fakeEventStore) CountSince(since time.Time) (int64, error) {
	var n int64
	for _, ev := range f.appended {
		if !ev.DetectedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeEventStore) CountAll() (int64, error) {
	return int64(len(f.appended)), nil
}

func (f *fakeEventStore) CountRecognized(recognized bool) (int64, error) {
	var n int64
	for _, ev := range f.appended {
		if ev.IsRecognized == recognized {
			n++
		}
	}
	return n, nil
}

func (f *fakeEventStore) AverageConfidence() (float64, error) {
	if len(f.appended) == 0 {
		return 0, nil
	}
	var sum float64
	for _, ev := range f.appended {
		sum += ev.Confidence
	}
	return sum / float64(len(f.appended)), nil
}

func ptr(id uint) *uint { return &id }

func TestProcessBatchRecognized(t *testing.T) {
	Convey("Given an engine with an empty session store", t, func() {
		events := &fakeEventStore{}
		eng := New(session.NewStore(), events)

		alice := models.Detection{
			BBox:       []float64{10, 20, 110, 120},
			Name:       "Alice",
			PersonID:   ptr(1),
			Confidence: 92.5,
		}

		Convey("The first sighting of a person is logged", func() {
			result, err := eng.ProcessBatch("s1", []models.Detection{alice})

			So(err, ShouldBeNil)
			So(result.Detections, ShouldHaveLength, 1)
			So(result.Detections[0].IsRecognized, ShouldBeTrue)
			So(result.Detections[0].AlreadyCounted, ShouldBeFalse)
			So(result.Logged, ShouldHaveLength, 1)
			So(result.Logged[0].PersonName, ShouldEqual, "Alice")
			So(result.Logged[0].Confidence, ShouldEqual, 92.5)
			So(*result.Logged[0].PersonID, ShouldEqual, 1)
			So(result.Logged[0].IsRecognized, ShouldBeTrue)

			Convey("A repeat sighting is annotated but not logged again", func() {
				result, err = eng.ProcessBatch("s1", []models.Detection{alice})

				So(err, ShouldBeNil)
				So(result.Detections[0].AlreadyCounted, ShouldBeTrue)
				So(result.Logged, ShouldBeEmpty)
				So(events.appended, ShouldHaveLength, 1)
			})

			Convey("The same person in another session is logged independently", func() {
				result, err = eng.ProcessBatch("s2", []models.Detection{alice})

				So(err, ShouldBeNil)
				So(result.Detections[0].AlreadyCounted, ShouldBeFalse)
				So(events.appended, ShouldHaveLength, 2)
			})
		})

		Convey("Three frames with the same person yield exactly one event", func() {
			for i := 0; i < 3; i++ {
				_, err := eng.ProcessBatch("s1", []models.Detection{alice})
				So(err, ShouldBeNil)
			}
			So(events.appended, ShouldHaveLength, 1)
		})

		Convey("An empty session identifier falls back to the default session", func() {
			_, err := eng.ProcessBatch("", []models.Detection{alice})
			So(err, ShouldBeNil)

			result, err := eng.ProcessBatch(models.DefaultSessionID, []models.Detection{alice})
			So(err, ShouldBeNil)
			So(result.Detections[0].AlreadyCounted, ShouldBeTrue)
		})
	})
}

func TestProcessBatchUnknown(t *testing.T) {
	Convey("Given an engine processing unknown faces", t, func() {
		events := &fakeEventStore{}
		eng := New(session.NewStore(), events)

		unknown := models.Detection{
			BBox:       []float64{5, 5, 50, 50},
			Confidence: 40,
		}

		Convey("Every unknown detection is logged, never deduplicated", func() {
			for i := 0; i < 3; i++ {
				result, err := eng.ProcessBatch("s1", []models.Detection{unknown})
				So(err, ShouldBeNil)
				So(result.Logged, ShouldHaveLength, 1)
				So(result.Detections[0].AlreadyCounted, ShouldBeFalse)
			}
			So(events.appended, ShouldHaveLength, 3)
		})

		Convey("Unknown events carry the canonical unknown label and no person", func() {
			result, err := eng.ProcessBatch("s1", []models.Detection{unknown})

			So(err, ShouldBeNil)
			So(result.Logged[0].PersonName, ShouldEqual, models.UnknownPersonName)
			So(result.Logged[0].PersonID, ShouldBeNil)
			So(result.Logged[0].IsRecognized, ShouldBeFalse)
			So(result.Detections[0].Name, ShouldEqual, models.UnknownPersonName)
		})
	})
}

func TestProcessBatchMixed(t *testing.T) {
	Convey("Given a frame with a new person, a repeat and an unknown", t, func() {
		events := &fakeEventStore{}
		eng := New(session.NewStore(), events)

		bob := models.Detection{Name: "Bob", PersonID: ptr(2), Confidence: 88}
		_, err := eng.ProcessBatch("s1", []models.Detection{bob})
		So(err, ShouldBeNil)

		frame := []models.Detection{
			bob,
			{Name: "Carol", PersonID: ptr(3), Confidence: 95},
			{Confidence: 30},
		}
		result, err := eng.ProcessBatch("s1", frame)

		Convey("All candidates come back annotated in order", func() {
			So(err, ShouldBeNil)
			So(result.Detections, ShouldHaveLength, 3)
			So(result.Detections[0].AlreadyCounted, ShouldBeTrue)
			So(result.Detections[1].AlreadyCounted, ShouldBeFalse)
			So(result.Detections[2].IsRecognized, ShouldBeFalse)
		})

		Convey("Only the new person and the unknown are logged", func() {
			So(result.Logged, ShouldHaveLength, 2)
			So(result.Logged[0].PersonName, ShouldEqual, "Carol")
			So(result.Logged[1].PersonName, ShouldEqual, models.UnknownPersonName)
		})
	})
}

func TestProcessBatchAppendFailure(t *testing.T) {
	Convey("Given an event store that fails the next append", t, func() {
		events := &fakeEventStore{failNext: 1, appendErr: errors.New("disk full")}
		eng := New(session.NewStore(), events)

		frame := []models.Detection{
			{Name: "Alice", PersonID: ptr(1), Confidence: 90},
			{Name: "Bob", PersonID: ptr(2), Confidence: 85},
		}
		result, err := eng.ProcessBatch("s1", frame)

		Convey("The failure is surfaced", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "disk full")
		})

		Convey("The full annotated batch is still returned", func() {
			So(result.Detections, ShouldHaveLength, 2)
		})

		Convey("The other candidate's event was still appended", func() {
			So(result.Logged, ShouldHaveLength, 1)
			So(result.Logged[0].PersonName, ShouldEqual, "Bob")
		})
	})
}

func TestResetSession(t *testing.T) {
	Convey("Given a session with a counted person", t, func() {
		events := &fakeEventStore{}
		sessions := session.NewStore()
		eng := New(sessions, events)

		alice := models.Detection{Name: "Alice", PersonID: ptr(1), Confidence: 90}
		_, err := eng.ProcessBatch("s1", []models.Detection{alice})
		So(err, ShouldBeNil)

		Convey("After a reset the person is countable again", func() {
			eng.ResetSession("s1")

			result, err := eng.ProcessBatch("s1", []models.Detection{alice})
			So(err, ShouldBeNil)
			So(result.Detections[0].AlreadyCounted, ShouldBeFalse)
			So(events.appended, ShouldHaveLength, 2)
		})

		Convey("Reset leaves the event log untouched", func() {
			eng.ResetSession("s1")
			So(events.appended, ShouldHaveLength, 1)
		})

		Convey("Resetting twice or resetting an unknown session never fails", func() {
			So(func() {
				eng.ResetSession("s1")
				eng.ResetSession("s1")
				eng.ResetSession("never-seen")
				eng.ResetSession("")
			}, ShouldNotPanic)
		})
	})
}
