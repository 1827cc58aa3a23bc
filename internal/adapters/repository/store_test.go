package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/uxlens/uxlens/internal/adapters/repository"
	"github.com/uxlens/uxlens/internal/domain/model"
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func makeEvent(id, session, block, screen string, typ model.EventType, offset time.Duration) model.Event {
	return model.Event{
		EventID:   id,
		SessionID: session,
		RunID:     "run-1",
		BlockID:   block,
		ScreenID:  screen,
		Type:      typ,
		TS:        testEpoch.Add(offset),
	}
}

func ptr(v float64) *float64 { return &v }

// storeFactory builds a fresh empty store for each scenario.
type storeFactory func(t *testing.T) repository.Store

func runStoreSuite(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	Convey("Given an empty "+name, t, func() {
		store := factory(t)
		defer store.Close()

		Convey("When inserting a batch of events", func() {
			events := []model.Event{
				makeEvent("e1", "s1", "b1", "home", model.EventScreenLoad, 0),
				makeEvent("e2", "s1", "b1", "home", model.EventClick, time.Second),
				makeEvent("e3", "s2", "b1", "checkout", model.EventScreenLoad, 2*time.Second),
				makeEvent("e4", "s3", "b2", "home", model.EventScreenLoad, 3*time.Second),
			}
			err := store.InsertEvents(ctx, events)

			Convey("Then the insert succeeds", func() {
				So(err, ShouldBeNil)
			})

			Convey("Then CountEvents reflects the batch", func() {
				n, err := store.CountEvents(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})

			Convey("Then EventsBySession returns only that session", func() {
				got, err := store.EventsBySession(ctx, "s1")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].EventID, ShouldEqual, "e1")
				So(got[1].EventID, ShouldEqual, "e2")
			})

			Convey("Then EventsByBlock filters on the block", func() {
				got, err := store.EventsByBlock(ctx, "b1")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 3)
			})

			Convey("Then EventsByScreen filters on block and screen", func() {
				got, err := store.EventsByScreen(ctx, "b1", "checkout")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].EventID, ShouldEqual, "e3")
			})

			Convey("And re-inserting the same ids is idempotent", func() {
				So(store.InsertEvents(ctx, events), ShouldBeNil)
				n, err := store.CountEvents(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})

		Convey("When inserting an event with coordinates", func() {
			e := makeEvent("e10", "s9", "b9", "hero", model.EventClick, 0)
			e.X = ptr(120.5)
			e.Y = ptr(88.25)
			e.HotspotID = "cta"
			So(store.InsertEvents(ctx, []model.Event{e}), ShouldBeNil)

			Convey("Then coordinates and hotspot round-trip", func() {
				got, err := store.EventsBySession(ctx, "s9")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].HasCoords(), ShouldBeTrue)
				So(*got[0].X, ShouldEqual, 120.5)
				So(*got[0].Y, ShouldEqual, 88.25)
				So(got[0].HotspotID, ShouldEqual, "cta")
			})
		})

		Convey("When inserting an event without coordinates", func() {
			e := makeEvent("e11", "s9", "b9", "hero", model.EventClick, 0)
			So(store.InsertEvents(ctx, []model.Event{e}), ShouldBeNil)

			Convey("Then the coordinates stay nil", func() {
				got, err := store.EventsBySession(ctx, "s9")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].HasCoords(), ShouldBeFalse)
				So(got[0].X, ShouldBeNil)
				So(got[0].Y, ShouldBeNil)
			})
		})

		Convey("When inserting an invalid event", func() {
			e := makeEvent("", "s1", "b1", "home", model.EventClick, 0)
			err := store.InsertEvents(ctx, []model.Event{e})

			Convey("Then the insert fails with the validation error", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, repository.ErrMissingEventID)
			})
		})

		Convey("When upserting sessions", func() {
			first := model.Session{ID: "s1", RunID: "run-1", BlockID: "b1", StartedAt: testEpoch}
			So(store.InsertSessions(ctx, []model.Session{first}), ShouldBeNil)

			updated := first
			updated.StoredCompleted = true
			So(store.InsertSessions(ctx, []model.Session{updated}), ShouldBeNil)

			Convey("Then the latest row wins", func() {
				got, err := store.SessionsByBlock(ctx, "b1")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].StoredCompleted, ShouldBeTrue)
				So(got[0].StartedAt.Equal(testEpoch), ShouldBeTrue)
			})
		})

		Convey("When inserting several sessions for one block", func() {
			sessions := []model.Session{
				{ID: "s-c", RunID: "run-1", BlockID: "b1", StartedAt: testEpoch},
				{ID: "s-a", RunID: "run-1", BlockID: "b1", StartedAt: testEpoch.Add(time.Second)},
				{ID: "s-b", RunID: "run-1", BlockID: "b1", StartedAt: testEpoch.Add(2 * time.Second)},
			}
			So(store.InsertSessions(ctx, sessions), ShouldBeNil)

			Convey("Then SessionsByBlock keeps a stable order across reads", func() {
				first, err := store.SessionsByBlock(ctx, "b1")
				So(err, ShouldBeNil)
				So(len(first), ShouldEqual, 3)
				So(first[0].ID, ShouldEqual, "s-c")
				So(first[1].ID, ShouldEqual, "s-a")
				So(first[2].ID, ShouldEqual, "s-b")

				for i := 0; i < 25; i++ {
					again, err := store.SessionsByBlock(ctx, "b1")
					So(err, ShouldBeNil)
					So(again, ShouldResemble, first)
				}
			})
		})

		Convey("When inserting answers", func() {
			answers := []model.Answer{
				{AnswerID: "a1", SessionID: "s1", RunID: "run-1", BlockID: "b1", Value: 4, TS: testEpoch},
				{AnswerID: "a2", SessionID: "s2", RunID: "run-1", BlockID: "b1", Value: 9, TS: testEpoch},
				{AnswerID: "a3", SessionID: "s3", RunID: "run-1", BlockID: "b2", Value: 2, TS: testEpoch},
			}
			So(store.InsertAnswers(ctx, answers), ShouldBeNil)
			So(store.InsertAnswers(ctx, answers[:1]), ShouldBeNil)

			Convey("Then AnswersByBlock filters and stays duplicate-free", func() {
				got, err := store.AnswersByBlock(ctx, "b1")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].Value, ShouldEqual, 4)
				So(got[1].Value, ShouldEqual, 9)
			})
		})

		Convey("When inserting gaze samples", func() {
			samples := []model.GazeSample{
				{SessionID: "s1", RunID: "run-1", BlockID: "b1", ScreenID: "home", TS: testEpoch, XNorm: 0.25, YNorm: 0.5},
				{SessionID: "s1", RunID: "run-1", BlockID: "b1", ScreenID: "home", TS: testEpoch.Add(time.Second), XNorm: 0.5, YNorm: 0.5},
				{SessionID: "s2", RunID: "run-1", BlockID: "b1", ScreenID: "checkout", TS: testEpoch, XNorm: 0.75, YNorm: 0.25},
			}
			So(store.InsertGaze(ctx, samples), ShouldBeNil)
			So(store.InsertGaze(ctx, samples[:1]), ShouldBeNil)

			Convey("Then GazeByScreen filters and stays duplicate-free", func() {
				got, err := store.GazeByScreen(ctx, "b1", "home")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].XNorm, ShouldEqual, 0.25)
				So(got[1].XNorm, ShouldEqual, 0.5)
			})
		})

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)

			Convey("Then operations fail with ErrClosed", func() {
				err := store.InsertEvents(ctx, []model.Event{makeEvent("e1", "s1", "b1", "home", model.EventClick, 0)})
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestMemStore(t *testing.T) {
	runStoreSuite(t, "memory store", func(t *testing.T) repository.Store {
		return repository.NewMemStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, "sqlite store", func(t *testing.T) repository.Store {
		path := filepath.Join(t.TempDir(), "uxlens.db")
		store, err := repository.NewSQLiteStore(path)
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		return store
	})
}
