package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/uxlens/uxlens/internal/adapters/mq/queue"
	worker "github.com/uxlens/uxlens/internal/adapters/mq/worker"
	model "github.com/uxlens/uxlens/internal/domain/model"
	logging "github.com/uxlens/uxlens/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	eventChan  chan queue.Event
	closeError error
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		eventChan: make(chan queue.Event, 200),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Event {
	return mq.eventChan
}

func (mq *mockQueue) Close() error {
	close(mq.eventChan)
	return mq.closeError
}

func (mq *mockQueue) addEvent(event queue.Event) { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	mq.eventChan <- event
}

type mockWriter struct {
	inserted map[string]model.Event
	errors   map[string]error
	mu       sync.RWMutex
}

func newMockWriter() *mockWriter {
	return &mockWriter{
		inserted: make(map[string]model.Event),
		errors:   make(map[string]error),
	}
}

func (mw *mockWriter) InsertEvents(ctx context.Context, events []model.Event) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for _, e := range events {
		if err, exists := mw.errors[e.EventID]; exists {
			return err
		}
		mw.inserted[e.EventID] = e
	}
	return nil
}

func (mw *mockWriter) setError(eventID string, err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.errors[eventID] = err
}

func (mw *mockWriter) getInserted(eventID string) (model.Event, bool) {
	mw.mu.RLock()
	defer mw.mu.RUnlock()
	e, exists := mw.inserted[eventID]
	return e, exists
}

func validEvent(id, session string) model.Event {
	return model.Event{
		EventID:   id,
		SessionID: session,
		RunID:     "run-1",
		BlockID:   "block-1",
		ScreenID:  "home",
		Type:      model.EventScreenLoad,
		TS:        time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		queue := newMockQueue()
		writer := newMockWriter()

		convey.Convey("When creating a worker with default options", func() {
			worker := worker.NewInMemoryWorker(queue, writer)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(worker, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a worker with custom options", func() {
			worker := worker.NewInMemoryWorker(
				queue, writer,
				worker.WithName("test-worker"),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(worker, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			worker := worker.NewInMemoryWorker(queue, writer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go worker.Run(ctx)

			// Give worker time to start
			time.Sleep(10 * time.Millisecond)

			convey.Convey("And when processing a valid event", func() {
				queue.addEvent(validEvent("event-1", "session-1"))

				// Give worker time to process
				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it should persist the event", func() {
					got, inserted := writer.getInserted("event-1")
					convey.So(inserted, convey.ShouldBeTrue)
					convey.So(got.SessionID, convey.ShouldEqual, "session-1")
				})
			})

			convey.Convey("And when processing an invalid event", func() {
				bad := validEvent("event-2", "session-2")
				bad.Type = ""

				queue.addEvent(bad)

				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then it should drop the event without persisting", func() {
					_, inserted := writer.getInserted("event-2")
					convey.So(inserted, convey.ShouldBeFalse)
				})
			})

			convey.Convey("And when the store write fails", func() {
				writer.setError("event-3", errors.New("write error"))

				queue.addEvent(validEvent("event-3", "session-3"))

				time.Sleep(50 * time.Millisecond)

				convey.Convey("Then the event should not be persisted", func() {
					_, inserted := writer.getInserted("event-3")
					convey.So(inserted, convey.ShouldBeFalse)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := worker.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When context is cancelled", func() {
			worker := worker.NewInMemoryWorker(queue, writer)
			ctx, cancel := context.WithCancel(context.Background())

			go worker.Run(ctx)

			time.Sleep(10 * time.Millisecond)

			cancel()

			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then worker should stop", func() {
				queue.addEvent(validEvent("event-late", "session-late"))
				time.Sleep(50 * time.Millisecond)

				_, inserted := writer.getInserted("event-late")
				convey.So(inserted, convey.ShouldBeFalse)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new WorkerPool", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		queue := newMockQueue()
		writer := newMockWriter()

		convey.Convey("When creating a worker pool with default count", func() {
			pool := worker.NewPool(0, queue, writer)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When creating a worker pool with custom count", func() {
			pool := worker.NewPool(3, queue, writer)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(pool, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When starting a worker pool", func() {
			pool := worker.NewPool(2, queue, writer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)

			// Give workers time to start
			time.Sleep(20 * time.Millisecond)

			convey.Convey("And when processing multiple events", func() {
				events := []model.Event{
					validEvent("event-1", "session-1"),
					validEvent("event-2", "session-2"),
					validEvent("event-3", "session-3"),
				}

				for _, event := range events {
					queue.addEvent(event)
				}

				// Give workers time to process
				time.Sleep(100 * time.Millisecond)

				convey.Convey("Then all events should be persisted", func() {
					for _, event := range events {
						_, inserted := writer.getInserted(event.EventID)
						convey.So(inserted, convey.ShouldBeTrue)
					}
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()

				err := pool.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When stopping a worker pool", func() {
			pool := worker.NewPool(2, queue, writer)
			ctx, cancel := context.WithCancel(context.Background())

			pool.Start(ctx)

			time.Sleep(20 * time.Millisecond)

			cancel()
			pool.Stop()

			convey.Convey("Then all workers should be stopped", func() {
				queue.addEvent(validEvent("event-late", "session-late"))
				time.Sleep(50 * time.Millisecond)

				_, inserted := writer.getInserted("event-late")
				convey.So(inserted, convey.ShouldBeFalse)
			})
		})
	})
}

func TestWorkerConcurrency(t *testing.T) {
	convey.Convey("Given a worker pool with multiple workers", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		queue := newMockQueue()
		writer := newMockWriter()

		pool := worker.NewPool(4, queue, writer)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool.Start(ctx)

		// Give workers time to start
		time.Sleep(20 * time.Millisecond)

		convey.Convey("When processing many concurrent events", func() {
			const eventCount = 100
			var wg sync.WaitGroup

			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(producerID int) {
					defer wg.Done()
					for j := 0; j < eventCount/5; j++ {
						queue.addEvent(validEvent(
							fmt.Sprintf("event-%d-%d", producerID, j),
							fmt.Sprintf("session-%d", producerID),
						))
					}
				}(i)
			}

			wg.Wait()

			// Give workers time to process
			time.Sleep(200 * time.Millisecond)

			convey.Convey("Then all events should be persisted", func() {
				persisted := 0
				for i := 0; i < 5; i++ {
					for j := 0; j < eventCount/5; j++ {
						if _, inserted := writer.getInserted(fmt.Sprintf("event-%d-%d", i, j)); inserted {
							persisted++
						}
					}
				}
				convey.So(persisted, convey.ShouldEqual, eventCount)
			})
		})
	})
}
