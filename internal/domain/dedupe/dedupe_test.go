package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/uxlens/uxlens/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When recording a fresh id", func() {
			seen := d.SeenAndRecord(ctx, "e1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the same id is seen on the second attempt", func() {
				So(d.SeenAndRecord(ctx, "e1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the cache overflows", func() {
			for i := 0; i < 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("e%d", i))
			}

			Convey("Then the oldest id was evicted and can be re-recorded", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "e0"), ShouldBeFalse)
			})

			Convey("And recent ids are still deduplicated", func() {
				So(d.SeenAndRecord(ctx, "e3"), ShouldBeTrue)
			})
		})

		Convey("When unrecording an id after a failed enqueue", func() {
			d.SeenAndRecord(ctx, "e1")
			d.Unrecord(ctx, "e1")

			Convey("Then the id can be retried", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "e1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "ghost")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When recording many ids", func() {
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("e%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.SeenAndRecord(ctx, "e0"), ShouldBeTrue)
			})
		})
	})

	Convey("Given concurrent writers", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10_000))

		Convey("When 100 goroutines race on the same id set", func() {
			var wg sync.WaitGroup
			var dupes sync.Map
			for g := 0; g < 100; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						id := fmt.Sprintf("e%d", i)
						if !d.SeenAndRecord(ctx, id) {
							if _, loaded := dupes.LoadOrStore(id, true); loaded {
								t.Errorf("id %s recorded twice", id)
							}
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id was recorded exactly once", func() {
				So(d.Size(), ShouldEqual, 50)
			})
		})
	})
}
