package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/skating/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper with default options", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("When a submission id is new", func() {
			seen := d.SeenAndRecord(ctx, "sub-1")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a retry with the same id is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded id is unrecorded", func() {
			d.SeenAndRecord(ctx, "sub-1")
			d.Unrecord(ctx, "sub-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.SeenAndRecord(ctx, "sub-1")
			d.Unrecord(ctx, "sub-2")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a bounded deduper of three", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"sub-1", "sub-2", "sub-3"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth id arrives", func() {
			So(d.SeenAndRecord(ctx, "sub-4"), ShouldBeFalse)

			Convey("Then the oldest id is forgotten and the size holds", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "sub-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sub-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "sub-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		for _, size := range []int{0, -1} {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(size))

			Convey(fmt.Sprintf("When recording many ids with size %d", size), func() {
				const n = 1000
				for i := 0; i < n; i++ {
					So(d.SeenAndRecord(ctx, fmt.Sprintf("sub-%d", i)), ShouldBeFalse)
				}

				Convey("Then none are evicted", func() {
					So(d.Size(), ShouldEqual, int64(n))
					So(d.SeenAndRecord(ctx, "sub-0"), ShouldBeTrue)
				})
			})
		}
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given goroutines racing on the same ids", t, func() {
		for _, size := range []int{1000, 0} {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(size))
			const workers = 10
			const ids = 100

			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				fresh int
			)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < ids; i++ {
						if !d.SeenAndRecord(context.Background(), fmt.Sprintf("sub-%d", i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey(fmt.Sprintf("Then each id is new exactly once with size %d", size), func() {
				So(fresh, ShouldEqual, ids)
				So(d.Size(), ShouldEqual, int64(ids))
			})
		}
	})
}
