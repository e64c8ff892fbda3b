package ranking_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/okian/skating/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func pool(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i+1)
	}
	return ids
}

func TestAllocateHeats(t *testing.T) {
	Convey("Given fourteen participants and heats of six", t, func() {
		participants := pool(14)

		Convey("When allocating with a seeded source", func() {
			rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic seed for reproducible testing
			heats, err := ranking.AllocateHeats(participants, 6, rng.Shuffle)

			Convey("Then the pool is cut into 6, 6 and 2", func() {
				So(err, ShouldBeNil)
				So(heats, ShouldHaveLength, 3)
				So(heats[0].Participants, ShouldHaveLength, 6)
				So(heats[1].Participants, ShouldHaveLength, 6)
				So(heats[2].Participants, ShouldHaveLength, 2)
			})

			Convey("And heats are numbered from one and start open", func() {
				for i, h := range heats {
					So(h.Number, ShouldEqual, i+1)
					So(h.Completed, ShouldBeFalse)
					So(h.Selected, ShouldNotBeNil)
					So(h.Selected, ShouldBeEmpty)
				}
			})

			Convey("And every participant is drawn exactly once", func() {
				seen := map[string]int{}
				for _, h := range heats {
					for _, id := range h.Participants {
						seen[id]++
					}
				}
				So(seen, ShouldHaveLength, 14)
				for _, n := range seen {
					So(n, ShouldEqual, 1)
				}
			})

			Convey("And the caller's slice is left untouched", func() {
				So(participants, ShouldResemble, pool(14))
			})

			Convey("And the same seed gives the same draw", func() {
				again, err := ranking.AllocateHeats(participants, 6, rand.New(rand.NewSource(42)).Shuffle) //nolint:gosec // deterministic seed
				So(err, ShouldBeNil)
				So(again, ShouldResemble, heats)
			})
		})

		Convey("When allocating with the identity shuffle", func() {
			heats, err := ranking.AllocateHeats(participants, 5, func(int, func(i, j int)) {})

			Convey("Then heats follow the input order", func() {
				So(err, ShouldBeNil)
				So(heats[0].Participants, ShouldResemble, participants[:5])
				So(heats[2].Participants, ShouldResemble, participants[10:])
			})
		})

		Convey("When allocating with the default source", func() {
			heats, err := ranking.AllocateHeats(participants, 6, nil)

			Convey("Then membership is still complete", func() {
				So(err, ShouldBeNil)
				total := 0
				for _, h := range heats {
					total += len(h.Participants)
				}
				So(total, ShouldEqual, 14)
			})
		})
	})

	Convey("Given no participants", t, func() {
		heats, err := ranking.AllocateHeats(nil, 6, nil)

		Convey("Then there are no heats and no error", func() {
			So(err, ShouldBeNil)
			So(heats, ShouldBeEmpty)
		})
	})

	Convey("Given a heat size below one", t, func() {
		_, err := ranking.AllocateHeats(pool(3), 0, nil)

		Convey("Then it is rejected", func() {
			So(errors.Is(err, ranking.ErrInvalidHeatSize), ShouldBeTrue)
		})
	})
}
