package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	service "github.com/okian/skating/internal/app"
	"github.com/okian/skating/internal/adapters/repository"
	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func ids(res types.Result) []string {
	out := make([]string, len(res.Standings))
	for i, s := range res.Standings {
		out[i] = s.ParticipantID
	}
	return out
}

// waitDrained waits until the recompute queue has been consumed.
func waitDrained(svc *service.Service) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, ok := svc.GetStats()["queueLength"].(int); ok && n == 0 {
			time.Sleep(20 * time.Millisecond)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServiceIntegration_Final(t *testing.T) {
	Convey("Given a started service with a three couple final", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.CreateRound(ctx, service.RoundSpec{
			ID:           "final-1",
			Kind:         model.KindFinal,
			Participants: []string{"p3", "p2", "p1"},
		})
		So(err, ShouldBeNil)

		Convey("When three judges submit their placements", func() {
			rankings := []model.JudgeRanking{
				{JudgeID: "j1", Placements: map[string]int{"p1": 1, "p2": 2, "p3": 3}},
				{JudgeID: "j2", Placements: map[string]int{"p1": 1, "p2": 3, "p3": 2}},
				{JudgeID: "j3", Placements: map[string]int{"p1": 2, "p2": 1, "p3": 3}},
			}
			var last service.Ack
			for i, r := range rankings {
				last, err = svc.SubmitRanking(ctx, "final-1", fmt.Sprintf("sub-%d", i), r)
				So(err, ShouldBeNil)
			}
			waitDrained(svc)
			res, err := svc.Result(ctx, "final-1")

			Convey("Then the result reflects every submission", func() {
				So(err, ShouldBeNil)
				So(last.Revision, ShouldEqual, 3)
				So(res.Revision, ShouldEqual, 3)
				So(res.Final, ShouldBeFalse)
				So(ids(res), ShouldResemble, []string{"p1", "p2", "p3"})
				So(res.Standings[0].Score, ShouldEqual, 4)
				So(res.Standings[0].Judges, ShouldEqual, 3)
				So(res.Standings[0].DecidedBy, ShouldEqual, "rule9")
			})

			Convey("And a judge revising a ranking replaces the earlier one", func() {
				_, err := svc.SubmitRanking(ctx, "final-1", "sub-fix", model.JudgeRanking{
					JudgeID: "j3", Placements: map[string]int{"p1": 3, "p2": 1, "p3": 2},
				})
				So(err, ShouldBeNil)
				res, err := svc.Result(ctx, "final-1")
				So(err, ShouldBeNil)
				So(res.Revision, ShouldEqual, 4)
				So(res.Standings[0].ParticipantID, ShouldEqual, "p1")
				So(res.Standings[0].Score, ShouldEqual, 5)
			})

			Convey("And closing the round freezes the result", func() {
				closed, err := svc.CloseRound(ctx, "final-1")
				So(err, ShouldBeNil)
				So(closed.Final, ShouldBeTrue)
				So(ids(closed), ShouldResemble, []string{"p1", "p2", "p3"})

				_, err = svc.SubmitRanking(ctx, "final-1", "late", rankings[0])
				So(errors.Is(err, repository.ErrRoundClosed), ShouldBeTrue)

				again, err := svc.CloseRound(ctx, "final-1")
				So(err, ShouldBeNil)
				So(again.Final, ShouldBeTrue)
				So(again.Revision, ShouldEqual, closed.Revision)

				read, err := svc.Result(ctx, "final-1")
				So(err, ShouldBeNil)
				So(read.Final, ShouldBeTrue)
			})
		})
	})
}

func TestServiceIntegration_MajorityTie(t *testing.T) {
	Convey("Given a final where two couples tie on the sum", t, func() {
		svc, ctx, cancel := startService()
		defer cancel()
		defer svc.Stop()

		_, err := svc.CreateRound(ctx, service.RoundSpec{ID: "f", Kind: model.KindFinal, Participants: []string{"p2", "p1"}})
		So(err, ShouldBeNil)
		for _, r := range []model.JudgeRanking{
			{JudgeID: "j1", Placements: map[string]int{"p1": 1, "p2": 2}},
			{JudgeID: "j2", Placements: map[string]int{"p1": 1, "p2": 3}},
			{JudgeID: "j3", Placements: map[string]int{"p1": 4, "p2": 1}},
		} {
			_, err := svc.SubmitRanking(ctx, "f", "", r)
			So(err, ShouldBeNil)
		}

		Convey("When reading the result", func() {
			res, err := svc.Result(ctx, "f")

			Convey("Then the majority at placement one decides", func() {
				So(err, ShouldBeNil)
				So(ids(res), ShouldResemble, []string{"p1", "p2"})
				So(res.Standings[0].DecidedBy, ShouldEqual, "rule10")
				So(res.Standings[0].Threshold, ShouldEqual, 1)
			})
		})
	})
}

func TestServiceIntegration_Heats(t *testing.T) {
	Convey("Given a heats round of ten couples", t, func() {
		svc, ctx, cancel := startService(service.WithHeatSize(4))
		defer cancel()
		defer svc.Stop()

		couples := make([]string, 10)
		for i := range couples {
			couples[i] = fmt.Sprintf("c%02d", i+1)
		}
		_, err := svc.CreateRound(ctx, service.RoundSpec{ID: "heats", Kind: model.KindHeats, Participants: couples, TopN: 3})
		So(err, ShouldBeNil)

		Convey("When allocating heats with a seed", func() {
			first, err := svc.AllocateHeats(ctx, "heats", 0, 42)
			So(err, ShouldBeNil)
			second, err := svc.AllocateHeats(ctx, "heats", 0, 42)
			So(err, ShouldBeNil)

			Convey("Then every couple dances exactly once", func() {
				So(first.Heats, ShouldHaveLength, 3)
				seen := map[string]int{}
				for _, h := range first.Heats {
					So(h.ID, ShouldNotBeEmpty)
					for _, p := range h.Participants {
						seen[p]++
					}
				}
				So(seen, ShouldHaveLength, 10)
				for _, n := range seen {
					So(n, ShouldEqual, 1)
				}
				So(first.Heats[2].Participants, ShouldHaveLength, 2)
			})

			Convey("And the same seed draws the same heats", func() {
				for i := range first.Heats {
					So(second.Heats[i].Participants, ShouldResemble, first.Heats[i].Participants)
				}
			})
		})

		Convey("When judges select and a heat is completed", func() {
			round, err := svc.AllocateHeats(ctx, "heats", 5, 7)
			So(err, ShouldBeNil)
			heat := round.Heats[0]

			_, err = svc.SubmitSelection(ctx, "heats", "s1", model.JudgeSelection{JudgeID: "j1", Selected: heat.Participants[:2]})
			So(err, ShouldBeNil)
			_, err = svc.SubmitSelection(ctx, "heats", "s2", model.JudgeSelection{JudgeID: "j2", Selected: heat.Participants[1:3]})
			So(err, ShouldBeNil)

			done, err := svc.CompleteHeat(ctx, "heats", heat.Number)

			Convey("Then the heat lists the picked couples, most picked first", func() {
				So(err, ShouldBeNil)
				So(done.Completed, ShouldBeTrue)
				So(done.Selected, ShouldHaveLength, 3)
				So(done.Selected[0], ShouldEqual, heat.Participants[1])
			})

			Convey("And the round result advances the top three", func() {
				res, err := svc.Result(ctx, "heats")
				So(err, ShouldBeNil)
				So(res.Advancing, ShouldHaveLength, 3)
				So(res.Advancing[0], ShouldEqual, heat.Participants[1])
			})
		})

		Convey("When completing a heat that was never drawn", func() {
			_, err := svc.CompleteHeat(ctx, "heats", 9)

			Convey("Then the heat is not found", func() {
				So(errors.Is(err, repository.ErrHeatNotFound), ShouldBeTrue)
			})
		})

		Convey("When allocating heats for a final", func() {
			_, err := svc.CreateRound(ctx, service.RoundSpec{ID: "f", Kind: model.KindFinal, Participants: []string{"a"}})
			So(err, ShouldBeNil)
			_, err = svc.AllocateHeats(ctx, "f", 0, 1)

			Convey("Then the kind is wrong", func() {
				So(errors.Is(err, service.ErrWrongKind), ShouldBeTrue)
			})
		})
	})
}

func TestServiceIntegration_Selection(t *testing.T) {
	Convey("Given a semifinal of ten couples where six advance", t, func() {
		svc, ctx, cancel := startService()
		defer cancel()
		defer svc.Stop()

		couples := make([]string, 10)
		for i := range couples {
			couples[i] = fmt.Sprintf("c%02d", i+1)
		}
		_, err := svc.CreateRound(ctx, service.RoundSpec{ID: "semi", Kind: model.KindSemifinal, Participants: couples, TopN: 6})
		So(err, ShouldBeNil)

		Convey("When three judges submit overlapping picks", func() {
			picks := []model.JudgeSelection{
				{JudgeID: "j1", Selected: []string{"c01", "c02", "c03", "c04", "c05", "c06"}},
				{JudgeID: "j2", Selected: []string{"c01", "c02", "c03", "c04", "c07", "c08"}},
				{JudgeID: "j3", Selected: []string{"c01", "c02", "c05", "c07", "c09", "c10"}},
			}
			for i, p := range picks {
				_, err := svc.SubmitSelection(ctx, "semi", fmt.Sprintf("pick-%d", i), p)
				So(err, ShouldBeNil)
			}
			waitDrained(svc)
			res, err := svc.Result(ctx, "semi")

			Convey("Then the most picked couples advance", func() {
				So(err, ShouldBeNil)
				So(res.Advancing, ShouldResemble, []string{"c01", "c02", "c03", "c04", "c05", "c07"})
				So(res.Standings[0].Score, ShouldEqual, 3)
				So(res.Standings, ShouldHaveLength, 10)
			})
		})
	})
}

func TestServiceIntegration_Parameters(t *testing.T) {
	Convey("Given a parameters round with two performances", t, func() {
		svc, ctx, cancel := startService()
		defer cancel()
		defer svc.Stop()

		_, err := svc.CreateRound(ctx, service.RoundSpec{
			ID:           "solo",
			Kind:         model.KindParameters,
			Participants: []string{"x", "y"},
			ParameterIDs: []string{"a", "b"},
		})
		So(err, ShouldBeNil)

		Convey("When two judges score both performances", func() {
			sets := []model.ScoreSet{
				{PerformanceID: "y", JudgeID: "j1", Scores: map[string]float64{"a": 6, "b": 6}},
				{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 8, "b": 7}},
				{PerformanceID: "x", JudgeID: "j2", Scores: map[string]float64{"a": 9, "b": 6}},
				{PerformanceID: "y", JudgeID: "j2", Scores: map[string]float64{"a": 7, "b": 6}},
			}
			for _, set := range sets {
				_, err := svc.SubmitScores(ctx, "solo", "", set)
				So(err, ShouldBeNil)
			}
			res, err := svc.Result(ctx, "solo")

			Convey("Then the higher total ranks first", func() {
				So(err, ShouldBeNil)
				So(ids(res), ShouldResemble, []string{"x", "y"})
				So(res.Standings[0].Score, ShouldEqual, 30)
				So(res.Standings[1].Score, ShouldEqual, 25)
				So(res.Standings[0].Judges, ShouldEqual, 2)
			})
		})
	})
}
