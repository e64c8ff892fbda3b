package ranking_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregateParameters(t *testing.T) {
	params := []string{"a", "b"}

	Convey("Given two judges scoring two performances", t, func() {
		sets := []model.ScoreSet{
			{PerformanceID: "y", JudgeID: "j1", Scores: map[string]float64{"a": 5, "b": 6}},
			{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 8, "b": 7}},
			{PerformanceID: "x", JudgeID: "j2", Scores: map[string]float64{"a": 9, "b": 6}},
			{PerformanceID: "y", JudgeID: "j2", Scores: map[string]float64{"a": 7, "b": 7}},
		}

		Convey("When aggregating", func() {
			standings, err := ranking.AggregateParameters(sets, params)

			Convey("Then totals are summed over judges and parameters", func() {
				So(err, ShouldBeNil)
				So(standings, ShouldHaveLength, 2)
				So(standings[0].PerformanceID, ShouldEqual, "x")
				So(standings[0].TotalScore, ShouldEqual, 30)
				So(standings[0].Rank, ShouldEqual, 1)
				So(standings[0].Judges, ShouldEqual, 2)
				So(standings[1].PerformanceID, ShouldEqual, "y")
				So(standings[1].TotalScore, ShouldEqual, 25)
				So(standings[1].Rank, ShouldEqual, 2)
			})
		})
	})

	Convey("Given equal totals", t, func() {
		sets := []model.ScoreSet{
			{PerformanceID: "late", JudgeID: "j1", Scores: map[string]float64{"a": 5}},
			{PerformanceID: "early", JudgeID: "j1", Scores: map[string]float64{"a": 5}},
		}

		Convey("Then the performance seen first ranks first", func() {
			standings, err := ranking.AggregateParameters(sets, params)
			So(err, ShouldBeNil)
			So(standings[0].PerformanceID, ShouldEqual, "late")
			So(standings[1].PerformanceID, ShouldEqual, "early")
			So(standings[1].Rank, ShouldEqual, 2)
		})
	})

	Convey("Given scores outside the listed parameters", t, func() {
		sets := []model.ScoreSet{
			{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 4, "style": 10}},
			{PerformanceID: "z", JudgeID: "j1", Scores: map[string]float64{"style": 10}},
		}

		Convey("When aggregating over a and b", func() {
			standings, err := ranking.AggregateParameters(sets, params)

			Convey("Then unlisted parameters are ignored and empty performances excluded", func() {
				So(err, ShouldBeNil)
				So(standings, ShouldHaveLength, 1)
				So(standings[0].PerformanceID, ShouldEqual, "x")
				So(standings[0].TotalScore, ShouldEqual, 4)
			})
		})

		Convey("When aggregating with no parameter list", func() {
			standings, err := ranking.AggregateParameters(sets, nil)

			Convey("Then every parameter counts", func() {
				So(err, ShouldBeNil)
				So(standings, ShouldHaveLength, 2)
				So(standings[0].PerformanceID, ShouldEqual, "x")
				So(standings[0].TotalScore, ShouldEqual, 14)
			})
		})
	})

	Convey("Given a judge who rescored a performance", t, func() {
		sets := []model.ScoreSet{
			{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 1, "b": 1}},
			{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 9, "b": 9}},
		}

		Convey("Then only the latest scores count", func() {
			standings, err := ranking.AggregateParameters(sets, params)
			So(err, ShouldBeNil)
			So(standings[0].TotalScore, ShouldEqual, 18)
			So(standings[0].Judges, ShouldEqual, 1)
		})
	})

	Convey("Given invalid scores", t, func() {
		Convey("When a score is above the range", func() {
			_, err := ranking.AggregateParameters([]model.ScoreSet{{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 11}}}, params)
			So(errors.Is(err, ranking.ErrInvalidScore), ShouldBeTrue)
		})

		Convey("When a score is NaN", func() {
			_, err := ranking.AggregateParameters([]model.ScoreSet{{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": math.NaN()}}}, params)
			So(errors.Is(err, ranking.ErrInvalidScore), ShouldBeTrue)
		})

		Convey("When a custom range allows it", func() {
			standings, err := ranking.AggregateParameters(
				[]model.ScoreSet{{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 0, "b": 20}}},
				params, ranking.WithScoreRange(0, 20))
			So(err, ShouldBeNil)
			So(standings[0].TotalScore, ShouldEqual, 20)
		})

		Convey("When the performance id is missing", func() {
			_, err := ranking.AggregateParameters([]model.ScoreSet{{JudgeID: "j1", Scores: map[string]float64{"a": 5}}}, params)
			So(errors.Is(err, ranking.ErrInvalidScoreSet), ShouldBeTrue)
		})
	})

	Convey("Given fractional scores that tie another performance", t, func() {
		sets := []model.ScoreSet{
			{PerformanceID: "y", JudgeID: "j1", Scores: map[string]float64{"a": 6.6}},
			{PerformanceID: "x", JudgeID: "j1", Scores: map[string]float64{"a": 1.1, "b": 2.2, "c": 3.3}},
		}

		Convey("When aggregating repeatedly", func() {
			first, err := ranking.AggregateParameters(sets, nil)
			So(err, ShouldBeNil)

			Convey("Then totals are exact and the first-seen performance stays ahead", func() {
				So(first, ShouldHaveLength, 2)
				So(first[0].PerformanceID, ShouldEqual, "y")
				So(first[0].TotalScore, ShouldEqual, 6.6)
				So(first[1].PerformanceID, ShouldEqual, "x")
				So(first[1].TotalScore, ShouldEqual, 6.6)

				for i := 0; i < 200; i++ {
					again, err := ranking.AggregateParameters(sets, nil)
					So(err, ShouldBeNil)
					So(again, ShouldResemble, first)
				}
			})
		})
	})

	Convey("Given no score sets", t, func() {
		standings, err := ranking.AggregateParameters(nil, params)
		So(err, ShouldBeNil)
		So(standings, ShouldBeEmpty)
	})
}
