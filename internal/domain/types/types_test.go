package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/skating/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResult(t *testing.T) {
	Convey("Given a final result", t, func() {
		res := types.Result{
			RoundID:  "r1",
			Kind:     "final",
			Revision: 3,
			Final:    true,
			Standings: []types.Standing{
				{Position: 1, ParticipantID: "p2", Score: 5, Placements: []int{1, 2, 2}, DecidedBy: "rule9"},
				{Position: 2, ParticipantID: "p1", Score: 7, Placements: []int{1, 3, 3}},
			},
		}

		Convey("When listing participants", func() {
			Convey("Then they follow standing order", func() {
				So(res.Participants(), ShouldResemble, []string{"p2", "p1"})
			})
		})

		Convey("When encoding to JSON", func() {
			raw, err := json.Marshal(res)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(raw, &decoded), ShouldBeNil)

			Convey("Then field names are snake case and empty trace fields are omitted", func() {
				So(decoded["round_id"], ShouldEqual, "r1")
				So(decoded["final"], ShouldEqual, true)
				standings := decoded["standings"].([]any)
				first := standings[0].(map[string]any)
				So(first["participant_id"], ShouldEqual, "p2")
				So(first["decided_by"], ShouldEqual, "rule9")
				second := standings[1].(map[string]any)
				_, hasRule := second["decided_by"]
				So(hasRule, ShouldBeFalse)
				_, hasAdvancing := decoded["advancing"]
				So(hasAdvancing, ShouldBeFalse)
			})
		})
	})

	Convey("Given an empty result", t, func() {
		Convey("Then it lists no participants", func() {
			So(types.Result{}.Participants(), ShouldBeEmpty)
		})
	})
}
