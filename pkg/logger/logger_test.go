package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given a logger writing text to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("When logging at info", func() {
			Get().Info(context.Background(), "round created", String("round_id", "r1"), Int("participants", 6))

			Convey("Then the message, fields and source are written", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "round created")
				So(out, ShouldContainSubstring, "round_id=r1")
				So(out, ShouldContainSubstring, "participants=6")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging at debug with the default level", func() {
			Get().Debug(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(context.Background(), "visible")

			Convey("Then debug entries appear", func() {
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When the level string is unknown", func() {
			Convey("Then it is rejected", func() {
				So(SetLevelString("loud"), ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithJSON()), ShouldBeNil)

		Convey("When a named logger with bound fields writes an error", func() {
			Named("worker").With(Int64("revision", 3)).Error(context.Background(), "aggregate failed",
				Error(errors.New("boom")), Bool("final", false))

			Convey("Then every field lands in one object", func() {
				var entry map[string]any
				So(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry), ShouldBeNil)
				So(entry["msg"], ShouldEqual, "aggregate failed")
				So(entry["logger"], ShouldEqual, "worker")
				So(entry["revision"], ShouldEqual, 3)
				So(entry["final"], ShouldEqual, false)
				So(entry["level"], ShouldEqual, "ERROR")
			})
		})
	})
}
