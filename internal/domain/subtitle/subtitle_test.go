package subtitle_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tallyops/clickerd/internal/domain/subtitle"
	. "github.com/smartystreets/goconvey/convey"
)

// stream builds snapshots at millisecond offsets from a fixed origin.
func stream(points ...[4]int64) []subtitle.Snapshot {
	origin := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	out := make([]subtitle.Snapshot, 0, len(points))
	for _, p := range points {
		out = append(out, subtitle.Snapshot{
			At:    origin.Add(time.Duration(p[0]) * time.Millisecond),
			Plus:  int32(p[1]),
			Minus: int32(p[2]),
			Total: int32(p[3]),
		})
	}
	return out
}

func TestMergeBursts(t *testing.T) {
	Convey("Given a merger with a 400ms threshold and 1s hold", t, func() {
		m := subtitle.NewMerger()

		Convey("When two quick plus clicks are followed by a late minus", func() {
			// Cumulative counters: +1 at 0ms, +2 more at 100ms, one minus at 900ms.
			events := stream(
				[4]int64{0, 1, 0, 1},
				[4]int64{100, 3, 0, 3},
				[4]int64{900, 3, 1, 2},
			)
			entries, err := m.Merge(subtitle.ModeRealtime, events)

			Convey("Then the clicks coalesce into two captions", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)

				So(entries[0].Text, ShouldEqual, "+3")
				So(entries[0].Start, ShouldEqual, 0*time.Millisecond)
				So(entries[0].End, ShouldEqual, 1100*time.Millisecond)

				// 900-100=800ms exceeds the threshold, so the minus opens a fresh burst.
				So(entries[1].Text, ShouldEqual, "-1")
				So(entries[1].Start, ShouldEqual, 900*time.Millisecond)
				So(entries[1].End, ShouldEqual, 1900*time.Millisecond)
			})
		})

		Convey("When consecutive snapshots carry no delta", func() {
			events := stream(
				[4]int64{0, 1, 0, 1},
				[4]int64{50, 1, 0, 1},
				[4]int64{100, 1, 0, 1},
			)
			entries, err := m.Merge(subtitle.ModeRealtime, events)

			Convey("Then zero-delta events are skipped", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Text, ShouldEqual, "+1")
			})
		})

		Convey("When a burst mixes plus and minus deltas", func() {
			events := stream(
				[4]int64{0, 2, 0, 2},
				[4]int64{200, 3, 1, 2},
			)
			entries, err := m.Merge(subtitle.ModeRealtime, events)

			Convey("Then the caption shows both signed components", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Text, ShouldEqual, "+3 -1")
			})
		})

		Convey("When counters drop after a device reset", func() {
			events := stream(
				[4]int64{0, 5, 0, 5},
				[4]int64{2000, 0, 0, 0},
			)
			entries, err := m.Merge(subtitle.ModeRealtime, events)

			Convey("Then the negative-delta burst renders nothing and is dropped", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Text, ShouldEqual, "+5")
			})
		})

		Convey("When the stream is empty", func() {
			entries, err := m.Merge(subtitle.ModeRealtime, nil)

			Convey("Then no entries are produced", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a merger with a wider threshold", t, func() {
		m := subtitle.NewMerger(subtitle.WithBurstThreshold(time.Second))

		Convey("When events arrive 800ms apart", func() {
			events := stream(
				[4]int64{0, 1, 0, 1},
				[4]int64{800, 2, 0, 2},
			)
			entries, err := m.Merge(subtitle.ModeRealtime, events)

			Convey("Then they join a single burst", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Text, ShouldEqual, "+2")
			})
		})
	})
}

func TestMergeLevels(t *testing.T) {
	Convey("Given a merger in TOTAL mode", t, func() {
		m := subtitle.NewMerger()

		Convey("When the total changes twice within the hold window", func() {
			events := stream(
				[4]int64{0, 1, 0, 1},
				[4]int64{600, 2, 0, 2},
			)
			entries, err := m.Merge(subtitle.ModeTotal, events)

			Convey("Then the first caption is truncated at the second change", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Text, ShouldEqual, "1")
				So(entries[0].End, ShouldEqual, 600*time.Millisecond)
				So(entries[1].Start, ShouldEqual, 600*time.Millisecond)
				So(entries[1].End, ShouldEqual, 1600*time.Millisecond)
			})
		})

		Convey("When the total changes after the hold window elapsed", func() {
			events := stream(
				[4]int64{0, 1, 0, 1},
				[4]int64{1500, 2, 0, 2},
			)
			entries, err := m.Merge(subtitle.ModeTotal, events)

			Convey("Then both captions keep their full window", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].End, ShouldEqual, 1000*time.Millisecond)
			})
		})

		Convey("When the value does not change", func() {
			events := stream(
				[4]int64{0, 1, 0, 1},
				[4]int64{300, 1, 0, 1},
			)
			entries, err := m.Merge(subtitle.ModeTotal, events)

			Convey("Then only one caption is emitted", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a merger in SPLIT mode", t, func() {
		m := subtitle.NewMerger()

		Convey("When the pair changes", func() {
			events := stream(
				[4]int64{0, 1, 0, 1},
				[4]int64{2000, 1, 1, 0},
			)
			entries, err := m.Merge(subtitle.ModeSplit, events)

			Convey("Then captions show the plus/minus pair", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Text, ShouldEqual, "+1 / -0")
				So(entries[1].Text, ShouldEqual, "+1 / -1")
			})
		})
	})

	Convey("Given an unknown mode", t, func() {
		m := subtitle.NewMerger()

		Convey("When merging", func() {
			_, err := m.Merge(subtitle.Mode("KARAOKE"), stream([4]int64{0, 1, 0, 1}))

			Convey("Then it should fail with ErrUnknownMode", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, subtitle.ErrUnknownMode), ShouldBeTrue)
			})
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Given mode strings", t, func() {
		for in, want := range map[string]subtitle.Mode{
			"REALTIME": subtitle.ModeRealtime,
			"realtime": subtitle.ModeRealtime,
			"TOTAL":    subtitle.ModeTotal,
			" split ":  subtitle.ModeSplit,
		} {
			mode, err := subtitle.ParseMode(in)
			So(err, ShouldBeNil)
			So(mode, ShouldEqual, want)
		}

		_, err := subtitle.ParseMode("VERTICAL")
		So(errors.Is(err, subtitle.ErrUnknownMode), ShouldBeTrue)
	})
}
