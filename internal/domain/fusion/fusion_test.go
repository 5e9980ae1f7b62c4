package fusion_test

import (
	"errors"
	"testing"

	"github.com/tallyops/clickerd/internal/domain/fusion"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFuseSingle(t *testing.T) {
	Convey("Given a judge slot in SINGLE mode", t, func() {
		Convey("When the primary reports counters", func() {
			score := fusion.Fuse(fusion.ModeSingle, fusion.Counters{Plus: 12, Minus: 4}, fusion.Counters{})

			Convey("Then total is plus minus minus", func() {
				So(score.Total, ShouldEqual, 8)
				So(score.Plus, ShouldEqual, 12)
				So(score.Minus, ShouldEqual, 4)
			})
		})

		Convey("When no data has arrived yet", func() {
			score := fusion.Fuse(fusion.ModeSingle, fusion.Counters{}, fusion.Counters{})

			Convey("Then the score is zero", func() {
				So(score.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When secondary counters are present anyway", func() {
			score := fusion.Fuse(fusion.ModeSingle, fusion.Counters{Plus: 5, Minus: 1}, fusion.Counters{Plus: 99, Minus: 99})

			Convey("Then they are ignored entirely", func() {
				So(score, ShouldResemble, fusion.Score{Total: 4, Plus: 5, Minus: 1})
			})
		})
	})
}

func TestFuseDual(t *testing.T) {
	Convey("Given a judge slot in DUAL mode", t, func() {
		cases := []struct {
			name     string
			pri, sec fusion.Counters
		}{
			{"both devices active", fusion.Counters{Plus: 10, Minus: 3}, fusion.Counters{Plus: 4, Minus: 2}},
			{"secondary silent", fusion.Counters{Plus: 7, Minus: 1}, fusion.Counters{}},
			{"primary silent", fusion.Counters{}, fusion.Counters{Plus: 3, Minus: 1}},
			{"deduction exceeds score", fusion.Counters{Plus: 2, Minus: 0}, fusion.Counters{Plus: 9, Minus: 5}},
		}

		for _, tc := range cases {
			tc := tc
			Convey("When fusing with "+tc.name, func() {
				score := fusion.Fuse(fusion.ModeDual, tc.pri, tc.sec)

				Convey("Then total is pri.plus - sec.plus and minus is pri.minus + sec.minus", func() {
					So(score.Total, ShouldEqual, tc.pri.Plus-tc.sec.Plus)
					So(score.Plus, ShouldEqual, tc.pri.Plus)
					So(score.Minus, ShouldEqual, tc.pri.Minus+tc.sec.Minus)
				})
			})
		}

		Convey("When the same caches fuse twice", func() {
			pri := fusion.Counters{Plus: 6, Minus: 2}
			sec := fusion.Counters{Plus: 1, Minus: 1}

			Convey("Then the result is identical regardless of which role updated last", func() {
				So(fusion.Fuse(fusion.ModeDual, pri, sec), ShouldResemble, fusion.Fuse(fusion.ModeDual, pri, sec))
			})
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Given mode strings", t, func() {
		Convey("When parsing valid modes", func() {
			for in, want := range map[string]fusion.Mode{
				"SINGLE": fusion.ModeSingle,
				"single": fusion.ModeSingle,
				" DUAL ": fusion.ModeDual,
				"dual":   fusion.ModeDual,
			} {
				mode, err := fusion.ParseMode(in)
				So(err, ShouldBeNil)
				So(mode, ShouldEqual, want)
			}
		})

		Convey("When parsing an unknown mode", func() {
			_, err := fusion.ParseMode("TRIPLE")

			Convey("Then it should fail with ErrUnknownMode", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, fusion.ErrUnknownMode), ShouldBeTrue)
			})
		})
	})
}
