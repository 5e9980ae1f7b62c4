package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// RenderSRT renders caption entries as SubRip text: 1-based sequential
// indices, `HH:MM:SS,mmm --> HH:MM:SS,mmm` timing lines, blank-line
// separated blocks. The output is byte-stable for a given input stream.
func RenderSRT(entries []Entry) string {
	blocks := make([]string, 0, len(entries))
	for i, e := range entries {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, FormatTimestamp(e.Start), FormatTimestamp(e.End), e.Text))
	}
	return strings.Join(blocks, "\n")
}

// RenderTXT renders the raw stream as a tab-separated log with times
// relative to the first event in seconds.
func RenderTXT(events []Snapshot) string {
	if len(events) == 0 {
		return ""
	}

	origin := events[0].At
	lines := make([]string, 0, len(events)+1)
	lines = append(lines, "Timestamp\tPlus\tTotal\tMinus")
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("%.3f\t%d\t%d\t%d",
			e.At.Sub(origin).Seconds(), e.Plus, e.Total, e.Minus))
	}
	return strings.Join(lines, "\n")
}

// FormatTimestamp renders a stream-relative offset as `HH:MM:SS,mmm`.
// Negative offsets clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	millis := int(d.Milliseconds() % 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, (total%3600)/60, total%60, millis)
}
