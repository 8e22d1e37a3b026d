package display

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/frontline/internal/linecache"
)

const invalidMarker = "~"

// Render lays out state as terminal rows. width bounds every row in cells;
// height bounds the number of rows including the status line. Zero disables
// either bound. Rows start at the view's scroll line when it fits.
func Render(state ViewState, width, height int) []string {
	body := height
	if body > 0 {
		body--
	}
	start := 0
	if body > 0 && state.Line > 0 && state.Line < len(state.Lines) {
		start = state.Line
		if len(state.Lines)-start < body {
			start = max(0, len(state.Lines)-body)
		}
	}
	rows := make([]string, 0, len(state.Lines)+1)
	for i := start; i < len(state.Lines); i++ {
		if body > 0 && len(rows) == body {
			break
		}
		rows = append(rows, fit(lineText(state.Lines[i]), width))
	}
	for body > 0 && len(rows) < body {
		rows = append(rows, invalidMarker)
	}
	return append(rows, StatusLine(state, width))
}

// StatusLine joins left aligned items on the left and right aligned items on
// the right, padded to width cells.
func StatusLine(state ViewState, width int) string {
	var left, right []string
	for _, item := range state.StatusItems {
		if item.Alignment == "right" {
			right = append(right, item.Value)
			continue
		}
		left = append(left, item.Value)
	}
	if state.Stale {
		left = append([]string{"[stale]"}, left...)
	}
	l := strings.Join(left, "  ")
	r := strings.Join(right, "  ")
	if width <= 0 {
		if r == "" {
			return l
		}
		return l + "  " + r
	}
	rw := runewidth.StringWidth(r)
	if rw >= width {
		return runewidth.Truncate(r, width, "")
	}
	l = runewidth.Truncate(l, width-rw, "")
	return runewidth.FillRight(l, width-rw) + r
}

func lineText(line linecache.Line) string {
	if !line.Valid {
		return invalidMarker
	}
	text := linecache.PayloadText(line.Payload)
	return strings.TrimRight(text, "\r\n")
}

func fit(text string, width int) string {
	if width <= 0 {
		return text
	}
	return runewidth.Truncate(text, width, "")
}
