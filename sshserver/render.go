package sshserver

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/frontline/internal/display"
)

type frame struct {
	view   *display.ViewState
	global display.GlobalState
	alert  string
	width  int
	height int
	styled bool
}

// render lays out one screen: a header naming the view, the view's visible
// lines and its status line.
func (f frame) render() []string {
	width, height := f.width, f.height
	if width <= 0 {
		width = 80
	}
	if height < 3 {
		height = 3
	}
	theme := themeForName(f.global.Theme)
	lines := make([]string, 0, height)
	lines = append(lines, f.header(theme, width))

	if f.view == nil {
		lines = append(lines, fitWidth("waiting for a view", width))
		for len(lines) < height {
			lines = append(lines, f.marker(theme))
		}
		return lines
	}

	rows := display.Render(*f.view, width, height-1)
	body, status := rows[:len(rows)-1], rows[len(rows)-1]
	for _, row := range body {
		// Invalid lines and filler both come back as "~".
		if row == "~" {
			lines = append(lines, f.marker(theme))
			continue
		}
		lines = append(lines, row)
	}
	if f.styled {
		status = ansiBgRGB(theme.StatusBG) + ansiFgRGB(theme.StatusFG) + runewidth.FillRight(status, width) + ansiReset
	}
	return append(lines, status)
}

func (f frame) header(theme viewerTheme, width int) string {
	title := " frontline"
	if f.view != nil {
		title = " " + f.view.ID.String()
		if f.view.Language != "" {
			title += " [" + string(f.view.Language) + "]"
		}
		if !f.view.Pristine {
			title += " +"
		}
	}
	title += " "
	alert := ""
	if f.alert != "" {
		alert = " " + f.alert + " "
	}
	titleWidth := runewidth.StringWidth(title)
	if titleWidth >= width {
		title = runewidth.Truncate(title, width, "")
		alert = ""
	} else {
		alert = runewidth.Truncate(alert, width-titleWidth, "")
	}
	pad := width - runewidth.StringWidth(title) - runewidth.StringWidth(alert)
	if !f.styled {
		return title + strings.Repeat(" ", pad) + alert
	}
	var b strings.Builder
	b.WriteString(ansiBgRGB(theme.HeaderBG))
	b.WriteString(ansiFgRGB(theme.HeaderFG))
	b.WriteString(ansiBold)
	b.WriteString(title)
	b.WriteString(strings.Repeat(" ", pad))
	if alert != "" {
		b.WriteString(ansiFgRGB(theme.AlertFG))
		b.WriteString(alert)
	}
	b.WriteString(ansiReset)
	return b.String()
}

func (f frame) marker(theme viewerTheme) string {
	if !f.styled {
		return "~"
	}
	return ansiDim + ansiFgRGB(theme.MarkerFG) + "~" + ansiReset
}

func fitWidth(text string, width int) string {
	return runewidth.Truncate(text, width, "")
}

func visibleWidth(text string) int {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] == 0x1b {
			for i++; i < len(text); i++ {
				c := text[i]
				if c >= 0x40 && c <= 0x7e && c != '[' {
					break
				}
			}
			continue
		}
		b.WriteByte(text[i])
	}
	return runewidth.StringWidth(b.String())
}
