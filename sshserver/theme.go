package sshserver

import (
	"strconv"
	"strings"
)

type rgb struct {
	r int
	g int
	b int
}

type viewerTheme struct {
	Name     string
	HeaderBG rgb
	HeaderFG rgb
	StatusBG rgb
	StatusFG rgb
	MarkerFG rgb
	AlertFG  rgb
}

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
)

const defaultTheme = "outrun"

var viewerThemes = map[string]viewerTheme{
	"outrun": {
		Name:     "outrun",
		HeaderBG: rgb{r: 0, g: 229, b: 255},
		HeaderFG: rgb{r: 10, g: 13, b: 23},
		StatusBG: rgb{r: 32, g: 8, b: 56},
		StatusFG: rgb{r: 240, g: 241, b: 255},
		MarkerFG: rgb{r: 110, g: 136, b: 255},
		AlertFG:  rgb{r: 255, g: 91, b: 189},
	},
	"gruvbox": {
		Name:     "gruvbox",
		HeaderBG: rgb{r: 250, g: 189, b: 47},
		HeaderFG: rgb{r: 40, g: 40, b: 40},
		StatusBG: rgb{r: 60, g: 56, b: 54},
		StatusFG: rgb{r: 235, g: 219, b: 178},
		MarkerFG: rgb{r: 146, g: 131, b: 116},
		AlertFG:  rgb{r: 251, g: 73, b: 52},
	},
	"tokyo-midnight": {
		Name:     "tokyo-midnight",
		HeaderBG: rgb{r: 122, g: 162, b: 247},
		HeaderFG: rgb{r: 26, g: 27, b: 38},
		StatusBG: rgb{r: 26, g: 27, b: 38},
		StatusFG: rgb{r: 192, g: 202, b: 245},
		MarkerFG: rgb{r: 127, g: 133, b: 163},
		AlertFG:  rgb{r: 247, g: 118, b: 142},
	},
}

// themeForName maps the core's theme name onto a viewer palette. Core themes
// are matched loosely ("Gruvbox Dark" picks gruvbox); anything else falls back
// to the default palette.
func themeForName(name string) viewerTheme {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if theme, ok := viewerThemes[normalized]; ok {
		return theme
	}
	for key, theme := range viewerThemes {
		if normalized != "" && strings.Contains(normalized, key) {
			return theme
		}
	}
	return viewerThemes[defaultTheme]
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

func ansiBgRGB(c rgb) string {
	return "\x1b[48;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}
