package schema

// The payload types below are owned by the rendering, config, plugin and
// search subsystems. This module only passes them through.

// LanguageID names a syntax language.
type LanguageID string

// ConfigTable is a set of changed config keys.
type ConfigTable map[string]any

// ThemeSettings holds a theme's settings.
type ThemeSettings map[string]any

// Style describes a style the core refers to by id in line payloads.
type Style struct {
	ID        int     `json:"id"`
	FgColor   *uint32 `json:"fg_color,omitempty"`
	BgColor   *uint32 `json:"bg_color,omitempty"`
	Weight    *uint16 `json:"weight,omitempty"`
	Italic    *bool   `json:"italic,omitempty"`
	Underline *bool   `json:"underline,omitempty"`
}

// ClientPluginInfo describes a plugin available to a view.
type ClientPluginInfo struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// Command is a plugin command the front-end may expose.
type Command struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	RPCCmd      map[string]any `json:"rpc_cmd"`
	Args        []any          `json:"args"`
}

// FindStatus reports the state of one find query.
type FindStatus struct {
	ID            int     `json:"id"`
	Chars         *string `json:"chars,omitempty"`
	CaseSensitive *bool   `json:"case_sensitive,omitempty"`
	IsRegex       *bool   `json:"is_regex,omitempty"`
	WholeWords    *bool   `json:"whole_words,omitempty"`
	Matches       int     `json:"matches"`
	Lines         []int   `json:"lines"`
}

// Replace reports the current replace settings.
type Replace struct {
	Chars        string `json:"chars"`
	PreserveCase *bool  `json:"preserve_case,omitempty"`
}

// WidthReq asks the front-end to measure strings rendered with a style.
type WidthReq struct {
	ID      int      `json:"id"`
	Strings []string `json:"strings"`
}

// WidthResponse holds one width list per request, in request order.
type WidthResponse [][]float64

// Status item alignments accepted by front-ends.
const (
	AlignLeft  = "left"
	AlignRight = "right"
)
