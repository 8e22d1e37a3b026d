package core

import (
	"time"

	"pkt.systems/frontline/schema"
)

// Frontend is the set of operations the editing core may invoke on a display
// surface. Every method except MeasureWidth is a notification: it returns
// nothing and the implementation handles its own failures.
type Frontend interface {
	UpdateView(viewID schema.ViewID, update *schema.Update)
	ScrollTo(viewID schema.ViewID, line, col int)
	ConfigChanged(viewID schema.ViewID, changes schema.ConfigTable)
	AvailableThemes(names []string)
	AvailableLanguages(languages []schema.LanguageID)
	ThemeChanged(name string, theme schema.ThemeSettings)
	LanguageChanged(viewID schema.ViewID, language schema.LanguageID)
	PluginStarted(viewID schema.ViewID, plugin string)
	// PluginStopped reports that a plugin exited. code is reserved for an
	// exit status.
	PluginStopped(viewID schema.ViewID, plugin string, code int)
	AvailablePlugins(viewID schema.ViewID, plugins []schema.ClientPluginInfo)
	UpdateCmds(viewID schema.ViewID, plugin string, cmds []schema.Command)
	DefStyle(style schema.Style)
	FindStatus(viewID schema.ViewID, queries []schema.FindStatus)
	ReplaceStatus(viewID schema.ViewID, status schema.Replace)
	// MeasureWidth is the only query: layout needs font metrics that only
	// the presentation layer has.
	MeasureWidth(reqs []schema.WidthReq) schema.WidthResponse
	AddStatusItem(viewID schema.ViewID, source, key, value, alignment string)
	UpdateStatusItem(viewID schema.ViewID, key, value string)
	RemoveStatusItem(viewID schema.ViewID, key string)
	ShowHover(viewID schema.ViewID, requestID int, result string)
	ScheduleIdle(token int)
	ScheduleTimer(at time.Time, token int)
}

// Alerter is implemented by front-ends that can display a free-form message.
// It is only reached through a remote transport; the direct strategy drops
// alerts.
type Alerter interface {
	Alert(msg string)
}
