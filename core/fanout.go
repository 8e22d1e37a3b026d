package core

import (
	"time"

	"pkt.systems/frontline/schema"
)

// Fanout forwards notifications to several front-ends in order. Nil entries
// are skipped. MeasureWidth and scheduling go to the first front-end only,
// so a token runs once and one metric source answers.
type Fanout []Frontend

func (f Fanout) each(fn func(Frontend)) {
	for _, fe := range f {
		if fe == nil {
			continue
		}
		fn(fe)
	}
}

func (f Fanout) first() Frontend {
	for _, fe := range f {
		if fe != nil {
			return fe
		}
	}
	return nil
}

func (f Fanout) UpdateView(viewID schema.ViewID, update *schema.Update) {
	f.each(func(fe Frontend) { fe.UpdateView(viewID, update) })
}

func (f Fanout) ScrollTo(viewID schema.ViewID, line, col int) {
	f.each(func(fe Frontend) { fe.ScrollTo(viewID, line, col) })
}

func (f Fanout) ConfigChanged(viewID schema.ViewID, changes schema.ConfigTable) {
	f.each(func(fe Frontend) { fe.ConfigChanged(viewID, changes) })
}

func (f Fanout) AvailableThemes(names []string) {
	f.each(func(fe Frontend) { fe.AvailableThemes(names) })
}

func (f Fanout) AvailableLanguages(languages []schema.LanguageID) {
	f.each(func(fe Frontend) { fe.AvailableLanguages(languages) })
}

func (f Fanout) ThemeChanged(name string, theme schema.ThemeSettings) {
	f.each(func(fe Frontend) { fe.ThemeChanged(name, theme) })
}

func (f Fanout) LanguageChanged(viewID schema.ViewID, language schema.LanguageID) {
	f.each(func(fe Frontend) { fe.LanguageChanged(viewID, language) })
}

func (f Fanout) PluginStarted(viewID schema.ViewID, plugin string) {
	f.each(func(fe Frontend) { fe.PluginStarted(viewID, plugin) })
}

func (f Fanout) PluginStopped(viewID schema.ViewID, plugin string, code int) {
	f.each(func(fe Frontend) { fe.PluginStopped(viewID, plugin, code) })
}

func (f Fanout) AvailablePlugins(viewID schema.ViewID, plugins []schema.ClientPluginInfo) {
	f.each(func(fe Frontend) { fe.AvailablePlugins(viewID, plugins) })
}

func (f Fanout) UpdateCmds(viewID schema.ViewID, plugin string, cmds []schema.Command) {
	f.each(func(fe Frontend) { fe.UpdateCmds(viewID, plugin, cmds) })
}

func (f Fanout) DefStyle(style schema.Style) {
	f.each(func(fe Frontend) { fe.DefStyle(style) })
}

func (f Fanout) FindStatus(viewID schema.ViewID, queries []schema.FindStatus) {
	f.each(func(fe Frontend) { fe.FindStatus(viewID, queries) })
}

func (f Fanout) ReplaceStatus(viewID schema.ViewID, status schema.Replace) {
	f.each(func(fe Frontend) { fe.ReplaceStatus(viewID, status) })
}

func (f Fanout) MeasureWidth(reqs []schema.WidthReq) schema.WidthResponse {
	if fe := f.first(); fe != nil {
		return fe.MeasureWidth(reqs)
	}
	return schema.WidthResponse{}
}

func (f Fanout) AddStatusItem(viewID schema.ViewID, source, key, value, alignment string) {
	f.each(func(fe Frontend) { fe.AddStatusItem(viewID, source, key, value, alignment) })
}

func (f Fanout) UpdateStatusItem(viewID schema.ViewID, key, value string) {
	f.each(func(fe Frontend) { fe.UpdateStatusItem(viewID, key, value) })
}

func (f Fanout) RemoveStatusItem(viewID schema.ViewID, key string) {
	f.each(func(fe Frontend) { fe.RemoveStatusItem(viewID, key) })
}

func (f Fanout) ShowHover(viewID schema.ViewID, requestID int, result string) {
	f.each(func(fe Frontend) { fe.ShowHover(viewID, requestID, result) })
}

func (f Fanout) ScheduleIdle(token int) {
	if fe := f.first(); fe != nil {
		fe.ScheduleIdle(token)
	}
}

func (f Fanout) ScheduleTimer(at time.Time, token int) {
	if fe := f.first(); fe != nil {
		fe.ScheduleTimer(at, token)
	}
}

// Alert forwards to every front-end that implements Alerter.
func (f Fanout) Alert(msg string) {
	f.each(func(fe Frontend) {
		if alerter, ok := fe.(Alerter); ok {
			alerter.Alert(msg)
		}
	})
}
