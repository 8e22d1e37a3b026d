// Package frontendtest provides a recording front-end for transport tests.
package frontendtest

import (
	"fmt"
	"sync"
	"time"

	"pkt.systems/frontline/schema"
)

// Recorder is a front-end that logs each call as one line. MeasureWidth
// answers with Widths.
type Recorder struct {
	mu     sync.Mutex
	calls  []string
	Widths schema.WidthResponse
}

func (r *Recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// Calls returns the recorded calls in arrival order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recorder) UpdateView(viewID schema.ViewID, update *schema.Update) {
	r.add("update %s %d", viewID, len(update.Ops))
}
func (r *Recorder) ScrollTo(viewID schema.ViewID, line, col int) {
	r.add("scroll_to %s %d %d", viewID, line, col)
}
func (r *Recorder) ConfigChanged(viewID schema.ViewID, changes schema.ConfigTable) {
	r.add("config_changed %s %d", viewID, len(changes))
}
func (r *Recorder) AvailableThemes(names []string) { r.add("available_themes %v", names) }
func (r *Recorder) AvailableLanguages(languages []schema.LanguageID) {
	r.add("available_languages %v", languages)
}
func (r *Recorder) ThemeChanged(name string, _ schema.ThemeSettings) {
	r.add("theme_changed %s", name)
}
func (r *Recorder) LanguageChanged(viewID schema.ViewID, language schema.LanguageID) {
	r.add("language_changed %s %s", viewID, language)
}
func (r *Recorder) PluginStarted(viewID schema.ViewID, plugin string) {
	r.add("plugin_started %s %s", viewID, plugin)
}
func (r *Recorder) PluginStopped(viewID schema.ViewID, plugin string, code int) {
	r.add("plugin_stopped %s %s %d", viewID, plugin, code)
}
func (r *Recorder) AvailablePlugins(viewID schema.ViewID, plugins []schema.ClientPluginInfo) {
	r.add("available_plugins %s %d", viewID, len(plugins))
}
func (r *Recorder) UpdateCmds(viewID schema.ViewID, plugin string, cmds []schema.Command) {
	r.add("update_cmds %s %s %d", viewID, plugin, len(cmds))
}
func (r *Recorder) DefStyle(style schema.Style) { r.add("def_style %d", style.ID) }
func (r *Recorder) FindStatus(viewID schema.ViewID, queries []schema.FindStatus) {
	r.add("find_status %s %d", viewID, len(queries))
}
func (r *Recorder) ReplaceStatus(viewID schema.ViewID, _ schema.Replace) {
	r.add("replace_status %s", viewID)
}
func (r *Recorder) MeasureWidth(reqs []schema.WidthReq) schema.WidthResponse {
	r.add("measure_width %d", len(reqs))
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Widths
}
func (r *Recorder) AddStatusItem(viewID schema.ViewID, source, key, value, alignment string) {
	r.add("add_status_item %s %s %s %s %s", viewID, source, key, value, alignment)
}
func (r *Recorder) UpdateStatusItem(viewID schema.ViewID, key, value string) {
	r.add("update_status_item %s %s %s", viewID, key, value)
}
func (r *Recorder) RemoveStatusItem(viewID schema.ViewID, key string) {
	r.add("remove_status_item %s %s", viewID, key)
}
func (r *Recorder) ShowHover(viewID schema.ViewID, requestID int, result string) {
	r.add("show_hover %s %d %s", viewID, requestID, result)
}
func (r *Recorder) ScheduleIdle(token int) { r.add("idle %d", token) }
func (r *Recorder) ScheduleTimer(_ time.Time, token int) { r.add("timer %d", token) }
func (r *Recorder) Alert(msg string) { r.add("alert %s", msg) }

// Wait polls until at least n calls were recorded or timeout passes.
func (r *Recorder) Wait(n int, timeout time.Duration) []string {
	deadline := time.Now().Add(timeout)
	for {
		calls := r.Calls()
		if len(calls) >= n || time.Now().After(deadline) {
			return calls
		}
		time.Sleep(5 * time.Millisecond)
	}
}
