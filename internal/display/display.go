// Package display is an in-process front-end. It keeps the state the core
// pushes for every view and publishes change events for viewers.
package display

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"pkt.systems/frontline/core"
	"pkt.systems/frontline/internal/eventbus"
	"pkt.systems/frontline/internal/idle"
	"pkt.systems/frontline/internal/linecache"
	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

const maxAlerts = 32

// StatusItem is one entry of a view's status bar.
type StatusItem struct {
	Source    string
	Key       string
	Value     string
	Alignment string
}

// Hover is the last hover result shown for a view.
type Hover struct {
	RequestID int
	Result    string
}

// ViewState is a copy of everything known about one view.
type ViewState struct {
	ID       schema.ViewID
	Lines    []linecache.Line
	Invalid  []int
	Pristine bool
	// Stale is set when an update could not be applied; the lines are those
	// of the last successful update.
	Stale       bool
	Line        int
	Col         int
	Language    schema.LanguageID
	Config      schema.ConfigTable
	StatusItems []StatusItem
	Plugins     []schema.ClientPluginInfo
	Running     []string
	Commands    map[string][]schema.Command
	Find        []schema.FindStatus
	Replace     *schema.Replace
	Hover       *Hover
	Updated     time.Time
}

// GlobalState holds the state shared by all views.
type GlobalState struct {
	Themes    []string
	Theme     string
	Settings  schema.ThemeSettings
	Languages []schema.LanguageID
	Styles    map[int]schema.Style
	Alerts    []string
}

// Options configures a Display.
type Options struct {
	Bus    *eventbus.Bus
	Logger pslog.Logger
	// MaxViews bounds the number of tracked views; the least recently
	// touched view is dropped first. Zero means unbounded.
	MaxViews int
	// IdleHandler receives idle and timer tokens. The default logs them.
	IdleHandler idle.Handler
}

type view struct {
	state   ViewState
	cache   *linecache.Cache
	touched uint64
}

// Display implements core.Frontend and core.Alerter.
type Display struct {
	bus      *eventbus.Bus
	logger   pslog.Logger
	sched    *idle.Scheduler
	maxViews int

	mu     sync.Mutex
	views  map[schema.ViewID]*view
	global GlobalState
	seq    uint64
	last   schema.ViewID
}

var (
	_ core.Frontend = (*Display)(nil)
	_ core.Alerter  = (*Display)(nil)
)

// New constructs a Display. Close releases its scheduler.
func New(opts Options) *Display {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	handler := opts.IdleHandler
	if handler == nil {
		handler = func(token int) {
			logger.Trace("display idle token", "token", token)
		}
	}
	return &Display{
		bus:      opts.Bus,
		logger:   logger,
		sched:    idle.New(handler, logger),
		maxViews: opts.MaxViews,
		views:    make(map[schema.ViewID]*view),
		global:   GlobalState{Styles: make(map[int]schema.Style)},
	}
}

// Close stops pending idle and timer tokens.
func (d *Display) Close() {
	d.sched.Close()
}

// viewLocked returns the view, creating it when needed. d.mu must be held.
func (d *Display) viewLocked(viewID schema.ViewID) *view {
	d.seq++
	v, ok := d.views[viewID]
	if !ok {
		v = &view{state: ViewState{ID: viewID}, cache: linecache.New()}
		d.views[viewID] = v
		d.evictLocked(viewID)
	}
	v.touched = d.seq
	v.state.Updated = time.Now()
	d.last = viewID
	return v
}

func (d *Display) evictLocked(keep schema.ViewID) {
	if d.maxViews <= 0 {
		return
	}
	for len(d.views) > d.maxViews {
		var oldest schema.ViewID
		var oldestSeq uint64
		for id, v := range d.views {
			if id == keep {
				continue
			}
			if oldestSeq == 0 || v.touched < oldestSeq {
				oldest, oldestSeq = id, v.touched
			}
		}
		if oldestSeq == 0 {
			return
		}
		delete(d.views, oldest)
		d.logger.Debug("display view evicted", "view", oldest.String(), "max_views", d.maxViews)
	}
}

func (d *Display) publish(eventType eventbus.EventType, viewID schema.ViewID) {
	d.bus.Publish(eventbus.Event{Type: eventType, ViewID: viewID})
}

// UpdateView replays update against the view's cached lines.
func (d *Display) UpdateView(viewID schema.ViewID, update *schema.Update) {
	log := d.logger.With("view", viewID.String())
	d.mu.Lock()
	v := d.viewLocked(viewID)
	result, err := v.cache.Apply(update)
	if err != nil {
		v.state.Stale = true
		d.mu.Unlock()
		log.Warn("display update rejected", "err", err)
		d.publish(eventbus.EventView, viewID)
		return
	}
	v.state.Stale = false
	v.state.Invalid = result.Invalid
	if update != nil {
		v.state.Pristine = update.Pristine
	}
	lines := v.cache.Len()
	d.mu.Unlock()
	log.Trace("display update applied", "lines", lines, "inserted", result.Inserted, "reused", result.Reused, "invalid", len(result.Invalid))
	d.publish(eventbus.EventView, viewID)
}

// ScrollTo records the view's scroll position.
func (d *Display) ScrollTo(viewID schema.ViewID, line, col int) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	v.state.Line, v.state.Col = line, col
	d.mu.Unlock()
	d.publish(eventbus.EventView, viewID)
}

// ConfigChanged merges changes into the view's config.
func (d *Display) ConfigChanged(viewID schema.ViewID, changes schema.ConfigTable) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	if v.state.Config == nil {
		v.state.Config = make(schema.ConfigTable, len(changes))
	}
	for key, value := range changes {
		v.state.Config[key] = value
	}
	d.mu.Unlock()
	d.publish(eventbus.EventView, viewID)
}

// AvailableThemes records the theme names.
func (d *Display) AvailableThemes(names []string) {
	d.mu.Lock()
	d.global.Themes = append([]string(nil), names...)
	d.mu.Unlock()
	d.publish(eventbus.EventGlobal, 0)
}

// AvailableLanguages records the language list.
func (d *Display) AvailableLanguages(languages []schema.LanguageID) {
	d.mu.Lock()
	d.global.Languages = append([]schema.LanguageID(nil), languages...)
	d.mu.Unlock()
	d.publish(eventbus.EventGlobal, 0)
}

// ThemeChanged records the active theme.
func (d *Display) ThemeChanged(name string, theme schema.ThemeSettings) {
	d.mu.Lock()
	d.global.Theme = name
	d.global.Settings = theme
	d.mu.Unlock()
	d.logger.Debug("display theme changed", "theme", name)
	d.publish(eventbus.EventGlobal, 0)
}

// LanguageChanged records a view's language.
func (d *Display) LanguageChanged(viewID schema.ViewID, language schema.LanguageID) {
	d.mu.Lock()
	d.viewLocked(viewID).state.Language = language
	d.mu.Unlock()
	d.publish(eventbus.EventView, viewID)
}

// PluginStarted marks plugin as running on the view.
func (d *Display) PluginStarted(viewID schema.ViewID, plugin string) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	if !contains(v.state.Running, plugin) {
		v.state.Running = append(v.state.Running, plugin)
	}
	d.mu.Unlock()
	d.publish(eventbus.EventPlugin, viewID)
}

// PluginStopped removes plugin from the running set and drops its commands.
func (d *Display) PluginStopped(viewID schema.ViewID, plugin string, code int) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	v.state.Running = remove(v.state.Running, plugin)
	delete(v.state.Commands, plugin)
	d.mu.Unlock()
	if code != 0 {
		d.logger.Info("display plugin stopped", "view", viewID.String(), "plugin", plugin, "code", code)
	}
	d.publish(eventbus.EventPlugin, viewID)
}

// AvailablePlugins replaces the view's plugin list.
func (d *Display) AvailablePlugins(viewID schema.ViewID, plugins []schema.ClientPluginInfo) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	v.state.Plugins = append([]schema.ClientPluginInfo(nil), plugins...)
	v.state.Running = v.state.Running[:0]
	for _, plugin := range plugins {
		if plugin.Running {
			v.state.Running = append(v.state.Running, plugin.Name)
		}
	}
	d.mu.Unlock()
	d.publish(eventbus.EventPlugin, viewID)
}

// UpdateCmds replaces the commands offered by plugin.
func (d *Display) UpdateCmds(viewID schema.ViewID, plugin string, cmds []schema.Command) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	if v.state.Commands == nil {
		v.state.Commands = make(map[string][]schema.Command)
	}
	v.state.Commands[plugin] = append([]schema.Command(nil), cmds...)
	d.mu.Unlock()
	d.publish(eventbus.EventPlugin, viewID)
}

// DefStyle defines or replaces a style.
func (d *Display) DefStyle(style schema.Style) {
	d.mu.Lock()
	d.global.Styles[style.ID] = style
	d.mu.Unlock()
	d.publish(eventbus.EventGlobal, 0)
}

// FindStatus replaces the view's find queries.
func (d *Display) FindStatus(viewID schema.ViewID, queries []schema.FindStatus) {
	d.mu.Lock()
	d.viewLocked(viewID).state.Find = append([]schema.FindStatus(nil), queries...)
	d.mu.Unlock()
	d.publish(eventbus.EventStatus, viewID)
}

// ReplaceStatus records the view's replace state.
func (d *Display) ReplaceStatus(viewID schema.ViewID, status schema.Replace) {
	d.mu.Lock()
	d.viewLocked(viewID).state.Replace = &status
	d.mu.Unlock()
	d.publish(eventbus.EventStatus, viewID)
}

// MeasureWidth returns the terminal cell width of every string.
func (d *Display) MeasureWidth(reqs []schema.WidthReq) schema.WidthResponse {
	resp := make(schema.WidthResponse, len(reqs))
	for i, req := range reqs {
		widths := make([]float64, len(req.Strings))
		for j, text := range req.Strings {
			widths[j] = float64(runewidth.StringWidth(text))
		}
		resp[i] = widths
	}
	return resp
}

// Alert records msg and notifies every viewer.
func (d *Display) Alert(msg string) {
	d.mu.Lock()
	d.global.Alerts = append(d.global.Alerts, msg)
	if len(d.global.Alerts) > maxAlerts {
		d.global.Alerts = d.global.Alerts[len(d.global.Alerts)-maxAlerts:]
	}
	d.mu.Unlock()
	d.logger.Info("display alert", "msg", msg)
	d.bus.Publish(eventbus.Event{Type: eventbus.EventGlobal, Alert: msg})
}

// AddStatusItem appends a status item, replacing one with the same key.
func (d *Display) AddStatusItem(viewID schema.ViewID, source, key, value, alignment string) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	item := StatusItem{Source: source, Key: key, Value: value, Alignment: alignment}
	replaced := false
	for i := range v.state.StatusItems {
		if v.state.StatusItems[i].Key == key {
			v.state.StatusItems[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		v.state.StatusItems = append(v.state.StatusItems, item)
	}
	d.mu.Unlock()
	d.publish(eventbus.EventStatus, viewID)
}

// UpdateStatusItem changes the value of an existing item. Unknown keys are
// ignored.
func (d *Display) UpdateStatusItem(viewID schema.ViewID, key, value string) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	found := false
	for i := range v.state.StatusItems {
		if v.state.StatusItems[i].Key == key {
			v.state.StatusItems[i].Value = value
			found = true
			break
		}
	}
	d.mu.Unlock()
	if !found {
		d.logger.Debug("display status item unknown", "view", viewID.String(), "key", key)
		return
	}
	d.publish(eventbus.EventStatus, viewID)
}

// RemoveStatusItem drops the item with key.
func (d *Display) RemoveStatusItem(viewID schema.ViewID, key string) {
	d.mu.Lock()
	v := d.viewLocked(viewID)
	items := v.state.StatusItems[:0]
	for _, item := range v.state.StatusItems {
		if item.Key != key {
			items = append(items, item)
		}
	}
	v.state.StatusItems = items
	d.mu.Unlock()
	d.publish(eventbus.EventStatus, viewID)
}

// ShowHover records the hover result for the view.
func (d *Display) ShowHover(viewID schema.ViewID, requestID int, result string) {
	d.mu.Lock()
	d.viewLocked(viewID).state.Hover = &Hover{RequestID: requestID, Result: result}
	d.mu.Unlock()
	d.publish(eventbus.EventStatus, viewID)
}

// ScheduleIdle queues token on the display's idle scheduler.
func (d *Display) ScheduleIdle(token int) {
	d.sched.ScheduleIdle(token)
}

// ScheduleTimer arms a timer on the display's idle scheduler.
func (d *Display) ScheduleTimer(at time.Time, token int) {
	d.sched.ScheduleTimer(at, token)
}

// Snapshot returns a copy of the view state.
func (d *Display) Snapshot(viewID schema.ViewID) (ViewState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.views[viewID]
	if !ok {
		return ViewState{}, false
	}
	out := v.state
	out.Lines = v.cache.Lines()
	out.Invalid = append([]int(nil), v.state.Invalid...)
	out.StatusItems = append([]StatusItem(nil), v.state.StatusItems...)
	out.Plugins = append([]schema.ClientPluginInfo(nil), v.state.Plugins...)
	out.Running = append([]string(nil), v.state.Running...)
	out.Find = append([]schema.FindStatus(nil), v.state.Find...)
	if v.state.Config != nil {
		out.Config = make(schema.ConfigTable, len(v.state.Config))
		for key, value := range v.state.Config {
			out.Config[key] = value
		}
	}
	if v.state.Commands != nil {
		out.Commands = make(map[string][]schema.Command, len(v.state.Commands))
		for plugin, cmds := range v.state.Commands {
			out.Commands[plugin] = append([]schema.Command(nil), cmds...)
		}
	}
	if v.state.Replace != nil {
		replace := *v.state.Replace
		out.Replace = &replace
	}
	if v.state.Hover != nil {
		hover := *v.state.Hover
		out.Hover = &hover
	}
	return out, true
}

// Global returns a copy of the shared state.
func (d *Display) Global() GlobalState {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.global
	out.Themes = append([]string(nil), d.global.Themes...)
	out.Languages = append([]schema.LanguageID(nil), d.global.Languages...)
	out.Alerts = append([]string(nil), d.global.Alerts...)
	out.Styles = make(map[int]schema.Style, len(d.global.Styles))
	for id, style := range d.global.Styles {
		out.Styles[id] = style
	}
	return out
}

// Views returns the tracked view ids in ascending order.
func (d *Display) Views() []schema.ViewID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]schema.ViewID, 0, len(d.views))
	for id := range d.views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LastView returns the most recently touched view.
func (d *Display) LastView() (schema.ViewID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.views[d.last]; !ok {
		return 0, false
	}
	return d.last, true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func remove(list []string, value string) []string {
	out := list[:0]
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}
