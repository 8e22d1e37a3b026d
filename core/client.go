package core

import (
	"encoding/json"
	"fmt"
	"time"

	"pkt.systems/frontline/schema"
)

// Wire method names.
const (
	MethodUpdate             = "update"
	MethodScrollTo           = "scroll_to"
	MethodConfigChanged      = "config_changed"
	MethodAvailableThemes    = "available_themes"
	MethodAvailableLanguages = "available_languages"
	MethodThemeChanged       = "theme_changed"
	MethodLanguageChanged    = "language_changed"
	MethodPluginStarted      = "plugin_started"
	MethodPluginStopped      = "plugin_stopped"
	MethodAvailablePlugins   = "available_plugins"
	MethodUpdateCmds         = "update_cmds"
	MethodDefStyle           = "def_style"
	MethodFindStatus         = "find_status"
	MethodReplaceStatus      = "replace_status"
	MethodMeasureWidth       = "measure_width"
	MethodAlert              = "alert"
	MethodAddStatusItem      = "add_status_item"
	MethodUpdateStatusItem   = "update_status_item"
	MethodRemoveStatusItem   = "remove_status_item"
	MethodShowHover          = "show_hover"
)

// Client is the core's handle to one front-end. It holds either a remote
// peer or a direct front-end, fixed at construction. After construction it
// has no mutable state and is safe for concurrent use.
type Client struct {
	peer   Peer
	direct Frontend
}

// NewRemote returns a client that serializes every call onto peer.
func NewRemote(peer Peer) *Client {
	if peer == nil {
		panic("core: NewRemote with nil peer")
	}
	return &Client{peer: peer}
}

// NewDirect returns a client that calls fe synchronously in-process.
func NewDirect(fe Frontend) *Client {
	if fe == nil {
		panic("core: NewDirect with nil frontend")
	}
	return &Client{direct: fe}
}

// Remote reports whether the client uses a remote transport.
func (c *Client) Remote() bool {
	return c.peer != nil
}

// UpdateView sends a view update.
func (c *Client) UpdateView(viewID schema.ViewID, update *schema.Update) {
	if c.peer != nil {
		c.peer.SendNotification(MethodUpdate, map[string]any{
			"view_id": viewID,
			"update":  update,
		})
		return
	}
	c.direct.UpdateView(viewID, update)
}

// ScrollTo moves the view's scroll position.
func (c *Client) ScrollTo(viewID schema.ViewID, line, col int) {
	if c.peer != nil {
		c.peer.SendNotification(MethodScrollTo, map[string]any{
			"view_id": viewID,
			"line":    line,
			"col":     col,
		})
		return
	}
	c.direct.ScrollTo(viewID, line, col)
}

// ConfigChanged reports changed config keys for a view.
func (c *Client) ConfigChanged(viewID schema.ViewID, changes schema.ConfigTable) {
	if c.peer != nil {
		c.peer.SendNotification(MethodConfigChanged, map[string]any{
			"view_id": viewID,
			"changes": changes,
		})
		return
	}
	c.direct.ConfigChanged(viewID, changes)
}

// AvailableThemes lists the installed theme names.
func (c *Client) AvailableThemes(names []string) {
	if c.peer != nil {
		c.peer.SendNotification(MethodAvailableThemes, map[string]any{"themes": names})
		return
	}
	c.direct.AvailableThemes(names)
}

// AvailableLanguages lists the known languages.
func (c *Client) AvailableLanguages(languages []schema.LanguageID) {
	if c.peer != nil {
		c.peer.SendNotification(MethodAvailableLanguages, map[string]any{"languages": languages})
		return
	}
	c.direct.AvailableLanguages(languages)
}

// ThemeChanged reports the active theme.
func (c *Client) ThemeChanged(name string, theme schema.ThemeSettings) {
	if c.peer != nil {
		c.peer.SendNotification(MethodThemeChanged, map[string]any{
			"name":  name,
			"theme": theme,
		})
		return
	}
	c.direct.ThemeChanged(name, theme)
}

// LanguageChanged reports a view's new language.
func (c *Client) LanguageChanged(viewID schema.ViewID, language schema.LanguageID) {
	if c.peer != nil {
		c.peer.SendNotification(MethodLanguageChanged, map[string]any{
			"view_id":     viewID,
			"language_id": language,
		})
		return
	}
	c.direct.LanguageChanged(viewID, language)
}

// PluginStarted reports a plugin start.
func (c *Client) PluginStarted(viewID schema.ViewID, plugin string) {
	if c.peer != nil {
		c.peer.SendNotification(MethodPluginStarted, map[string]any{
			"view_id": viewID,
			"plugin":  plugin,
		})
		return
	}
	c.direct.PluginStarted(viewID, plugin)
}

// PluginStopped reports a plugin exit.
func (c *Client) PluginStopped(viewID schema.ViewID, plugin string, code int) {
	if c.peer != nil {
		c.peer.SendNotification(MethodPluginStopped, map[string]any{
			"view_id": viewID,
			"plugin":  plugin,
			"code":    code,
		})
		return
	}
	c.direct.PluginStopped(viewID, plugin, code)
}

// AvailablePlugins lists the plugins available to a view.
func (c *Client) AvailablePlugins(viewID schema.ViewID, plugins []schema.ClientPluginInfo) {
	if c.peer != nil {
		c.peer.SendNotification(MethodAvailablePlugins, map[string]any{
			"view_id": viewID,
			"plugins": plugins,
		})
		return
	}
	c.direct.AvailablePlugins(viewID, plugins)
}

// UpdateCmds replaces the command list of a plugin.
func (c *Client) UpdateCmds(viewID schema.ViewID, plugin string, cmds []schema.Command) {
	if c.peer != nil {
		c.peer.SendNotification(MethodUpdateCmds, map[string]any{
			"view_id": viewID,
			"plugin":  plugin,
			"cmds":    cmds,
		})
		return
	}
	c.direct.UpdateCmds(viewID, plugin, cmds)
}

// DefStyle defines a style. The wire payload is the style itself.
func (c *Client) DefStyle(style schema.Style) {
	if c.peer != nil {
		c.peer.SendNotification(MethodDefStyle, style)
		return
	}
	c.direct.DefStyle(style)
}

// FindStatus reports find query state.
func (c *Client) FindStatus(viewID schema.ViewID, queries []schema.FindStatus) {
	if c.peer != nil {
		c.peer.SendNotification(MethodFindStatus, map[string]any{
			"view_id": viewID,
			"queries": queries,
		})
		return
	}
	c.direct.FindStatus(viewID, queries)
}

// ReplaceStatus reports replace state.
func (c *Client) ReplaceStatus(viewID schema.ViewID, status schema.Replace) {
	if c.peer != nil {
		c.peer.SendNotification(MethodReplaceStatus, map[string]any{
			"view_id": viewID,
			"status":  status,
		})
		return
	}
	c.direct.ReplaceStatus(viewID, status)
}

// MeasureWidth asks the front-end for string widths. Remote calls block until
// the reply arrives and fail only with a *schema.TransportError. Direct calls
// never fail.
//
// A reply that does not decode into a WidthResponse panics: both ends share a
// fixed schema, so a mismatch is a bug rather than a runtime condition.
func (c *Client) MeasureWidth(reqs []schema.WidthReq) (schema.WidthResponse, error) {
	if c.peer == nil {
		return c.direct.MeasureWidth(reqs), nil
	}
	if reqs == nil {
		reqs = []schema.WidthReq{}
	}
	params, err := json.Marshal(reqs)
	if err != nil {
		return nil, schema.NewTransportError(schema.TransportErrorEncode, MethodMeasureWidth, err)
	}
	raw, err := c.peer.SendRequest(MethodMeasureWidth, json.RawMessage(params))
	if err != nil {
		return nil, err
	}
	var resp schema.WidthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		panic(fmt.Sprintf("core: malformed %s reply %q: %v", MethodMeasureWidth, raw, err))
	}
	return resp, nil
}

// Alert shows a message to the user. Only remote front-ends receive alerts;
// the Frontend interface has no generic message operation, so under the
// direct strategy this is a no-op.
func (c *Client) Alert(msg string) {
	if c.peer != nil {
		c.peer.SendNotification(MethodAlert, map[string]any{"msg": msg})
	}
}

// AddStatusItem adds a status bar item.
func (c *Client) AddStatusItem(viewID schema.ViewID, source, key, value, alignment string) {
	if c.peer != nil {
		c.peer.SendNotification(MethodAddStatusItem, map[string]any{
			"view_id":   viewID,
			"source":    source,
			"key":       key,
			"value":     value,
			"alignment": alignment,
		})
		return
	}
	c.direct.AddStatusItem(viewID, source, key, value, alignment)
}

// UpdateStatusItem changes a status bar item's value.
func (c *Client) UpdateStatusItem(viewID schema.ViewID, key, value string) {
	if c.peer != nil {
		c.peer.SendNotification(MethodUpdateStatusItem, map[string]any{
			"view_id": viewID,
			"key":     key,
			"value":   value,
		})
		return
	}
	c.direct.UpdateStatusItem(viewID, key, value)
}

// RemoveStatusItem removes a status bar item.
func (c *Client) RemoveStatusItem(viewID schema.ViewID, key string) {
	if c.peer != nil {
		c.peer.SendNotification(MethodRemoveStatusItem, map[string]any{
			"view_id": viewID,
			"key":     key,
		})
		return
	}
	c.direct.RemoveStatusItem(viewID, key)
}

// ShowHover displays hover content for a request.
func (c *Client) ShowHover(viewID schema.ViewID, requestID int, result string) {
	if c.peer != nil {
		c.peer.SendNotification(MethodShowHover, map[string]any{
			"view_id":    viewID,
			"request_id": requestID,
			"result":     result,
		})
		return
	}
	c.direct.ShowHover(viewID, requestID, result)
}

// ScheduleIdle asks the active strategy's scheduler to run token when idle.
func (c *Client) ScheduleIdle(token int) {
	if c.peer != nil {
		c.peer.ScheduleIdle(token)
		return
	}
	c.direct.ScheduleIdle(token)
}

// ScheduleTimer asks the active strategy's scheduler to run token at at.
func (c *Client) ScheduleTimer(at time.Time, token int) {
	if c.peer != nil {
		c.peer.ScheduleTimer(at, token)
		return
	}
	c.direct.ScheduleTimer(at, token)
}
