package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/frontline/schema"
)

// ErrUnknownMethod is returned by Deliver for methods outside the wire table.
var ErrUnknownMethod = errors.New("unknown method")

// Deliver decodes one message received from the core and invokes the
// matching method on fe. It is the host-side mirror of the remote strategy.
// The returned value is the reply for requests and nil for notifications.
// Alerts reach fe only when it implements Alerter.
func Deliver(fe Frontend, method string, params json.RawMessage) (any, error) {
	if fe == nil {
		return nil, errors.New("deliver: nil frontend")
	}
	switch method {
	case MethodUpdate:
		var p struct {
			ViewID schema.ViewID  `json:"view_id"`
			Update *schema.Update `json:"update"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		if p.Update == nil {
			return nil, fmt.Errorf("%s: missing update", method)
		}
		fe.UpdateView(p.ViewID, p.Update)
	case MethodScrollTo:
		var p struct {
			ViewID schema.ViewID `json:"view_id"`
			Line   int           `json:"line"`
			Col    int           `json:"col"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.ScrollTo(p.ViewID, p.Line, p.Col)
	case MethodConfigChanged:
		var p struct {
			ViewID  schema.ViewID      `json:"view_id"`
			Changes schema.ConfigTable `json:"changes"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.ConfigChanged(p.ViewID, p.Changes)
	case MethodAvailableThemes:
		var p struct {
			Themes []string `json:"themes"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.AvailableThemes(p.Themes)
	case MethodAvailableLanguages:
		var p struct {
			Languages []schema.LanguageID `json:"languages"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.AvailableLanguages(p.Languages)
	case MethodThemeChanged:
		var p struct {
			Name  string               `json:"name"`
			Theme schema.ThemeSettings `json:"theme"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.ThemeChanged(p.Name, p.Theme)
	case MethodLanguageChanged:
		var p struct {
			ViewID     schema.ViewID     `json:"view_id"`
			LanguageID schema.LanguageID `json:"language_id"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.LanguageChanged(p.ViewID, p.LanguageID)
	case MethodPluginStarted:
		var p struct {
			ViewID schema.ViewID `json:"view_id"`
			Plugin string        `json:"plugin"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.PluginStarted(p.ViewID, p.Plugin)
	case MethodPluginStopped:
		var p struct {
			ViewID schema.ViewID `json:"view_id"`
			Plugin string        `json:"plugin"`
			Code   int           `json:"code"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.PluginStopped(p.ViewID, p.Plugin, p.Code)
	case MethodAvailablePlugins:
		var p struct {
			ViewID  schema.ViewID             `json:"view_id"`
			Plugins []schema.ClientPluginInfo `json:"plugins"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.AvailablePlugins(p.ViewID, p.Plugins)
	case MethodUpdateCmds:
		var p struct {
			ViewID schema.ViewID    `json:"view_id"`
			Plugin string           `json:"plugin"`
			Cmds   []schema.Command `json:"cmds"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.UpdateCmds(p.ViewID, p.Plugin, p.Cmds)
	case MethodDefStyle:
		var style schema.Style
		if err := decodeParams(method, params, &style); err != nil {
			return nil, err
		}
		fe.DefStyle(style)
	case MethodFindStatus:
		var p struct {
			ViewID  schema.ViewID       `json:"view_id"`
			Queries []schema.FindStatus `json:"queries"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.FindStatus(p.ViewID, p.Queries)
	case MethodReplaceStatus:
		var p struct {
			ViewID schema.ViewID  `json:"view_id"`
			Status schema.Replace `json:"status"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.ReplaceStatus(p.ViewID, p.Status)
	case MethodMeasureWidth:
		var reqs []schema.WidthReq
		if err := decodeParams(method, params, &reqs); err != nil {
			return nil, err
		}
		resp := fe.MeasureWidth(reqs)
		if resp == nil {
			resp = schema.WidthResponse{}
		}
		return resp, nil
	case MethodAlert:
		var p struct {
			Msg string `json:"msg"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		if alerter, ok := fe.(Alerter); ok {
			alerter.Alert(p.Msg)
		}
	case MethodAddStatusItem:
		var p struct {
			ViewID    schema.ViewID `json:"view_id"`
			Source    string        `json:"source"`
			Key       string        `json:"key"`
			Value     string        `json:"value"`
			Alignment string        `json:"alignment"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.AddStatusItem(p.ViewID, p.Source, p.Key, p.Value, p.Alignment)
	case MethodUpdateStatusItem:
		var p struct {
			ViewID schema.ViewID `json:"view_id"`
			Key    string        `json:"key"`
			Value  string        `json:"value"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.UpdateStatusItem(p.ViewID, p.Key, p.Value)
	case MethodRemoveStatusItem:
		var p struct {
			ViewID schema.ViewID `json:"view_id"`
			Key    string        `json:"key"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.RemoveStatusItem(p.ViewID, p.Key)
	case MethodShowHover:
		var p struct {
			ViewID    schema.ViewID `json:"view_id"`
			RequestID int           `json:"request_id"`
			Result    string        `json:"result"`
		}
		if err := decodeParams(method, params, &p); err != nil {
			return nil, err
		}
		fe.ShowHover(p.ViewID, p.RequestID, p.Result)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMethod, method)
	}
	return nil, nil
}

// IsRequest reports whether method expects a reply.
func IsRequest(method string) bool {
	return method == MethodMeasureWidth
}

func decodeParams(method string, params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return fmt.Errorf("%s: missing params", method)
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("%s: decode params: %w", method, err)
	}
	return nil
}
