package session

import (
	"context"
	"encoding/json"
	"errors"

	"pkt.systems/frontline/core"
	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

// EventContext is what editing logic sees while handling one event on one
// view. It carries the view's identifiers, a snapshot of its buffer and the
// client used to notify the front-end.
type EventContext struct {
	ViewID   schema.ViewID
	BufferID schema.BufferID
	Path     string

	lines    []string
	pristine bool
	ctx      context.Context
	logger   pslog.Logger
	session  *Session
	client   *core.Client
}

type linePayload struct {
	Text   string `json:"text"`
	Ln     int    `json:"ln"`
	Styles []int  `json:"styles"`
}

// Context returns a context whose logger is annotated with the view and
// buffer.
func (c *EventContext) Context() context.Context {
	return c.ctx
}

// Lines returns the buffer lines captured when the context was built.
func (c *EventContext) Lines() []string {
	return append([]string(nil), c.lines...)
}

// RenderInitial sends the whole buffer as a single insert. It is the first
// update a front-end sees for a view, so there is nothing to reuse.
func (c *EventContext) RenderInitial() {
	payloads := make([]json.RawMessage, 0, len(c.lines))
	for i, text := range c.lines {
		payload, err := json.Marshal(linePayload{Text: text, Ln: i + 1, Styles: []int{}})
		if err != nil {
			c.logger.Warn("session line encode failed", "line", i, "err", err)
			payload = json.RawMessage(`{}`)
		}
		payloads = append(payloads, payload)
	}
	c.logger.Debug("session initial render", "lines", len(payloads), "pristine", c.pristine)
	c.SendUpdate(schema.NewUpdate(c.pristine, schema.Insert(payloads)))
}

// SendUpdate forwards update for the context's view.
func (c *EventContext) SendUpdate(update *schema.Update) {
	c.client.UpdateView(c.ViewID, update)
}

// ScrollTo records the scroll position and tells the front-end.
func (c *EventContext) ScrollTo(line, col int) {
	c.session.setScroll(c.ViewID, line, col)
	c.client.ScrollTo(c.ViewID, line, col)
}

// Alert shows msg on remote front-ends.
func (c *EventContext) Alert(msg string) {
	c.client.Alert(msg)
}

// MeasureWidth asks the front-end for string widths. Transport errors are
// logged and returned.
func (c *EventContext) MeasureWidth(reqs []schema.WidthReq) (schema.WidthResponse, error) {
	resp, err := c.client.MeasureWidth(reqs)
	if err != nil {
		var terr *schema.TransportError
		if errors.As(err, &terr) {
			c.logger.Warn("session measure width failed", "kind", string(terr.Kind), "err", err)
		} else {
			c.logger.Warn("session measure width failed", "err", err)
		}
		return nil, err
	}
	return resp, nil
}
