// Package linecache keeps a front-end's cached rendering of a view and
// replays update op sequences against it.
package linecache

import (
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/frontline/schema"
)

// ErrOutOfRange is returned when an op references cached lines that do not
// exist.
var ErrOutOfRange = errors.New("op references lines outside the cache")

// Line is one cached line. Invalid lines have no content yet and must be
// re-requested or drawn as placeholders.
type Line struct {
	Payload json.RawMessage
	Valid   bool
}

// Result describes the outcome of one replay.
type Result struct {
	// Invalid lists output indices whose content must be re-requested.
	Invalid []int
	// Inserted counts lines supplied by insert ops.
	Inserted int
	// Reused counts cached lines kept by skip or copy ops.
	Reused int
}

// Cache holds the lines of one view. It is not safe for concurrent use.
type Cache struct {
	lines []Line
}

// New returns a cache seeded with valid lines.
func New(payloads ...json.RawMessage) *Cache {
	c := &Cache{lines: make([]Line, 0, len(payloads))}
	for _, payload := range payloads {
		c.lines = append(c.lines, Line{Payload: payload, Valid: true})
	}
	return c
}

// Len returns the number of cached lines.
func (c *Cache) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the cached lines.
func (c *Cache) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Apply replays update against the cache. Ops run in order with two cursors,
// one over the output and one over the old cache:
//
//	skip n        keep the next n cached lines; both cursors advance
//	invalidate n  emit n invalid lines replacing the next n cached lines
//	copy n, ln    emit cached lines ln..ln+n-1; the old cursor moves to ln+n
//	ins lines     emit the new lines; the old cursor stays
//
// On error the cache is left unchanged.
func (c *Cache) Apply(update *schema.Update) (Result, error) {
	var result Result
	if update == nil {
		return result, nil
	}
	next := make([]Line, 0, update.LineCount())
	old := 0
	for i, op := range update.Ops {
		n := op.N()
		switch op.Op() {
		case schema.OpSkip:
			if old+n > len(c.lines) {
				return Result{}, fmt.Errorf("op %d %s at cache line %d of %d: %w", i, op, old, len(c.lines), ErrOutOfRange)
			}
			for _, line := range c.lines[old : old+n] {
				if !line.Valid {
					result.Invalid = append(result.Invalid, len(next))
				} else {
					result.Reused++
				}
				next = append(next, line)
			}
			old += n
		case schema.OpInvalidate:
			for j := 0; j < n; j++ {
				result.Invalid = append(result.Invalid, len(next))
				next = append(next, Line{})
			}
			old = min(old+n, len(c.lines))
		case schema.OpCopy:
			if n == 0 {
				continue
			}
			ln, _ := op.FirstLineNumber()
			if ln < 0 || ln+n > len(c.lines) {
				return Result{}, fmt.Errorf("op %d %s with %d cached lines: %w", i, op, len(c.lines), ErrOutOfRange)
			}
			for _, line := range c.lines[ln : ln+n] {
				if !line.Valid {
					result.Invalid = append(result.Invalid, len(next))
				} else {
					result.Reused++
				}
				next = append(next, line)
			}
			old = ln + n
		case schema.OpInsert:
			for _, payload := range op.Lines() {
				next = append(next, Line{Payload: payload, Valid: true})
			}
			result.Inserted += n
		default:
			return Result{}, fmt.Errorf("op %d: unknown op %q", i, op.Op())
		}
	}
	c.lines = next
	return result, nil
}

// Fill supplies content for an invalid line after the front-end re-requested
// it.
func (c *Cache) Fill(index int, payload json.RawMessage) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("fill line %d of %d: %w", index, len(c.lines), ErrOutOfRange)
	}
	c.lines[index] = Line{Payload: payload, Valid: true}
	return nil
}

// Text returns the display text of line index. Line payloads carry the
// text under "text"; bare JSON strings are used as-is. Invalid lines return
// ok=false.
func (c *Cache) Text(index int) (string, bool) {
	if index < 0 || index >= len(c.lines) || !c.lines[index].Valid {
		return "", false
	}
	return PayloadText(c.lines[index].Payload), true
}

// PayloadText extracts display text from one line payload.
func PayloadText(payload json.RawMessage) string {
	var line struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(payload, &line); err == nil {
		return line.Text
	}
	var text string
	if err := json.Unmarshal(payload, &text); err == nil {
		return text
	}
	return string(payload)
}
