package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OpType is the discriminant of an UpdateOp.
type OpType string

const (
	// OpSkip keeps cached lines in place.
	OpSkip OpType = "skip"
	// OpInvalidate marks lines as needing a redraw without content.
	OpInvalidate OpType = "invalidate"
	// OpCopy reuses cached lines starting at a source line number.
	OpCopy OpType = "copy"
	// OpInsert supplies new line payloads.
	OpInsert OpType = "ins"
)

// Update is the payload of an "update" notification: an ordered delta over a
// view's visible lines.
type Update struct {
	Ops         []UpdateOp        `json:"ops"`
	Pristine    bool              `json:"pristine"`
	Annotations []json.RawMessage `json:"annotations"`
}

// NewUpdate builds an update from ops. Annotations default to an empty list so
// the wire form always carries the key.
func NewUpdate(pristine bool, ops ...UpdateOp) *Update {
	if ops == nil {
		ops = []UpdateOp{}
	}
	return &Update{Ops: ops, Pristine: pristine, Annotations: []json.RawMessage{}}
}

// MarshalJSON always emits the ops and annotations lists, even when empty.
func (u Update) MarshalJSON() ([]byte, error) {
	type plain Update
	out := plain(u)
	if out.Ops == nil {
		out.Ops = []UpdateOp{}
	}
	if out.Annotations == nil {
		out.Annotations = []json.RawMessage{}
	}
	return json.Marshal(out)
}

// LineCount is the number of lines the front-end holds after replaying the
// update.
func (u *Update) LineCount() int {
	if u == nil {
		return 0
	}
	total := 0
	for _, op := range u.Ops {
		total += op.n
	}
	return total
}

// UpdateOp is one step of an update. Ops are immutable once built; use Skip,
// Invalidate, Copy or Insert.
type UpdateOp struct {
	op    OpType
	n     int
	lines []json.RawMessage
	ln    int
}

// Skip keeps n cached lines unchanged.
func Skip(n int) UpdateOp {
	return UpdateOp{op: OpSkip, n: n}
}

// Invalidate marks n lines as needing new content.
func Invalidate(n int) UpdateOp {
	return UpdateOp{op: OpInvalidate, n: n}
}

// Copy reuses n cached lines starting at firstLineNumber in the previous
// rendering.
func Copy(n, firstLineNumber int) UpdateOp {
	return UpdateOp{op: OpCopy, n: n, ln: firstLineNumber}
}

// Insert supplies new line payloads. N always equals len(lines).
func Insert(lines []json.RawMessage) UpdateOp {
	copied := make([]json.RawMessage, len(lines))
	copy(copied, lines)
	return UpdateOp{op: OpInsert, n: len(copied), lines: copied}
}

// Op returns the discriminant.
func (o UpdateOp) Op() OpType { return o.op }

// N returns the number of lines the op covers.
func (o UpdateOp) N() int { return o.n }

// Lines returns a copy of the inserted payloads; nil unless the op is an insert.
func (o UpdateOp) Lines() []json.RawMessage {
	if o.op != OpInsert {
		return nil
	}
	out := make([]json.RawMessage, len(o.lines))
	copy(out, o.lines)
	return out
}

// FirstLineNumber returns the copy source line; ok is false unless the op is a
// copy.
func (o UpdateOp) FirstLineNumber() (int, bool) {
	if o.op != OpCopy {
		return 0, false
	}
	return o.ln, true
}

func (o UpdateOp) String() string {
	switch o.op {
	case OpCopy:
		return fmt.Sprintf("copy(%d, %d)", o.n, o.ln)
	case OpInsert:
		return fmt.Sprintf("ins(%d)", o.n)
	default:
		return fmt.Sprintf("%s(%d)", o.op, o.n)
	}
}

// wireOp is the serialized form. Pointers keep absent fields out of the
// encoding while still emitting an empty lines list for Insert([]).
type wireOp struct {
	Op    OpType             `json:"op"`
	N     int                `json:"n"`
	Lines *[]json.RawMessage `json:"lines,omitempty"`
	LN    *int               `json:"ln,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (o UpdateOp) MarshalJSON() ([]byte, error) {
	wire := wireOp{Op: o.op, N: o.n}
	switch o.op {
	case OpInsert:
		lines := o.lines
		if lines == nil {
			lines = []json.RawMessage{}
		}
		wire.Lines = &lines
	case OpCopy:
		ln := o.ln
		wire.LN = &ln
	case OpSkip, OpInvalidate:
	default:
		return nil, fmt.Errorf("update op: unknown op %q", o.op)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler and enforces the field presence
// rules of each op kind.
func (o *UpdateOp) UnmarshalJSON(data []byte) error {
	var wire wireOp
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.N < 0 {
		return fmt.Errorf("update op %q: negative n", wire.Op)
	}
	switch wire.Op {
	case OpSkip, OpInvalidate:
		if wire.Lines != nil || wire.LN != nil {
			return fmt.Errorf("update op %q: unexpected lines or ln", wire.Op)
		}
		*o = UpdateOp{op: wire.Op, n: wire.N}
	case OpCopy:
		if wire.LN == nil {
			return errors.New("update op \"copy\": missing ln")
		}
		if wire.Lines != nil {
			return errors.New("update op \"copy\": unexpected lines")
		}
		*o = Copy(wire.N, *wire.LN)
	case OpInsert:
		if wire.Lines == nil {
			return errors.New("update op \"ins\": missing lines")
		}
		if wire.LN != nil {
			return errors.New("update op \"ins\": unexpected ln")
		}
		if wire.N != len(*wire.Lines) {
			return fmt.Errorf("update op \"ins\": n=%d but %d lines", wire.N, len(*wire.Lines))
		}
		*o = Insert(*wire.Lines)
	default:
		return fmt.Errorf("update op: unknown op %q", wire.Op)
	}
	return nil
}
