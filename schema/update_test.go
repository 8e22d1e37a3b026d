package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func encodeOp(t *testing.T, op UpdateOp) map[string]json.RawMessage {
	t.Helper()
	data, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal %s: %v", op, err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return fields
}

func TestSkipOmitsOptionalFields(t *testing.T) {
	fields := encodeOp(t, Skip(5))
	if string(fields["op"]) != `"skip"` || string(fields["n"]) != "5" {
		t.Fatalf("unexpected encoding: %v", fields)
	}
	if _, ok := fields["lines"]; ok {
		t.Fatalf("skip must not carry lines")
	}
	if _, ok := fields["ln"]; ok {
		t.Fatalf("skip must not carry ln")
	}
}

func TestInvalidateOmitsOptionalFields(t *testing.T) {
	fields := encodeOp(t, Invalidate(2))
	if string(fields["op"]) != `"invalidate"` || len(fields) != 2 {
		t.Fatalf("unexpected encoding: %v", fields)
	}
}

func TestCopyCarriesLineNumberOnly(t *testing.T) {
	fields := encodeOp(t, Copy(3, 10))
	if string(fields["op"]) != `"copy"` || string(fields["n"]) != "3" {
		t.Fatalf("unexpected encoding: %v", fields)
	}
	if string(fields["ln"]) != "10" {
		t.Fatalf("expected ln 10, got %s", fields["ln"])
	}
	if _, ok := fields["lines"]; ok {
		t.Fatalf("copy must not carry lines")
	}
}

func TestInsertCarriesLinesOnly(t *testing.T) {
	op := Insert([]json.RawMessage{json.RawMessage(`"a"`), json.RawMessage(`"b"`)})
	fields := encodeOp(t, op)
	if string(fields["op"]) != `"ins"` || string(fields["n"]) != "2" {
		t.Fatalf("unexpected encoding: %v", fields)
	}
	if string(fields["lines"]) != `["a","b"]` {
		t.Fatalf("unexpected lines: %s", fields["lines"])
	}
	if _, ok := fields["ln"]; ok {
		t.Fatalf("insert must not carry ln")
	}
}

func TestInsertEmpty(t *testing.T) {
	op := Insert(nil)
	if op.N() != 0 {
		t.Fatalf("expected n=0, got %d", op.N())
	}
	if op.Lines() == nil || len(op.Lines()) != 0 {
		t.Fatalf("expected empty non-nil lines")
	}
	fields := encodeOp(t, op)
	if string(fields["lines"]) != "[]" || string(fields["n"]) != "0" {
		t.Fatalf("unexpected encoding: %v", fields)
	}
}

func TestInsertCopiesInput(t *testing.T) {
	lines := []json.RawMessage{json.RawMessage(`"a"`)}
	op := Insert(lines)
	lines[0] = json.RawMessage(`"z"`)
	got := op.Lines()
	if string(got[0]) != `"a"` {
		t.Fatalf("insert must not alias caller slice, got %s", got[0])
	}
	got[0] = json.RawMessage(`"y"`)
	if string(op.Lines()[0]) != `"a"` {
		t.Fatalf("accessor must return a copy")
	}
}

func TestFirstLineNumberOnlyForCopy(t *testing.T) {
	if _, ok := Skip(1).FirstLineNumber(); ok {
		t.Fatalf("skip has no first line number")
	}
	ln, ok := Copy(2, 7).FirstLineNumber()
	if !ok || ln != 7 {
		t.Fatalf("expected ln 7, got %d (%t)", ln, ok)
	}
	if Copy(2, 7).Lines() != nil {
		t.Fatalf("copy has no lines")
	}
}

func TestUpdateEncoding(t *testing.T) {
	update := NewUpdate(false, Skip(1), Invalidate(1), Skip(1))
	data, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"ops":[{"op":"skip","n":1},{"op":"invalidate","n":1},{"op":"skip","n":1}],"pristine":false,"annotations":[]}`
	if string(data) != want {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", data, want)
	}
	if update.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", update.LineCount())
	}
}

func TestZeroUpdateEncodesEmptyLists(t *testing.T) {
	data, err := json.Marshal(&Update{Pristine: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"ops":[],"pristine":true,"annotations":[]}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestUpdateDecodeRoundTrip(t *testing.T) {
	src := NewUpdate(true, Copy(2, 1), Insert([]json.RawMessage{json.RawMessage(`{"text":"d"}`)}))
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Update
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Ops) != 2 || !got.Pristine {
		t.Fatalf("unexpected update: %+v", got)
	}
	if ln, ok := got.Ops[0].FirstLineNumber(); !ok || ln != 1 || got.Ops[0].N() != 2 {
		t.Fatalf("unexpected copy op: %s", got.Ops[0])
	}
	if got.Ops[1].Op() != OpInsert || string(got.Ops[1].Lines()[0]) != `{"text":"d"}` {
		t.Fatalf("unexpected insert op: %s", got.Ops[1])
	}
}

func TestUpdateOpDecodeRejectsMismatchedFields(t *testing.T) {
	cases := map[string]string{
		"skip with ln":       `{"op":"skip","n":1,"ln":3}`,
		"copy without ln":    `{"op":"copy","n":1}`,
		"ins without lines":  `{"op":"ins","n":1}`,
		"ins count mismatch": `{"op":"ins","n":2,"lines":["a"]}`,
		"unknown op":         `{"op":"move","n":1}`,
		"negative n":         `{"op":"skip","n":-1}`,
	}
	for name, raw := range cases {
		var op UpdateOp
		if err := json.Unmarshal([]byte(raw), &op); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), "update op") && name != "negative n" {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
}
