package linecache

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"pkt.systems/frontline/schema"
)

func payload(text string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"text": text})
	return data
}

func texts(t *testing.T, c *Cache) []string {
	t.Helper()
	out := make([]string, c.Len())
	for i := range out {
		text, ok := c.Text(i)
		if !ok {
			text = "~"
		}
		out[i] = text
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEditInMiddleLineInvalidatesOnlyThatLine(t *testing.T) {
	cache := New(payload("A"), payload("B"), payload("C"))
	update := schema.NewUpdate(false, schema.Skip(1), schema.Invalidate(1), schema.Skip(1))
	result, err := cache.Apply(update)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := texts(t, cache); !equal(got, []string{"A", "~", "C"}) {
		t.Fatalf("unexpected lines %v", got)
	}
	if len(result.Invalid) != 1 || result.Invalid[0] != 1 {
		t.Fatalf("expected only line 1 to be re-requested, got %v", result.Invalid)
	}
	if result.Reused != 2 || result.Inserted != 0 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if err := cache.Fill(1, payload("Bx")); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if got := texts(t, cache); !equal(got, []string{"A", "Bx", "C"}) {
		t.Fatalf("unexpected lines after fill %v", got)
	}
}

func TestSkipThenCopyLeavesCacheUnchanged(t *testing.T) {
	cache := New(payload("A"), payload("B"), payload("C"))
	update := schema.NewUpdate(true, schema.Skip(1), schema.Copy(2, 1))
	result, err := cache.Apply(update)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cache.Len() != 3 {
		t.Fatalf("expected 3 lines, got %d", cache.Len())
	}
	if got := texts(t, cache); !equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("expected [A B C], got %v", got)
	}
	if len(result.Invalid) != 0 || result.Reused != 3 {
		t.Fatalf("reused lines must not be re-requested: %+v", result)
	}
}

func TestScrollWithNewBottomLine(t *testing.T) {
	cache := New(payload("A"), payload("B"), payload("C"))
	update := schema.NewUpdate(true, schema.Copy(2, 1), schema.Insert([]json.RawMessage{payload("D")}))
	if _, err := cache.Apply(update); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := texts(t, cache); !equal(got, []string{"B", "C", "D"}) {
		t.Fatalf("unexpected lines %v", got)
	}
}

func TestZeroCopyIsNoop(t *testing.T) {
	cache := New(payload("A"))
	update := schema.NewUpdate(true, schema.Copy(0, 99), schema.Skip(1))
	if _, err := cache.Apply(update); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := texts(t, cache); !equal(got, []string{"A"}) {
		t.Fatalf("unexpected lines %v", got)
	}
}

func TestEmptyInsert(t *testing.T) {
	cache := New(payload("A"))
	update := schema.NewUpdate(true, schema.Insert(nil), schema.Skip(1))
	result, err := cache.Apply(update)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Inserted != 0 || cache.Len() != 1 {
		t.Fatalf("unexpected result %+v len=%d", result, cache.Len())
	}
}

func TestOutOfRangeLeavesCacheUntouched(t *testing.T) {
	cache := New(payload("A"), payload("B"))
	for _, update := range []*schema.Update{
		schema.NewUpdate(true, schema.Skip(3)),
		schema.NewUpdate(true, schema.Copy(2, 1)),
		schema.NewUpdate(true, schema.Skip(1), schema.Copy(1, -1)),
	} {
		if _, err := cache.Apply(update); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("expected ErrOutOfRange, got %v", err)
		}
	}
	if got := texts(t, cache); !equal(got, []string{"A", "B"}) {
		t.Fatalf("cache changed after failed replay: %v", got)
	}
}

func TestFillOutOfRange(t *testing.T) {
	if err := New().Fill(0, payload("x")); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestInvalidLinesStayInvalidWhenSkipped(t *testing.T) {
	cache := New(payload("A"), payload("B"))
	if _, err := cache.Apply(schema.NewUpdate(false, schema.Invalidate(1), schema.Skip(1))); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	result, err := cache.Apply(schema.NewUpdate(false, schema.Skip(2)))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(result.Invalid) != 1 || result.Invalid[0] != 0 {
		t.Fatalf("expected line 0 still invalid, got %v", result.Invalid)
	}
}

// Random op sequences must produce exactly as many lines as the ops cover and
// reproduce the lines a straightforward model predicts.
func TestReplayMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		size := rng.Intn(8)
		var prior []string
		var seeds []json.RawMessage
		for i := 0; i < size; i++ {
			text := string(rune('a' + i))
			prior = append(prior, text)
			seeds = append(seeds, payload(text))
		}
		cache := New(seeds...)

		var ops []schema.UpdateOp
		var want []string
		old := 0
		for step := 0; step < 6; step++ {
			switch rng.Intn(4) {
			case 0:
				n := rng.Intn(size - min(old, size) + 1)
				ops = append(ops, schema.Skip(n))
				want = append(want, prior[old:old+n]...)
				old += n
			case 1:
				n := rng.Intn(3)
				ops = append(ops, schema.Invalidate(n))
				for j := 0; j < n; j++ {
					want = append(want, "~")
				}
				old += n
				if old > size {
					old = size
				}
			case 2:
				if size == 0 {
					continue
				}
				ln := rng.Intn(size)
				n := rng.Intn(size - ln + 1)
				ops = append(ops, schema.Copy(n, ln))
				want = append(want, prior[ln:ln+n]...)
				if n > 0 {
					old = ln + n
				}
			case 3:
				n := rng.Intn(3)
				var lines []json.RawMessage
				for j := 0; j < n; j++ {
					text := "new"
					lines = append(lines, payload(text))
					want = append(want, text)
				}
				ops = append(ops, schema.Insert(lines))
			}
		}
		update := schema.NewUpdate(false, ops...)
		if _, err := cache.Apply(update); err != nil {
			t.Fatalf("iteration %d: Apply %v: %v", iter, ops, err)
		}
		if cache.Len() != update.LineCount() {
			t.Fatalf("iteration %d: expected %d lines, got %d", iter, update.LineCount(), cache.Len())
		}
		if got := texts(t, cache); !equal(got, want) {
			t.Fatalf("iteration %d: ops %v\n got %v\nwant %v", iter, ops, got, want)
		}
	}
}

func TestPayloadText(t *testing.T) {
	if got := PayloadText(json.RawMessage(`{"text":"hi","styles":[]}`)); got != "hi" {
		t.Fatalf("expected hi, got %q", got)
	}
	if got := PayloadText(json.RawMessage(`"plain"`)); got != "plain" {
		t.Fatalf("expected plain, got %q", got)
	}
	if got := PayloadText(json.RawMessage(`42`)); got != "42" {
		t.Fatalf("expected raw fallback, got %q", got)
	}
}
