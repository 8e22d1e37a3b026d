package schema

import (
	"encoding/json"
	"testing"
)

func TestViewIDWireForm(t *testing.T) {
	data, err := json.Marshal(ViewID(3))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"view-id-3"` {
		t.Fatalf("unexpected encoding %s", data)
	}
	var id ViewID
	if err := json.Unmarshal(data, &id); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected 3, got %d", id)
	}
}

func TestViewIDAcceptsBareNumber(t *testing.T) {
	var id ViewID
	if err := json.Unmarshal([]byte("12"), &id); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id != 12 {
		t.Fatalf("expected 12, got %d", id)
	}
}

func TestParseViewIDRejectsGarbage(t *testing.T) {
	if _, err := ParseViewID("view-id-x"); err == nil {
		t.Fatalf("expected error")
	}
	var id ViewID
	if err := json.Unmarshal([]byte(`"buffer-1"`), &id); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTransportErrorMessage(t *testing.T) {
	err := NewTransportError(TransportErrorClosed, "measure_width", nil)
	if err.Error() != "measure_width failed: closed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
