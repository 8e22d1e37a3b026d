package core

import (
	"testing"

	"pkt.systems/frontline/schema"
)

func TestFanoutForwardsToAllAndSkipsNil(t *testing.T) {
	a := &recordingFrontend{}
	b := &alertingFrontend{}
	fan := Fanout{a, nil, b}
	fan.ScrollTo(1, 2, 3)
	fan.Alert("hello")
	if len(a.Calls()) != 1 || a.Calls()[0] != "ScrollTo [\"view-id-1\",2,3]" {
		t.Fatalf("unexpected calls on a: %v", a.Calls())
	}
	if len(b.Calls()) != 2 || b.Calls()[1] != `Alert ["hello"]` {
		t.Fatalf("unexpected calls on b: %v", b.Calls())
	}
}

func TestFanoutMeasureAndScheduleUseFirst(t *testing.T) {
	a := &recordingFrontend{widths: schema.WidthResponse{{1}}}
	b := &recordingFrontend{widths: schema.WidthResponse{{2}}}
	fan := Fanout{nil, a, b}
	resp := fan.MeasureWidth([]schema.WidthReq{{ID: 0, Strings: []string{"x"}}})
	if resp[0][0] != 1 {
		t.Fatalf("expected first front-end to answer, got %v", resp)
	}
	fan.ScheduleIdle(9)
	if len(b.Calls()) != 0 {
		t.Fatalf("second front-end must not be asked: %v", b.Calls())
	}
	if len(a.Calls()) != 2 {
		t.Fatalf("expected measure and idle on first front-end, got %v", a.Calls())
	}
}

func TestEmptyFanoutMeasuresNothing(t *testing.T) {
	if resp := (Fanout{}).MeasureWidth(nil); resp == nil || len(resp) != 0 {
		t.Fatalf("expected empty response, got %v", resp)
	}
}
