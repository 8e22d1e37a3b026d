package httpapi

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pkt.systems/frontline/internal/display"
	"pkt.systems/frontline/internal/eventbus"
	"pkt.systems/frontline/schema"
)

func lineUpdate(lines ...string) *schema.Update {
	payloads := make([]json.RawMessage, len(lines))
	for i, line := range lines {
		payloads[i], _ = json.Marshal(map[string]any{"text": line})
	}
	return schema.NewUpdate(true, schema.Insert(payloads))
}

func newTestServer(t *testing.T, cfg Config) (*display.Display, *eventbus.Bus, *Hub, *httptest.Server) {
	t.Helper()
	bus := eventbus.New(nil)
	d := display.New(display.Options{Bus: bus})
	hub := NewHub(cfg.HistorySize, nil)
	stop := hub.Follow(bus)
	srv := httptest.NewServer(NewServer(cfg, d, hub).Handler())
	t.Cleanup(func() {
		srv.Close()
		stop()
		d.Close()
	})
	return d, bus, hub, srv
}

func getJSON(t *testing.T, url string, wantStatus int, target any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d: %s", url, resp.StatusCode, wantStatus, body)
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

func TestViewEndpoints(t *testing.T) {
	d, _, _, srv := newTestServer(t, Config{})
	d.UpdateView(1, lineUpdate("alpha\n", "beta\n"))
	d.LanguageChanged(1, "Go")
	d.AddStatusItem(1, "core", "mode", "INSERT", "left")
	d.AvailableThemes([]string{"outrun"})

	var list struct {
		Views []ViewSummary `json:"views"`
	}
	getJSON(t, srv.URL+"/api/views", http.StatusOK, &list)
	if len(list.Views) != 1 || list.Views[0].ID != 1 || list.Views[0].Lines != 2 || list.Views[0].Language != "Go" {
		t.Fatalf("unexpected views %+v", list.Views)
	}

	var view ViewPayload
	getJSON(t, srv.URL+"/api/views/view-id-1", http.StatusOK, &view)
	if !view.Pristine || len(view.Content) != 2 || view.Content[1].Text != "beta\n" || !view.Content[1].Valid {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(view.Status) != 1 || view.Status[0].Key != "mode" || view.Status[0].Value != "INSERT" {
		t.Fatalf("unexpected status %+v", view.Status)
	}

	var global GlobalPayload
	getJSON(t, srv.URL+"/api/global", http.StatusOK, &global)
	if len(global.Themes) != 1 || global.Themes[0] != "outrun" || global.Alerts == nil {
		t.Fatalf("unexpected global %+v", global)
	}

	getJSON(t, srv.URL+"/api/views/view-id-9", http.StatusNotFound, nil)
	getJSON(t, srv.URL+"/api/views/bogus", http.StatusBadRequest, nil)
}

func TestRenderEndpoint(t *testing.T) {
	d, _, _, srv := newTestServer(t, Config{})
	d.UpdateView(2, lineUpdate("hello world\n"))
	d.AddStatusItem(2, "core", "pos", "1:1", "right")

	resp, err := http.Get(srv.URL + "/api/views/2/render?width=8&height=3")
	if err != nil {
		t.Fatalf("GET render: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	want := "hello wo\n~\n     1:1\n"
	if string(body) != want {
		t.Fatalf("render = %q, want %q", body, want)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestBasePathPrefixesRoutes(t *testing.T) {
	_, _, _, srv := newTestServer(t, Config{BasePath: "/front/"})
	getJSON(t, srv.URL+"/front/healthz", http.StatusOK, nil)
	getJSON(t, srv.URL+"/healthz", http.StatusNotFound, nil)
}

func TestMethodNotAllowed(t *testing.T) {
	_, _, _, srv := newTestServer(t, Config{})
	resp, err := http.Post(srv.URL+"/api/views", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func readEvent(t *testing.T, events <-chan StreamEvent) StreamEvent {
	t.Helper()
	select {
	case event, ok := <-events:
		if !ok {
			t.Fatalf("stream ended")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for stream event")
		return StreamEvent{}
	}
}

func openStream(t *testing.T, url, lastID string) <-chan StreamEvent {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var event StreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return
			}
			events <- event
		}
	}()
	return events
}

func TestStreamSnapshotThenLiveEvents(t *testing.T) {
	d, _, _, srv := newTestServer(t, Config{})
	d.UpdateView(1, lineUpdate("one\n"))

	events := openStream(t, srv.URL+"/api/stream", "")
	first := readEvent(t, events)
	if first.Type != "snapshot" || first.Snapshot == nil || len(first.Snapshot.Views) != 1 {
		t.Fatalf("unexpected first event %+v", first)
	}

	d.ScrollTo(1, 0, 0)
	d.Alert("disk full")
	var sawView, sawAlert bool
	for !sawView || !sawAlert {
		event := readEvent(t, events)
		switch {
		case event.Type == string(eventbus.EventView) && event.ViewID == 1:
			sawView = true
		case event.Type == string(eventbus.EventGlobal) && event.Alert == "disk full":
			sawAlert = true
		}
		if event.Seq == 0 {
			t.Fatalf("live event without seq: %+v", event)
		}
	}
}

func TestStreamReplaysAfterLastEventID(t *testing.T) {
	d, _, hub, srv := newTestServer(t, Config{HistorySize: 2})
	d.UpdateView(1, lineUpdate("a\n"))
	d.UpdateView(1, lineUpdate("b\n"))
	d.UpdateView(1, lineUpdate("c\n"))

	deadline := time.Now().Add(2 * time.Second)
	for len(hub.Replay(0)) < 2 || hub.Replay(0)[1].Seq < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("hub never saw the updates")
		}
		time.Sleep(5 * time.Millisecond)
	}
	replay := hub.Replay(0)
	if len(replay) != 2 || replay[0].Seq != 2 {
		t.Fatalf("history not bounded: %+v", replay)
	}

	events := openStream(t, srv.URL+"/api/stream", "2")
	if first := readEvent(t, events); first.Type != "snapshot" {
		t.Fatalf("expected snapshot first, got %+v", first)
	}
	if got := readEvent(t, events); got.Seq != 3 {
		t.Fatalf("expected replay of seq 3, got %+v", got)
	}
}
