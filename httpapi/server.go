// Package httpapi serves a read-only HTTP view of the display: JSON
// snapshots of every view, plain text renders and an SSE event stream.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/frontline/internal/display"
	"pkt.systems/frontline/internal/linecache"
	"pkt.systems/frontline/internal/logx"
	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

const shutdownTimeout = 5 * time.Second

// ViewSummary is the list form of a view.
type ViewSummary struct {
	ID       schema.ViewID     `json:"view_id"`
	Language schema.LanguageID `json:"language,omitempty"`
	Lines    int               `json:"lines"`
	Stale    bool              `json:"stale,omitempty"`
	Line     int               `json:"line"`
	Col      int               `json:"col"`
	Updated  time.Time         `json:"updated"`
}

// LinePayload is one cached line. Invalid lines carry no text.
type LinePayload struct {
	Valid bool   `json:"valid"`
	Text  string `json:"text,omitempty"`
}

// StatusPayload is one status bar item.
type StatusPayload struct {
	Source    string `json:"source"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Alignment string `json:"alignment"`
}

// ViewPayload is the full state of one view.
type ViewPayload struct {
	ViewSummary
	Pristine bool                        `json:"pristine"`
	Content  []LinePayload               `json:"content"`
	Invalid  []int                       `json:"invalid,omitempty"`
	Status   []StatusPayload             `json:"status"`
	Config   schema.ConfigTable          `json:"config,omitempty"`
	Plugins  []schema.ClientPluginInfo   `json:"plugins,omitempty"`
	Running  []string                    `json:"running,omitempty"`
	Commands map[string][]schema.Command `json:"commands,omitempty"`
	Find     []schema.FindStatus         `json:"find,omitempty"`
	Replace  *schema.Replace             `json:"replace,omitempty"`
	Hover    *HoverPayload               `json:"hover,omitempty"`
}

// HoverPayload is the last hover shown for a view.
type HoverPayload struct {
	RequestID int    `json:"request_id"`
	Result    string `json:"result"`
}

// GlobalPayload is the state shared by all views.
type GlobalPayload struct {
	Themes    []string            `json:"themes"`
	Theme     string              `json:"theme,omitempty"`
	Languages []schema.LanguageID `json:"languages"`
	Alerts    []string            `json:"alerts"`
}

// Server serves the inspection API.
type Server struct {
	cfg      Config
	display  *display.Display
	hub      *Hub
	basePath string
}

// NewServer constructs an HTTP server over a display. The hub may be nil,
// in which case the stream endpoint is not registered.
func NewServer(cfg Config, d *display.Display, hub *Hub) *Server {
	return &Server{
		cfg:      cfg,
		display:  d,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /api/views", s.handleViews)
	mux.HandleFunc("GET /api/views/{id}", s.handleView)
	mux.HandleFunc("GET /api/views/{id}/render", s.handleRender)
	mux.HandleFunc("GET /api/global", s.handleGlobal)
	if s.hub != nil {
		mux.HandleFunc("GET /api/stream", s.handleStream)
	}

	return mountBasePath(s.basePath, withRequestLogging(mux))
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	views := s.summaries()
	writeJSON(w, http.StatusOK, map[string]any{"views": views})
	pslog.Ctx(r.Context()).Debug("http views ok", "views", len(views))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewPayload(state))
	logx.WithView(r.Context(), state.ID).Debug("http view ok", "lines", len(state.Lines))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	width := parseInt(r.URL.Query().Get("width"), 80)
	height := parseInt(r.URL.Query().Get("height"), 0)
	rows := display.Render(state, width, height)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, row)
	}
	logx.WithView(r.Context(), state.ID).Debug("http render ok", "rows", len(rows), "width", width)
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.globalPayload())
}

func (s *Server) lookupView(w http.ResponseWriter, r *http.Request) (display.ViewState, bool) {
	log := pslog.Ctx(r.Context())
	viewID, err := schema.ParseViewID(r.PathValue("id"))
	if err != nil {
		log.Warn("http view id invalid", "id", r.PathValue("id"), "err", err)
		writeError(w, http.StatusBadRequest, err)
		return display.ViewState{}, false
	}
	state, ok := s.display.Snapshot(viewID)
	if !ok {
		log.Debug("http view unknown", "view", viewID.String())
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown view %s", viewID))
		return display.ViewState{}, false
	}
	return state, true
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := pslog.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	snapshot := SnapshotPayload{Views: s.summaries(), Global: s.globalPayload()}
	_ = writeSSEvent(w, StreamEvent{
		Type:      "snapshot",
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	replayCount := 0
	if lastID > 0 {
		replay := s.hub.Replay(lastID)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, event)
		}
		flusher.Flush()
	}

	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "views", len(snapshot.Views))
	for {
		select {
		case <-r.Context().Done():
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) summaries() []ViewSummary {
	ids := s.display.Views()
	out := make([]ViewSummary, 0, len(ids))
	for _, id := range ids {
		state, ok := s.display.Snapshot(id)
		if !ok {
			continue
		}
		out = append(out, summary(state))
	}
	return out
}

func (s *Server) globalPayload() GlobalPayload {
	global := s.display.Global()
	out := GlobalPayload{
		Themes:    global.Themes,
		Theme:     global.Theme,
		Languages: global.Languages,
		Alerts:    global.Alerts,
	}
	if out.Themes == nil {
		out.Themes = []string{}
	}
	if out.Languages == nil {
		out.Languages = []schema.LanguageID{}
	}
	if out.Alerts == nil {
		out.Alerts = []string{}
	}
	return out
}

func summary(state display.ViewState) ViewSummary {
	return ViewSummary{
		ID:       state.ID,
		Language: state.Language,
		Lines:    len(state.Lines),
		Stale:    state.Stale,
		Line:     state.Line,
		Col:      state.Col,
		Updated:  state.Updated,
	}
}

func viewPayload(state display.ViewState) ViewPayload {
	out := ViewPayload{
		ViewSummary: summary(state),
		Pristine:    state.Pristine,
		Content:     make([]LinePayload, len(state.Lines)),
		Invalid:     state.Invalid,
		Status:      make([]StatusPayload, len(state.StatusItems)),
		Config:      state.Config,
		Plugins:     state.Plugins,
		Running:     state.Running,
		Commands:    state.Commands,
		Find:        state.Find,
		Replace:     state.Replace,
	}
	for i, line := range state.Lines {
		out.Content[i] = LinePayload{Valid: line.Valid}
		if line.Valid {
			out.Content[i].Text = linecache.PayloadText(line.Payload)
		}
	}
	for i, item := range state.StatusItems {
		out.Status[i] = StatusPayload(item)
	}
	if state.Hover != nil {
		out.Hover = &HoverPayload{RequestID: state.Hover.RequestID, Result: state.Hover.Result}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
