package sshserver

import (
	"context"
	"io"

	gliderssh "github.com/gliderlabs/ssh"

	"pkt.systems/frontline/internal/display"
	"pkt.systems/frontline/internal/eventbus"
	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

// viewer redraws one view, or the most recently updated one when following,
// whenever the display changes.
type viewer struct {
	display *display.Display
	bus     *eventbus.Bus
	screen  *screen
	styled  bool

	viewID schema.ViewID
	follow bool
	width  int
	height int
	alert  string

	events      <-chan eventbus.Event
	unsubscribe func()
}

func newViewer(out io.Writer, d *display.Display, bus *eventbus.Bus, viewID schema.ViewID, styled bool) *viewer {
	v := &viewer{
		display: d,
		bus:     bus,
		screen:  newScreen(out, styled),
		styled:  styled,
		viewID:  viewID,
		follow:  viewID == 0,
	}
	v.subscribe()
	return v
}

func (v *viewer) subscribe() {
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
	if v.follow {
		v.events, v.unsubscribe = v.bus.SubscribeAll()
		return
	}
	v.events, v.unsubscribe = v.bus.Subscribe(v.viewID)
}

func (v *viewer) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

func (v *viewer) SetSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	v.width = width
	v.height = height
}

// Run draws until ctx ends, the key channel closes or the user quits.
func (v *viewer) Run(ctx context.Context, keys <-chan keyKind, winCh <-chan gliderssh.Window) error {
	log := pslog.Ctx(ctx)
	v.screen.Enter()
	defer v.screen.Exit()
	if err := v.render(); err != nil {
		return err
	}
	log.Info("ssh viewer start", "width", v.width, "height", v.height, "follow", v.follow)

	for {
		dirty := false
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok || k == keyQuit {
				return nil
			}
			switch k {
			case keyNextView:
				v.cycle(1)
			case keyPrevView:
				v.cycle(-1)
			}
			dirty = true
		case win, ok := <-winCh:
			if ok {
				v.SetSize(win.Width, win.Height)
				log.Debug("ssh viewer resize", "width", v.width, "height", v.height)
				dirty = true
			}
		case ev, ok := <-v.events:
			if !ok {
				v.events = nil
				break
			}
			v.observe(ev)
			dirty = true
			v.drain()
		}
		if dirty {
			if err := v.render(); err != nil {
				log.Debug("ssh viewer write failed", "err", err)
				return err
			}
		}
	}
}

func (v *viewer) observe(ev eventbus.Event) {
	if ev.Alert != "" {
		v.alert = ev.Alert
	}
}

// drain folds queued events into the next frame.
func (v *viewer) drain() {
	for {
		select {
		case ev, ok := <-v.events:
			if !ok {
				v.events = nil
				return
			}
			v.observe(ev)
		default:
			return
		}
	}
}

// cycle moves to the next or previous tracked view and stops following.
func (v *viewer) cycle(step int) {
	views := v.display.Views()
	if len(views) == 0 {
		return
	}
	current := v.currentView()
	idx := 0
	for i, id := range views {
		if id == current {
			idx = (i + step + len(views)) % len(views)
			break
		}
	}
	v.viewID = views[idx]
	v.follow = false
	v.subscribe()
}

func (v *viewer) currentView() schema.ViewID {
	if v.follow {
		id, _ := v.display.LastView()
		return id
	}
	return v.viewID
}

func (v *viewer) frame() frame {
	f := frame{
		global: v.display.Global(),
		alert:  v.alert,
		width:  v.width,
		height: v.height,
		styled: v.styled,
	}
	if state, ok := v.display.Snapshot(v.currentView()); ok {
		f.view = &state
	}
	return f
}

func (v *viewer) render() error {
	return v.screen.Render(v.frame().render())
}
