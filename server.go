package frontline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/frontline/core"
	"pkt.systems/frontline/httpapi"
	"pkt.systems/frontline/internal/appconfig"
	"pkt.systems/frontline/internal/display"
	"pkt.systems/frontline/internal/eventbus"
	"pkt.systems/frontline/internal/frontgrpc"
	"pkt.systems/frontline/internal/rpcpeer"
	"pkt.systems/frontline/sshserver"
	"pkt.systems/pslog"
)

// Server composes the front-end host: the display, the transport the core
// connects to, the SSH viewer and the HTTP inspection API.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	Display() *display.Display
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Transport appconfig.TransportConfig
	SSH       sshserver.Config
	HTTP      httpapi.Config
	MaxViews  int
}

// ServerDeps captures optional collaborators.
type ServerDeps struct {
	Logger pslog.Logger
	// Mirrors receive every core message alongside the display.
	Mirrors []core.Frontend
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableTransport bool
	enableSSH       bool
	enableHTTP      bool
}

// WithTransport enables the configured core transport server.
func WithTransport() ServerOption {
	return func(o *serverOptions) { o.enableTransport = true }
}

// WithSSH enables the SSH viewer.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// WithHTTP enables the HTTP inspection API.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// New constructs a composable front-end host.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableTransport && !options.enableSSH && !options.enableHTTP {
		return nil, errors.New("no services enabled")
	}
	if options.enableTransport {
		switch cfg.Transport.Kind {
		case appconfig.TransportGRPC, appconfig.TransportJSON:
		default:
			return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport.Kind)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	bus := eventbus.New(logger)
	d := display.New(display.Options{Bus: bus, Logger: logger, MaxViews: cfg.MaxViews})

	var fe core.Frontend = d
	if len(deps.Mirrors) > 0 {
		fanout := make(core.Fanout, 0, len(deps.Mirrors)+1)
		fanout = append(fanout, d)
		fanout = append(fanout, deps.Mirrors...)
		fe = fanout
	}

	var sshSrv *sshserver.Server
	if options.enableSSH {
		sshSrv = sshserver.NewServer(cfg.SSH, d, bus)
	}

	var hub *httpapi.Hub
	var httpSrv *httpapi.Server
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HTTP.HistorySize, logger)
		httpSrv = httpapi.NewServer(cfg.HTTP, d, hub)
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		bus:     bus,
		display: d,
		fe:      fe,
		sshSrv:  sshSrv,
		hub:     hub,
		httpSrv: httpSrv,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	bus     *eventbus.Bus
	display *display.Display
	fe      core.Frontend
	sshSrv  *sshserver.Server
	hub     *httpapi.Hub
	httpSrv *httpapi.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	wg      sync.WaitGroup
	started bool
}

func (s *compositeServer) Display() *display.Display {
	return s.display
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 3)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"transport", s.options.enableTransport,
		"transport_kind", s.cfg.Transport.Kind,
		"transport_address", s.cfg.Transport.Address,
		"ssh", s.options.enableSSH,
		"ssh_addr", s.cfg.SSH.Addr,
		"http", s.options.enableHTTP,
		"http_addr", s.cfg.HTTP.Addr,
	)
	if s.options.enableTransport {
		s.run("transport server failed", s.serveTransport)
	}
	if s.options.enableSSH && s.sshSrv != nil {
		s.run("ssh server failed", s.sshSrv.ListenAndServe)
	}
	if s.options.enableHTTP && s.httpSrv != nil {
		stopFollow := s.hub.Follow(s.bus)
		s.run("http server failed", func(ctx context.Context) error {
			defer stopFollow()
			return s.httpSrv.ListenAndServe(ctx)
		})
	}
	return nil
}

func (s *compositeServer) run(failure string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(s.ctx); err != nil {
			s.logger.Error(failure, "err", err)
			s.errCh <- err
		}
	}()
}

func (s *compositeServer) serveTransport(ctx context.Context) error {
	tc := s.cfg.Transport
	timeout := time.Duration(tc.RequestTimeoutSeconds) * time.Second
	switch tc.Kind {
	case appconfig.TransportJSON:
		return rpcpeer.ListenAndServe(ctx, tc.Network, tc.Address, s.fe, rpcpeer.WithRequestTimeout(timeout))
	default:
		srv := frontgrpc.NewServer(frontgrpc.Config{Network: tc.Network, Address: tc.Address, RequestTimeout: timeout}, s.fe)
		return srv.ListenAndServe(ctx)
	}
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.display.Close()
		close(done)
	}()
	if ctx == nil {
		<-done
		log.Info("server stopped")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		log.Info("server stopped")
		return nil
	}
}
