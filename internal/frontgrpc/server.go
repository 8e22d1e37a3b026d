package frontgrpc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"pkt.systems/frontline/core"
	"pkt.systems/frontline/internal/rpcpeer"
	"pkt.systems/pslog"
)

// Server hosts a front-end behind the Frontend gRPC service.
type Server struct {
	cfg    Config
	fe     core.Frontend
	logger pslog.Logger
}

// NewServer constructs a front-end gRPC server.
func NewServer(cfg Config, fe core.Frontend) *Server {
	return &Server{cfg: cfg, fe: fe}
}

// ListenAndServe serves until ctx ends. Unix socket paths are created and
// replaced as needed.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.Address == "" {
		return errors.New("front-end address is required")
	}
	if s.fe == nil {
		return errors.New("frontend is required")
	}
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	network := s.cfg.network()
	if network == "unix" {
		if err := os.MkdirAll(filepath.Dir(s.cfg.Address), 0o755); err != nil {
			return err
		}
		_ = os.Remove(s.cfg.Address)
	}

	listener, err := net.Listen(network, s.cfg.Address)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&serviceDesc, s)
	s.logger.Info("front-end grpc listening", "network", network, "address", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		grpcServer.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Session serves one core connection.
func (s *Server) Session(stream grpc.ServerStream) error {
	log := s.log(stream.Context())
	log.Debug("front-end grpc session start")
	sc := newStreamConn(stream, nil)
	ctx := pslog.ContextWithLogger(stream.Context(), log)
	if err := rpcpeer.Serve(ctx, sc, sc, s.fe); err != nil {
		log.Warn("front-end grpc session failed", "err", err)
		return err
	}
	log.Debug("front-end grpc session finished")
	return nil
}

// Ping answers liveness checks.
func (s *Server) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.log(ctx).Trace("front-end grpc ping")
	return &emptypb.Empty{}, nil
}

func (s *Server) log(ctx context.Context) pslog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return pslog.Ctx(ctx)
}
