package frontgrpc

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"pkt.systems/frontline/internal/rpcpeer"
	"pkt.systems/pslog"
)

// Peer is the core's side of a Session stream. It implements core.Peer.
type Peer struct {
	*rpcpeer.Peer

	conn   *grpc.ClientConn
	stream *streamConn
	cancel context.CancelFunc
	logger pslog.Logger
}

// Dial connects to a front-end host and opens a Session stream.
func Dial(ctx context.Context, cfg Config, opts ...rpcpeer.Option) (*Peer, error) {
	if cfg.Address == "" {
		return nil, errors.New("front-end address is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	network := cfg.network()
	dialer := func(ctx context.Context, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}
	target := "passthrough:///" + cfg.Address
	conn, err := grpc.NewClient(
		target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	)
	if err != nil {
		return nil, err
	}
	log := pslog.Ctx(ctx).With("network", network, "address", cfg.Address)
	streamCtx, cancel := context.WithCancel(ctx)
	clientStream, err := conn.NewStream(streamCtx, &serviceDesc.Streams[0], sessionMethod)
	if err != nil {
		cancel()
		_ = conn.Close()
		logGRPCError(log, "front-end grpc session failed", err)
		return nil, wrapTransportError("session", err)
	}
	log.Debug("front-end grpc session open")

	sc := newStreamConn(clientStream, clientStream.CloseSend)
	all := make([]rpcpeer.Option, 0, len(opts)+1)
	all = append(all, rpcpeer.WithRequestTimeout(cfg.RequestTimeout))
	all = append(all, opts...)
	peer := rpcpeer.New(sc, sc, all...)
	peer.Start(pslog.ContextWithLogger(streamCtx, log))
	return &Peer{Peer: peer, conn: conn, stream: sc, cancel: cancel, logger: log}, nil
}

// Ping checks that the host answers.
func (p *Peer) Ping(ctx context.Context) error {
	if err := p.conn.Invoke(ctx, pingMethod, &emptypb.Empty{}, &emptypb.Empty{}); err != nil {
		logGRPCError(p.logger, "front-end grpc ping failed", err)
		return wrapTransportError("ping", err)
	}
	p.logger.Trace("front-end grpc ping")
	return nil
}

// Shutdown writes queued messages, half-closes the stream and waits until
// the host has delivered everything it received, then closes the connection.
func (p *Peer) Shutdown(ctx context.Context) error {
	err := p.Peer.Shutdown(ctx)
	if err == nil {
		select {
		case <-p.stream.Received():
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	p.cancel()
	if closeErr := p.conn.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	p.logger.Debug("front-end grpc session closed")
	return err
}

// Close tears the session down without draining.
func (p *Peer) Close() error {
	_ = p.Peer.Close()
	p.cancel()
	return p.conn.Close()
}
