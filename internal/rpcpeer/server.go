package rpcpeer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"pkt.systems/frontline/core"
	"pkt.systems/pslog"
)

// DeliverHandler serves core messages by invoking fe.
func DeliverHandler(fe core.Frontend) Handler {
	return func(_ context.Context, method string, params json.RawMessage) (any, error) {
		return core.Deliver(fe, method, params)
	}
}

// Serve hosts fe on one connection until the other end hangs up or ctx
// ends. Messages are delivered to fe in arrival order.
func Serve(ctx context.Context, r io.Reader, w io.WriteCloser, fe core.Frontend, opts ...Option) error {
	if fe == nil {
		return errors.New("frontend is required")
	}
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithHandler(DeliverHandler(fe)))
	peer := New(r, w, all...)
	peer.Start(ctx)
	<-peer.Done()
	<-peer.writerDone
	return peer.Err()
}

// Dial connects to a front-end host and returns a started peer.
func Dial(ctx context.Context, network, address string, opts ...Option) (*Peer, error) {
	if address == "" {
		return nil, errors.New("front-end address is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	pslog.Ctx(ctx).Debug("json transport connected", "network", network, "address", address)
	peer := New(conn, conn, opts...)
	peer.Start(ctx)
	return peer, nil
}

// ListenAndServe accepts core connections on network/address and hosts fe on
// each of them until ctx ends.
func ListenAndServe(ctx context.Context, network, address string, fe core.Frontend, opts ...Option) error {
	if address == "" {
		return errors.New("front-end address is required")
	}
	logger := pslog.Ctx(ctx)
	if network == "unix" {
		if err := os.MkdirAll(filepath.Dir(address), 0o755); err != nil {
			return err
		}
		_ = os.Remove(address)
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	logger.Info("json transport listening", "network", network, "address", listener.Addr().String())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-runCtx.Done()
		_ = listener.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if runCtx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := logger.With("remote", conn.RemoteAddr().String())
			log.Debug("json transport connection accepted")
			connCtx := pslog.ContextWithLogger(runCtx, log)
			if err := Serve(connCtx, conn, conn, fe, opts...); err != nil {
				log.Warn("json transport connection failed", "err", err)
				return
			}
			log.Debug("json transport connection closed")
		}()
	}
}
