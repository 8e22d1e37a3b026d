// Package sshserver lets users watch the front-end host's views over SSH.
package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/frontline/internal/display"
	"pkt.systems/frontline/internal/eventbus"
	"pkt.systems/frontline/internal/logx"
	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

// Server exposes a Display over SSH.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Listener           net.Listener
	Display            *display.Display
	EventBus           *eventbus.Bus
	logger             pslog.Logger
	keys               authorizedKeys
}

// NewServer builds a server from cfg.
func NewServer(cfg Config, d *display.Display, bus *eventbus.Bus) *Server {
	return &Server{
		Addr:               cfg.Addr,
		HostKeyPath:        cfg.HostKeyPath,
		AuthorizedKeysPath: cfg.AuthorizedKeysPath,
		Display:            d,
		EventBus:           bus,
	}
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Display == nil {
		return errors.New("display is required for SSH")
	}
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	keys, err := LoadAuthorizedKeys(s.AuthorizedKeysPath)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		s.logger.Warn("ssh authorized keys empty; every login will be rejected", "path", s.AuthorizedKeysPath)
	}
	s.keys = keys

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			s.logger.Info("ssh viewer listening", "addr", s.Listener.Addr().String())
			errCh <- server.Serve(s.Listener)
			return
		}
		s.logger.Info("ssh viewer listening", "addr", s.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	if !s.keys.allows(key) {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	log.Info("ssh pubkey accepted")
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

// parseViewArg resolves the command line of an SSH session. No argument
// means follow the most recently updated view.
func parseViewArg(args []string) (schema.ViewID, error) {
	if len(args) == 0 {
		return 0, nil
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("expected one view id, got %q", strings.Join(args, " "))
	}
	return schema.ParseViewID(args[0])
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
	if id := sess.Context().SessionID(); id != "" {
		log = log.With("ssh_session", id)
	}

	viewID, err := parseViewArg(sess.Command())
	if err != nil {
		log.Info("ssh session rejected", "reason", "bad view argument", "err", err)
		_, _ = io.WriteString(sess, err.Error()+"\n")
		_ = sess.Exit(2)
		return
	}
	if viewID != 0 {
		if _, ok := s.Display.Snapshot(viewID); !ok {
			log.Info("ssh session rejected", "reason", "unknown view", "view", viewID.String())
			_, _ = io.WriteString(sess, "unknown view "+viewID.String()+"\n")
			_ = sess.Exit(1)
			return
		}
	}
	ctx := logx.ContextWithViewLogger(sess.Context(), log, viewID, 0)

	pty, winCh, hasPty := sess.Pty()
	ui := newViewer(sess, s.Display, s.EventBus, viewID, hasPty)
	defer ui.Close()
	if hasPty {
		ui.SetSize(pty.Window.Width, pty.Window.Height)
	} else {
		ui.SetSize(0, 0)
	}

	keys := make(chan keyKind, 16)
	go readKeys(sess, keys)

	log.Info("ssh session opened", "term", pty.Term, "pty", hasPty)
	if err := ui.Run(ctx, keys, winCh); err != nil {
		log.Debug("ssh session ended with error", "err", err)
	}
	_ = sess.Exit(0)
	log.Info("ssh session closed")
}
