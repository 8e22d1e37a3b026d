package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/frontline/core"
	"pkt.systems/frontline/internal/appconfig"
	"pkt.systems/frontline/internal/display"
	"pkt.systems/frontline/internal/frontgrpc"
	"pkt.systems/frontline/internal/rpcpeer"
	"pkt.systems/frontline/schema"
	"pkt.systems/frontline/session"
	"pkt.systems/pslog"
)

var themeNames = []string{"outrun", "gruvbox", "tokyo-midnight"}

var languagesByExt = map[string]schema.LanguageID{
	".go":   "Go",
	".rs":   "Rust",
	".py":   "Python",
	".js":   "JavaScript",
	".ts":   "TypeScript",
	".md":   "Markdown",
	".json": "JSON",
	".yaml": "YAML",
	".yml":  "YAML",
	".toml": "TOML",
	".c":    "C",
	".h":    "C",
}

const plainText schema.LanguageID = "Plain Text"

// closingPeer is a core.Peer that can drain and hang up.
type closingPeer interface {
	core.Peer
	Shutdown(ctx context.Context) error
	Close() error
}

type openOptions struct {
	cfgPath string
	direct  bool
	theme   string
	width   int
}

func newOpenCmd() *cobra.Command {
	opts := openOptions{}
	cmd := &cobra.Command{
		Use:   "open FILE...",
		Short: "Open files as views on the front-end host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&opts.direct, "direct", false, "render in-process and print the result")
	cmd.Flags().StringVar(&opts.theme, "theme", themeNames[0], "theme to announce")
	cmd.Flags().IntVar(&opts.width, "width", 80, "columns used when printing with --direct")
	return cmd
}

func runOpen(ctx context.Context, out io.Writer, opts openOptions, paths []string) error {
	logger := pslog.Ctx(ctx)
	cfg, err := appconfig.Load(opts.cfgPath)
	if err != nil {
		return err
	}

	var client *core.Client
	var d *display.Display
	var peer closingPeer
	if opts.direct {
		d = display.New(display.Options{Logger: logger, MaxViews: cfg.Display.MaxViews})
		defer d.Close()
		client = core.NewDirect(d)
	} else {
		peer, err = dialHost(ctx, cfg.Transport)
		if err != nil {
			return err
		}
		defer func() { _ = peer.Close() }()
		client = core.NewRemote(peer)
	}

	sess := session.New(ctx, client)
	client.AvailableThemes(themeNames)
	client.ThemeChanged(opts.theme, schema.ThemeSettings{})
	client.AvailableLanguages(languageList())

	for _, path := range paths {
		viewID, err := sess.AddView(path)
		if err != nil {
			return err
		}
		ec, _ := sess.MakeContext(viewID)
		openView(ec, client)
	}

	if opts.direct {
		return printViews(out, d, sess, opts.width)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := peer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("open shutdown failed", "err", err)
		return err
	}
	logger.Info("open finished", "views", len(paths))
	return nil
}

// openView sends what a front-end needs to show a freshly opened file.
func openView(ec *session.EventContext, client *core.Client) {
	log := pslog.Ctx(ec.Context())
	ec.RenderInitial()
	client.LanguageChanged(ec.ViewID, languageFor(ec.Path))
	client.AddStatusItem(ec.ViewID, "frontline", "file", filepath.Base(ec.Path), schema.AlignLeft)

	lines := ec.Lines()
	client.AddStatusItem(ec.ViewID, "frontline", "lines", fmt.Sprintf("%d lines", len(lines)), schema.AlignRight)

	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = strings.TrimRight(line, "\r\n")
	}
	widths, err := ec.MeasureWidth([]schema.WidthReq{{ID: 0, Strings: texts}})
	if err != nil {
		return
	}
	widest := 0.0
	if len(widths) > 0 {
		for _, w := range widths[0] {
			widest = max(widest, w)
		}
	}
	log.Debug("open view measured", "lines", len(lines), "widest", widest)
	client.UpdateStatusItem(ec.ViewID, "lines", fmt.Sprintf("%d lines, %g cols", len(lines), widest))
}

func dialHost(ctx context.Context, tc appconfig.TransportConfig) (closingPeer, error) {
	timeout := time.Duration(tc.RequestTimeoutSeconds) * time.Second
	switch tc.Kind {
	case appconfig.TransportJSON:
		return rpcpeer.Dial(ctx, tc.Network, tc.Address, rpcpeer.WithRequestTimeout(timeout))
	case appconfig.TransportGRPC:
		peer, err := frontgrpc.Dial(ctx, frontgrpc.Config{Network: tc.Network, Address: tc.Address, RequestTimeout: timeout})
		if err != nil {
			return nil, err
		}
		if err := peer.Ping(ctx); err != nil {
			_ = peer.Close()
			return nil, err
		}
		return peer, nil
	default:
		return nil, fmt.Errorf("unsupported transport kind %q", tc.Kind)
	}
}

func languageFor(path string) schema.LanguageID {
	if lang, ok := languagesByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return plainText
}

func languageList() []schema.LanguageID {
	seen := map[schema.LanguageID]bool{plainText: true}
	out := []schema.LanguageID{plainText}
	for _, lang := range languagesByExt {
		if !seen[lang] {
			seen[lang] = true
			out = append(out, lang)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func printViews(out io.Writer, d *display.Display, sess *session.Session, width int) error {
	for _, viewID := range sess.Views() {
		state, ok := d.Snapshot(viewID)
		if !ok {
			continue
		}
		buf, _ := sess.Buffer(viewID)
		if _, err := fmt.Fprintf(out, "== %s %s ==\n", viewID, buf.Path); err != nil {
			return err
		}
		for _, row := range display.Render(state, width, 0) {
			if _, err := fmt.Fprintln(out, row); err != nil {
				return err
			}
		}
	}
	return nil
}
