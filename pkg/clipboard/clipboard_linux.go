//go:build linux

package clipboard

import (
	"context"
	"os"

	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
	"github.com/labi-le/astaroth/pkg/clipboard/wlclipboard"
	"github.com/labi-le/astaroth/pkg/clipboard/x11"
	"github.com/rs/zerolog"
)

// waylandSession reports whether a Wayland compositor is running. Under
// XWayland direct X11 access still works, but the compositor's clipboard is
// only reliably reachable through wl-clipboard, so the helper goes first.
func waylandSession() bool {
	_, display := os.LookupEnv("WAYLAND_DISPLAY")
	_, socket := os.LookupEnv("WAYLAND_SOCKET")
	return display || socket
}

func New(logger zerolog.Logger, opts Options) Backend {
	opts = opts.withDefaults()

	xopts := []x11.Option{
		x11.WithTimeout(opts.Timeout),
		x11.WithMaxSize(opts.MaxSize),
	}
	if opts.Primary {
		xopts = append(xopts, x11.WithPrimary())
	}

	return &linuxBackend{
		logger:  logger.With().Str("component", "clipboard").Logger(),
		base:    logger,
		opts:    opts,
		wayland: waylandSession() && commandExists("wl-paste"),
		x:       x11.New(logger, xopts...),
	}
}

type linuxBackend struct {
	logger  zerolog.Logger
	base    zerolog.Logger
	opts    Options
	wayland bool
	x       *x11.Client
}

func (b *linuxBackend) Name() string {
	if b.wayland {
		return "wl-clipboard+x11"
	}
	return "x11"
}

func (b *linuxBackend) Text(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	if b.wayland {
		if data, err := wlclipboard.Paste(ctx, b.opts.Primary); err == nil && len(data) > 0 {
			return string(trimNewline(data))
		}
		b.logger.Trace().Msg("wayland helper yielded nothing, trying x11")
	}

	data, err := b.x.Text(ctx)
	if err != nil {
		b.logger.Debug().Err(err).Msg("x11 retrieval failed")
		return b.helperText(ctx)
	}
	return string(trimNewline(data))
}

// helperText is the last resort when no display connection can be opened:
// xclip or xsel may still reach a server we cannot.
func (b *linuxBackend) helperText(ctx context.Context) string {
	if data, err := new(xClip).Get(ctx, b.opts.Primary); err == nil && len(data) > 0 {
		return string(trimNewline(data))
	}
	if data, err := new(xSel).Get(ctx, b.opts.Primary); err == nil && len(data) > 0 {
		return string(trimNewline(data))
	}
	return ""
}

func (b *linuxBackend) SetText(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	if b.wayland {
		return wrapUnavailable(wlclipboard.Copy(ctx, []byte(text), b.opts.Primary))
	}

	if commandExists("xclip") {
		return wrapUnavailable(new(xClip).Set(ctx, []byte(text), b.opts.Primary))
	}
	if commandExists("xsel") {
		return wrapUnavailable(new(xSel).Set(ctx, []byte(text), b.opts.Primary))
	}
	return ErrUnavailable
}

func (b *linuxBackend) Watch(ctx context.Context, upd chan<- eventful.Update) error {
	inner := make(chan eventful.Update)
	go relayTrimmed(inner, upd)

	if b.wayland {
		return wlclipboard.New(b.base, b.opts.Primary).Watch(ctx, inner)
	}
	return b.x.Watch(ctx, inner)
}
