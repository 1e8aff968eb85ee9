//go:build windows

package clipboard

import (
	"context"

	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
	"github.com/labi-le/astaroth/pkg/clipboard/windows"
	"github.com/rs/zerolog"
)

func New(logger zerolog.Logger, opts Options) Backend {
	return &windowsBackend{
		logger: logger.With().Str("component", "clipboard").Logger(),
		opts:   opts.withDefaults(),
	}
}

type windowsBackend struct {
	logger zerolog.Logger
	opts   Options
}

func (b *windowsBackend) Name() string { return "win32" }

func (b *windowsBackend) Text(_ context.Context) string {
	data, err := windows.ReadText()
	if err != nil {
		b.logger.Debug().Err(err).Msg("clipboard read failed")
		return ""
	}
	return string(trimNewline(data))
}

func (b *windowsBackend) SetText(_ context.Context, text string) error {
	return wrapUnavailable(windows.WriteText([]byte(text)))
}

func (b *windowsBackend) Watch(ctx context.Context, upd chan<- eventful.Update) error {
	inner := make(chan eventful.Update)
	go relayTrimmed(inner, upd)
	return windows.New().Watch(ctx, inner)
}
