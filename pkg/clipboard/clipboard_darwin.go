//go:build darwin

package clipboard

import (
	"context"
	"os/exec"

	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
	"github.com/labi-le/astaroth/pkg/clipboard/mac"
	"github.com/rs/zerolog"
)

func New(logger zerolog.Logger, opts Options) Backend {
	return &darwinBackend{
		logger: logger.With().Str("component", "clipboard").Logger(),
		opts:   opts.withDefaults(),
	}
}

type darwinBackend struct {
	logger zerolog.Logger
	opts   Options
}

func (b *darwinBackend) Name() string { return "pbpaste" }

func (b *darwinBackend) Text(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	data, err := clipboardGet(exec.CommandContext(ctx, "pbpaste"))
	if err != nil {
		b.logger.Debug().Err(err).Msg("pbpaste failed")
		return ""
	}
	return string(trimNewline(data))
}

func (b *darwinBackend) SetText(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	return clipboardSet([]byte(text), exec.CommandContext(ctx, "pbcopy"))
}

func (b *darwinBackend) Watch(ctx context.Context, upd chan<- eventful.Update) error {
	inner := make(chan eventful.Update)
	go relayTrimmed(inner, upd)
	return new(mac.Clipboard).Watch(ctx, inner)
}
