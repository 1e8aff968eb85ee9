// Package wlclipboard reaches the Wayland clipboard through the
// wl-clipboard helper binaries. Direct protocol access is unavailable to
// ordinary clients, so this stays an external-process backend.
package wlclipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
	"github.com/rs/zerolog"
)

var clipboardTick = 3 * time.Second

func init() {
	tick, exist := os.LookupEnv("WL_CLIPBOARD_TICK")
	if !exist {
		return
	}
	duration, err := time.ParseDuration(tick)
	if err != nil {
		panic("failed value for WL_CLIPBOARD_TICK. example: 5s")
	}

	clipboardTick = duration
}

// Paste returns the clipboard contents via wl-paste. A helper exit code of
// 1 means an empty clipboard, not a failure.
func Paste(ctx context.Context, primary bool) ([]byte, error) {
	args := []string{"--no-newline"}
	if primary {
		args = append(args, "--primary")
	}

	out, err := exec.CommandContext(ctx, "wl-paste", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("wl-paste: %w", err)
	}
	return out, nil
}

func Copy(ctx context.Context, data []byte, primary bool) error {
	var args []string
	if primary {
		args = append(args, "--primary")
	}

	cmd := exec.CommandContext(ctx, "wl-copy", args...)

	var (
		in  io.WriteCloser
		err error
	)
	if in, err = cmd.StdinPipe(); err != nil {
		return err
	}
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("wl-copy: %w", err)
	}
	if _, err = in.Write(data); err != nil {
		return err
	}
	if err = in.Close(); err != nil {
		return err
	}
	if err = cmd.Wait(); err != nil {
		return fmt.Errorf("wl-copy: %w", err)
	}
	return nil
}

type Clipboard struct {
	logger  zerolog.Logger
	primary bool
	dedup   eventful.Deduplicator
}

func New(log zerolog.Logger, primary bool) *Clipboard {
	return &Clipboard{
		logger:  log.With().Str("component", "wl_clipboard").Logger(),
		primary: primary,
	}
}

// Watch polls wl-paste on a ticker; the compositor offers no change
// notification to external processes.
func (c *Clipboard) Watch(ctx context.Context, upd chan<- eventful.Update) error {
	defer close(upd)

	ticker := time.NewTicker(clipboardTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			data, err := Paste(ctx, c.primary)
			if err != nil {
				c.logger.Error().Err(err).Msg("wl-clipboard: failed to get content")
				continue
			}
			if len(data) == 0 {
				continue
			}

			if h, ok := c.dedup.Check(data); ok {
				select {
				case upd <- eventful.Update{Data: data, Hash: h}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
