// Package clipboard provides cross-platform access to the system clipboard
// text. Build constraints select the implementation: native win32 on
// Windows, pbpaste/pbcopy on macOS, and on Linux the wl-clipboard helper
// under Wayland with a raw X11 selection client as the fallback and
// default.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash"
	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
)

// ErrUnavailable means the platform copy mechanism could not be reached:
// no helper binary, no display connection.
var ErrUnavailable = errors.New("clipboard: copy mechanism unavailable")

// Backend is a platform clipboard implementation.
type Backend interface {
	// Text returns the current clipboard text, empty on failure or when
	// nothing is copied. An empty clipboard is not an error.
	Text(ctx context.Context) string

	// SetText replaces the clipboard text in a single best-effort
	// attempt. A missing helper process or display surfaces as an error
	// wrapping ErrUnavailable; so does a helper exiting non-zero.
	SetText(ctx context.Context, text string) error

	// Name identifies the backend for logs.
	Name() string

	eventful.Eventful
}

const (
	DefaultTimeout = 2 * time.Second
	DefaultMaxSize = 64 * 1024 * 1024
)

type Options struct {
	// Timeout bounds one selection retrieval, including all INCR chunks.
	Timeout time.Duration
	// MaxSize caps the accumulated selection payload.
	MaxSize uint64
	// Primary targets the X11 PRIMARY selection instead of CLIPBOARD.
	// Ignored on platforms without selections.
	Primary bool
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxSize == 0 {
		o.MaxSize = DefaultMaxSize
	}
	return o
}

// trimNewline drops trailing newline bytes that helper tools append.
// Applied once, at the dispatcher boundary, uniformly across backends.
func trimNewline(b []byte) []byte {
	return bytes.TrimRight(b, "\r\n")
}

// relayTrimmed forwards watcher updates across the dispatcher boundary,
// applying the same newline normalization as Text. Updates left empty by
// the trim are dropped. Closes out once in is drained.
func relayTrimmed(in <-chan Update, out chan<- Update) {
	defer close(out)

	for u := range in {
		u.Data = trimNewline(u.Data)
		if len(u.Data) == 0 {
			continue
		}
		u.Hash = xxhash.Sum64(u.Data)
		out <- u
	}
}

// Update re-exported for watcher plumbing.
type Update = eventful.Update

// wrapUnavailable tags err with ErrUnavailable so callers can test for the
// documented sentinel regardless of which copy mechanism failed. Errors
// already carrying the sentinel pass through untouched.
func wrapUnavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
