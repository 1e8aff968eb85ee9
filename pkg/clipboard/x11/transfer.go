package x11

import (
	"bytes"
	"errors"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog"
)

const maxPropSize = 0x10000

var (
	errTimeout  = errors.New("x11: selection owner did not respond in time")
	errDeclined = errors.New("x11: selection owner declined conversion")
	errNotText  = errors.New("x11: selection owner offered non-text data")
	errTooLarge = errors.New("x11: selection data exceeded size limit")
	errClosed   = errors.New("x11: connection closed during transfer")
)

// propertyOps is what one retrieval needs from the requestor window:
// sending the conversion request and reading or deleting the scratch
// property. The live implementation sits on session; tests script it.
type propertyOps interface {
	ConvertSelection(selection, target xproto.Atom, ts xproto.Timestamp) error
	// Property reads the scratch property. length is in 32-bit units;
	// delete makes the read destructive, which during INCR tells the
	// owner to send the next chunk.
	Property(delete bool, length uint32) (*xproto.GetPropertyReply, error)
	DeleteProperty() error
}

// transfer runs one selection retrieval against one selection/target pair.
// It consumes protocol events from a feed channel and never touches the
// connection directly, bounded in wall-clock time by a deadline that holds
// across arbitrarily many INCR chunks.
type transfer struct {
	ops     propertyOps
	events  <-chan xgb.Event
	win     xproto.Window
	prop    xproto.Atom
	atoms   *atomCache
	maxSize uint64
	logger  zerolog.Logger
}

func (t *transfer) run(selection, target xproto.Atom, ts xproto.Timestamp, deadline time.Time) ([]byte, error) {
	if err := t.ops.ConvertSelection(selection, target, ts); err != nil {
		return nil, err
	}
	// The scratch property must not outlive the retrieval on any path.
	defer func() { _ = t.ops.DeleteProperty() }()

	for {
		ev, err := t.next(deadline)
		if err != nil {
			return nil, err
		}

		e, ok := ev.(xproto.SelectionNotifyEvent)
		if !ok || e.Requestor != t.win || e.Selection != selection {
			// not addressed to this retrieval
			continue
		}

		if e.Property == xproto.AtomNone {
			return nil, errDeclined
		}
		if e.Property != t.prop {
			continue
		}

		return t.collect(deadline)
	}
}

func (t *transfer) collect(deadline time.Time) ([]byte, error) {
	peek, err := t.ops.Property(false, 0)
	if err != nil {
		return nil, err
	}

	if peek.Type == t.atoms.Incr {
		// Deleting the INCR handshake property signals the owner to
		// start streaming chunks. Whatever it held is not payload.
		if err := t.ops.DeleteProperty(); err != nil {
			return nil, err
		}
		return t.incr(deadline)
	}

	if !t.atoms.text(peek.Type) {
		t.logger.Debug().Uint32("type", uint32(peek.Type)).Msg("unsupported selection type")
		return nil, errNotText
	}

	full, err := t.ops.Property(true, peek.BytesAfter/4+1)
	if err != nil {
		return nil, err
	}
	if uint64(len(full.Value)) > t.maxSize {
		return nil, errTooLarge
	}
	return full.Value, nil
}

func (t *transfer) incr(deadline time.Time) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(4096)

	for {
		ev, err := t.next(deadline)
		if err != nil {
			return nil, err
		}

		e, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok || e.Window != t.win || e.Atom != t.prop || e.State != xproto.PropertyNewValue {
			continue
		}

		chunk, err := t.ops.Property(true, maxPropSize)
		if err != nil {
			return nil, err
		}

		if len(chunk.Value) == 0 {
			// end-of-stream marker
			return buf.Bytes(), nil
		}

		if !t.atoms.text(chunk.Type) {
			return nil, errNotText
		}

		if uint64(buf.Len()+len(chunk.Value)) > t.maxSize {
			return nil, errTooLarge
		}
		buf.Write(chunk.Value)
	}
}

// next blocks for one event, re-checking the remaining time so the whole
// retrieval never exceeds the deadline no matter how many chunks arrive.
func (t *transfer) next(deadline time.Time) (xgb.Event, error) {
	remain := time.Until(deadline)
	if remain <= 0 {
		return nil, errTimeout
	}

	timer := time.NewTimer(remain)
	defer timer.Stop()

	select {
	case ev, ok := <-t.events:
		if !ok {
			return nil, errClosed
		}
		return ev, nil
	case <-timer.C:
		return nil, errTimeout
	}
}
