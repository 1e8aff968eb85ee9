// Package x11 retrieves clipboard text straight from the X server,
// implementing the ICCCM selection protocol including INCR transfers.
package x11

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/labi-le/astaroth/pkg/ctxlog"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout = 2 * time.Second
	DefaultMaxSize = 64 * 1024 * 1024
)

type Client struct {
	logger  zerolog.Logger
	conn    *xgb.Conn
	timeout time.Duration
	maxSize uint64
	primary bool

	// shared-connection state: retrievals over an injected connection are
	// serialized and drained by a single pump for the client's lifetime.
	mu       sync.Mutex
	pumpOnce sync.Once
	shared   chan xgb.Event
}

type Option func(*Client)

// WithConn makes the client use an externally-owned connection instead of
// opening a dedicated one per call. Ownership stays with the caller and the
// client never closes it. The client drains the connection's event queue
// with one pump for as long as the connection lives, so it must not be
// drained by another event loop at the same time, or responses may be lost
// to it. Retrievals over an injected connection are serialized.
func WithConn(conn *xgb.Conn) Option {
	return func(c *Client) { c.conn = conn }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMaxSize(n uint64) Option {
	return func(c *Client) { c.maxSize = n }
}

// WithPrimary targets the PRIMARY selection only, instead of CLIPBOARD
// with PRIMARY as fallback.
func WithPrimary() Option {
	return func(c *Client) { c.primary = true }
}

func New(log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		logger:  log.With().Str("component", "x11").Logger(),
		timeout: DefaultTimeout,
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Text returns the current selection's text value, or nil when nothing is
// available. The only error cases are transport ones: no display, broken
// connection. An owner that declines, offers non-text data, or never
// answers yields (nil, nil) within the configured timeout.
func (c *Client) Text(ctx context.Context) ([]byte, error) {
	log := ctxlog.Op(c.logger, "x11.Text")

	if c.conn != nil {
		// one retrieval at a time over a shared connection
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	s, err := c.newSession(log)
	if err != nil {
		return nil, err
	}
	defer s.release()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	ts := s.serverTime(deadline)

	selections := []xproto.Atom{s.atoms.Clipboard, s.atoms.Primary}
	if c.primary {
		selections = []xproto.Atom{s.atoms.Primary}
	}

	tr := &transfer{
		ops:     s,
		events:  s.events,
		win:     s.win,
		prop:    s.prop,
		atoms:   s.atoms,
		maxSize: c.maxSize,
		logger:  log,
	}

	for _, selection := range selections {
		for _, target := range requestTargets(s.atoms) {
			data, err := tr.run(selection, target, ts, deadline)
			if err != nil {
				log.Trace().Err(err).
					Uint32("selection", uint32(selection)).
					Uint32("target", uint32(target)).
					Msg("retrieval attempt failed")
				continue
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}

	return nil, nil
}

// requestTargets is the fallback ladder of representations asked of the
// selection owner, most specific first.
func requestTargets(a *atomCache) []xproto.Atom {
	return []xproto.Atom{a.Utf8String, a.String, a.Text}
}

// session holds the per-call protocol state: the requestor window, the
// scratch property and the event feed. Everything it acquires is released
// by release, on every exit path.
type session struct {
	conn    *xgb.Conn
	ownConn bool
	win     xproto.Window
	atoms   *atomCache
	prop    xproto.Atom
	events  <-chan xgb.Event
	stop    func()
	logger  zerolog.Logger
}

func (c *Client) newSession(log zerolog.Logger) (*session, error) {
	s := &session{
		conn:   c.conn,
		logger: log,
	}

	if s.conn == nil {
		conn, err := xgb.NewConn()
		if err != nil {
			return nil, fmt.Errorf("xgb connect: %w", err)
		}
		s.conn = conn
		s.ownConn = true
	}

	fail := func(err error) (*session, error) {
		if s.ownConn {
			s.conn.Close()
		}
		return nil, err
	}

	var err error
	if s.atoms, err = loadAtoms(s.conn); err != nil {
		return fail(fmt.Errorf("load atoms: %w", err))
	}
	if s.prop, err = scratchProperty(s.conn); err != nil {
		return fail(fmt.Errorf("intern scratch property: %w", err))
	}

	screen := xproto.Setup(s.conn).DefaultScreen(s.conn)
	if s.win, err = xproto.NewWindowId(s.conn); err != nil {
		return fail(err)
	}

	err = xproto.CreateWindowChecked(
		s.conn,
		screen.RootDepth,
		s.win,
		screen.Root,
		-1,
		-1,
		1,
		1,
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange},
	).Check()
	if err != nil {
		return fail(fmt.Errorf("create requestor window: %w", err))
	}

	if s.ownConn {
		ch := make(chan xgb.Event, 8)
		done := make(chan struct{})
		s.events = ch
		s.stop = func() { close(done) }
		go pumpEvents(s.conn, ch, done, log)
	} else {
		// An injected connection outlives the call, so its pump must
		// too: a per-session pump would survive release blocked in
		// WaitForEvent and steal the next call's responses.
		s.events = c.sharedEvents(log)
		s.stop = func() {}
	}

	return s, nil
}

// pumpEvents feeds connection events into ch until the connection closes.
// done only covers a pump parked on a full channel after release; the
// connection close is what unblocks WaitForEvent itself.
func pumpEvents(conn *xgb.Conn, ch chan<- xgb.Event, done <-chan struct{}, log zerolog.Logger) {
	defer close(ch)

	for {
		ev, err := conn.WaitForEvent()
		if ev == nil && err == nil {
			// connection closed
			return
		}
		if err != nil {
			log.Trace().Err(err).Msg("x server error event")
			continue
		}

		select {
		case <-done:
			return
		default:
		}

		select {
		case ch <- ev:
		case <-done:
			return
		}
	}
}

// sharedEvents lazily starts the single pump draining an injected
// connection. Sessions come and go; events addressed to a released
// session's window are read and ignored by the next one. The pump exits
// when the connection's owner closes it.
func (c *Client) sharedEvents(log zerolog.Logger) <-chan xgb.Event {
	c.pumpOnce.Do(func() {
		c.shared = make(chan xgb.Event, 8)
		go func() {
			defer close(c.shared)
			for {
				ev, err := c.conn.WaitForEvent()
				if ev == nil && err == nil {
					return
				}
				if err != nil {
					log.Trace().Err(err).Msg("x server error event")
					continue
				}
				c.shared <- ev
			}
		}()
	})
	return c.shared
}

func (s *session) release() {
	s.stop()

	_ = xproto.DeletePropertyChecked(s.conn, s.win, s.prop).Check()
	_ = xproto.DestroyWindowChecked(s.conn, s.win).Check()

	if s.ownConn {
		s.conn.Close()
	}
}

// serverTime obtains a fresh server timestamp by appending zero bytes to
// the scratch property and reading the resulting PropertyNotify. Some
// selection owners reject conversions stamped CurrentTime, which stays the
// fallback when the exchange fails.
func (s *session) serverTime(deadline time.Time) xproto.Timestamp {
	err := xproto.ChangePropertyChecked(
		s.conn,
		xproto.PropModeAppend,
		s.win,
		s.prop,
		s.atoms.String,
		8,
		0,
		nil,
	).Check()
	if err != nil {
		s.logger.Trace().Err(err).Msg("timestamp probe failed")
		return xproto.TimeCurrentTime
	}

	probe := time.Now().Add(200 * time.Millisecond)
	if probe.After(deadline) {
		probe = deadline
	}

	for {
		remain := time.Until(probe)
		if remain <= 0 {
			return xproto.TimeCurrentTime
		}

		timer := time.NewTimer(remain)
		select {
		case ev, ok := <-s.events:
			timer.Stop()
			if !ok {
				return xproto.TimeCurrentTime
			}
			if e, good := ev.(xproto.PropertyNotifyEvent); good && e.Window == s.win && e.Atom == s.prop {
				return e.Time
			}
		case <-timer.C:
			return xproto.TimeCurrentTime
		}
	}
}

// propertyOps implementation backed by the live connection.

func (s *session) ConvertSelection(selection, target xproto.Atom, ts xproto.Timestamp) error {
	return xproto.ConvertSelectionChecked(s.conn, s.win, selection, target, s.prop, ts).Check()
}

func (s *session) Property(delete bool, length uint32) (*xproto.GetPropertyReply, error) {
	return xproto.GetProperty(s.conn, delete, s.win, s.prop, xproto.GetPropertyTypeAny, 0, length).Reply()
}

func (s *session) DeleteProperty() error {
	return xproto.DeletePropertyChecked(s.conn, s.win, s.prop).Check()
}
