package x11

import (
	"context"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
)

const (
	xFixesClientMajor = 5
	xFixesClientMinor = 0
)

// Watch subscribes to clipboard ownership changes via xfixes and refetches
// the text value on every change. It opens a long-lived connection of its
// own and closes the update channel when it returns.
func (c *Client) Watch(ctx context.Context, upd chan<- eventful.Update) error {
	defer close(upd)

	w, err := c.newWatcher()
	if err != nil {
		return err
	}
	defer w.conn.Close()

	// initial state
	w.notify(ctx, upd)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			ev, err := w.conn.WaitForEvent()
			if err != nil {
				w.client.logger.Trace().Err(err).Msg("x server error event")
				continue
			}
			if ev == nil {
				return nil
			}

			if e, ok := ev.(xfixes.SelectionNotifyEvent); ok && e.Owner != w.win {
				w.notify(ctx, upd)
			}
		}
	}
}

type watcher struct {
	client *Client
	conn   *xgb.Conn
	win    xproto.Window
	dedup  eventful.Deduplicator
}

func (c *Client) newWatcher() (*watcher, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("xgb connect: %w", err)
	}

	fail := func(err error) (*watcher, error) {
		conn.Close()
		return nil, err
	}

	if err := xfixes.Init(conn); err != nil {
		return fail(fmt.Errorf("xfixes init: %w", err))
	}
	if _, err := xfixes.QueryVersion(conn, xFixesClientMajor, xFixesClientMinor).Reply(); err != nil {
		return fail(fmt.Errorf("xfixes query version: %w", err))
	}

	atoms, err := loadAtoms(conn)
	if err != nil {
		return fail(fmt.Errorf("load atoms: %w", err))
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)
	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return fail(err)
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		win,
		screen.Root,
		-1,
		-1,
		1,
		1,
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		0,
		nil,
	).Check()
	if err != nil {
		return fail(fmt.Errorf("create listener window: %w", err))
	}

	selection := atoms.Clipboard
	if c.primary {
		selection = atoms.Primary
	}

	mask := xfixes.SelectionEventMaskSetSelectionOwner |
		xfixes.SelectionEventMaskSelectionWindowDestroy |
		xfixes.SelectionEventMaskSelectionClientClose
	if err := xfixes.SelectSelectionInputChecked(conn, win, selection, uint32(mask)).Check(); err != nil {
		return fail(fmt.Errorf("select selection input: %w", err))
	}

	return &watcher{client: c, conn: conn, win: win}, nil
}

// notify fetches the current value on a fresh per-call session, so the
// watcher's own event queue never races a retrieval in flight.
func (w *watcher) notify(ctx context.Context, upd chan<- eventful.Update) {
	data, err := w.client.Text(ctx)
	if err != nil {
		w.client.logger.Error().Err(err).Msg("failed to fetch selection")
		return
	}
	if len(data) == 0 {
		return
	}

	if h, ok := w.dedup.Check(data); ok {
		select {
		case upd <- eventful.Update{Data: data, Hash: h}:
		case <-ctx.Done():
		}
	}
}
