package x11

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog"
)

const (
	testWin   xproto.Window = 0x2a
	testProp  xproto.Atom   = 310
	imageAtom xproto.Atom   = 200
)

func testAtoms() *atomCache {
	return &atomCache{
		Clipboard:  100,
		Primary:    101,
		Targets:    102,
		Timestamp:  103,
		Incr:       104,
		Utf8String: 105,
		String:     106,
		Text:       107,
	}
}

// fakeOwner scripts the selection owner's half of the protocol. Calls into
// propertyOps push the events a real server would deliver, so the transfer
// state machine runs exactly as it would against a live connection.
type fakeOwner struct {
	atoms *atomCache
	win   xproto.Window
	prop  xproto.Atom

	declined   bool
	directType xproto.Atom
	directData []byte

	incrChunks [][]byte
	chunkType  xproto.Atom

	events      chan xgb.Event
	incrStarted bool
	chunkIdx    int
	converts    int
}

func newFakeOwner(atoms *atomCache) *fakeOwner {
	return newFakeOwnerFeed(atoms, make(chan xgb.Event, 16))
}

// newFakeOwnerFeed scripts an owner over an externally-owned event feed,
// the shape sequential retrievals see on one shared connection.
func newFakeOwnerFeed(atoms *atomCache, events chan xgb.Event) *fakeOwner {
	return &fakeOwner{
		atoms:  atoms,
		win:    testWin,
		prop:   testProp,
		events: events,
	}
}

func (f *fakeOwner) ConvertSelection(selection, target xproto.Atom, _ xproto.Timestamp) error {
	f.converts++

	prop := f.prop
	if f.declined {
		prop = xproto.AtomNone
	}
	f.events <- xproto.SelectionNotifyEvent{
		Requestor: f.win,
		Selection: selection,
		Target:    target,
		Property:  prop,
	}
	return nil
}

func (f *fakeOwner) Property(delete bool, length uint32) (*xproto.GetPropertyReply, error) {
	if f.incrChunks != nil {
		if !f.incrStarted {
			// INCR handshake: property holds the sentinel type
			return &xproto.GetPropertyReply{Type: f.atoms.Incr, Format: 32}, nil
		}

		chunk := f.incrChunks[f.chunkIdx]
		reply := &xproto.GetPropertyReply{
			Type:     f.chunkType,
			Format:   8,
			ValueLen: uint32(len(chunk)),
			Value:    chunk,
		}
		if delete {
			f.advance()
		}
		return reply, nil
	}

	if length == 0 {
		return &xproto.GetPropertyReply{
			Type:       f.directType,
			Format:     8,
			BytesAfter: uint32(len(f.directData)),
		}, nil
	}
	return &xproto.GetPropertyReply{
		Type:     f.directType,
		Format:   8,
		ValueLen: uint32(len(f.directData)),
		Value:    f.directData,
	}, nil
}

func (f *fakeOwner) DeleteProperty() error {
	if f.incrChunks != nil && !f.incrStarted {
		f.incrStarted = true
		f.notifyChunk()
	}
	return nil
}

// advance moves past a destructively-read chunk and announces the next one.
func (f *fakeOwner) advance() {
	f.chunkIdx++
	if f.chunkIdx < len(f.incrChunks) {
		f.notifyChunk()
	}
}

func (f *fakeOwner) notifyChunk() {
	f.events <- xproto.PropertyNotifyEvent{
		Window: f.win,
		Atom:   f.prop,
		State:  xproto.PropertyNewValue,
	}
}

func newTestTransfer(f *fakeOwner) *transfer {
	return &transfer{
		ops:     f,
		events:  f.events,
		win:     f.win,
		prop:    f.prop,
		atoms:   f.atoms,
		maxSize: DefaultMaxSize,
		logger:  zerolog.Nop(),
	}
}

func runTransfer(t *testing.T, f *fakeOwner) ([]byte, error) {
	t.Helper()
	tr := newTestTransfer(f)
	deadline := time.Now().Add(time.Second)
	return tr.run(f.atoms.Clipboard, f.atoms.Utf8String, xproto.TimeCurrentTime, deadline)
}

func TestTransfer_Direct(t *testing.T) {
	f := newFakeOwner(testAtoms())
	f.directType = f.atoms.Utf8String
	f.directData = []byte("hello selection")

	got, err := runTransfer(t, f)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff(f.directData, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestTransfer_IncrReassembly(t *testing.T) {
	sizes := []int{4096, 4096, 4096, 137, 0}

	var want []byte
	chunks := make([][]byte, 0, len(sizes))
	for i, n := range sizes {
		chunk := bytes.Repeat([]byte{byte('a' + i)}, n)
		chunks = append(chunks, chunk)
		want = append(want, chunk...)
	}

	f := newFakeOwner(testAtoms())
	f.incrChunks = chunks
	f.chunkType = f.atoms.Utf8String

	got, err := runTransfer(t, f)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 4096*3+137 {
		t.Fatalf("reassembled %d bytes, want %d", len(got), 4096*3+137)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestTransfer_NonTextDirect(t *testing.T) {
	f := newFakeOwner(testAtoms())
	f.directType = imageAtom
	f.directData = []byte{0x89, 'P', 'N', 'G'}

	got, err := runTransfer(t, f)
	if !errors.Is(err, errNotText) {
		t.Fatalf("err = %v, want errNotText", err)
	}
	if got != nil {
		t.Fatalf("expected no payload, got %d bytes", len(got))
	}
}

func TestTransfer_NonTextIncrChunkAborts(t *testing.T) {
	f := newFakeOwner(testAtoms())
	f.incrChunks = [][]byte{bytes.Repeat([]byte{1}, 64)}
	f.chunkType = imageAtom

	if _, err := runTransfer(t, f); !errors.Is(err, errNotText) {
		t.Fatalf("err = %v, want errNotText", err)
	}
}

func TestTransfer_OwnerDeclined(t *testing.T) {
	f := newFakeOwner(testAtoms())
	f.declined = true

	got, err := runTransfer(t, f)
	if !errors.Is(err, errDeclined) {
		t.Fatalf("err = %v, want errDeclined", err)
	}
	if got != nil {
		t.Fatalf("expected no payload, got %d bytes", len(got))
	}
}

func TestTransfer_Timeout(t *testing.T) {
	f := newFakeOwner(testAtoms())
	tr := newTestTransfer(f)

	// owner that never answers: swap the feed for a silent channel
	tr.events = make(chan xgb.Event)

	const timeout = 100 * time.Millisecond
	start := time.Now()
	_, err := tr.run(f.atoms.Clipboard, f.atoms.Utf8String, xproto.TimeCurrentTime, start.Add(timeout))
	elapsed := time.Since(start)

	if !errors.Is(err, errTimeout) {
		t.Fatalf("err = %v, want errTimeout", err)
	}
	if elapsed < timeout-20*time.Millisecond {
		t.Fatalf("returned well before deadline: %v", elapsed)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Fatalf("exceeded deadline by too much: %v", elapsed)
	}
}

func TestTransfer_DeadlineHoldsAcrossChunks(t *testing.T) {
	// A stream that never terminates must still end at the deadline.
	f := newFakeOwner(testAtoms())
	f.chunkType = f.atoms.Utf8String

	tr := newTestTransfer(f)
	events := make(chan xgb.Event, 64)
	tr.events = events

	tr.ops = &endlessOwner{atoms: f.atoms, events: events}
	events <- xproto.SelectionNotifyEvent{
		Requestor: testWin,
		Selection: f.atoms.Clipboard,
		Target:    f.atoms.Utf8String,
		Property:  testProp,
	}

	const timeout = 150 * time.Millisecond
	start := time.Now()
	_, err := tr.run(f.atoms.Clipboard, f.atoms.Utf8String, xproto.TimeCurrentTime, start.Add(timeout))

	if !errors.Is(err, errTimeout) {
		t.Fatalf("err = %v, want errTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > timeout+500*time.Millisecond {
		t.Fatalf("endless INCR stream was not cut off at deadline: %v", elapsed)
	}
}

// endlessOwner streams non-terminating INCR chunks with a small delay.
type endlessOwner struct {
	atoms   *atomCache
	events  chan xgb.Event
	started bool
}

func (e *endlessOwner) ConvertSelection(_, _ xproto.Atom, _ xproto.Timestamp) error {
	return nil
}

func (e *endlessOwner) Property(delete bool, _ uint32) (*xproto.GetPropertyReply, error) {
	if !e.started {
		return &xproto.GetPropertyReply{Type: e.atoms.Incr, Format: 32}, nil
	}
	if delete {
		e.announce()
	}
	chunk := bytes.Repeat([]byte{'x'}, 32)
	return &xproto.GetPropertyReply{
		Type:     e.atoms.Utf8String,
		Format:   8,
		ValueLen: uint32(len(chunk)),
		Value:    chunk,
	}, nil
}

func (e *endlessOwner) DeleteProperty() error {
	if !e.started {
		e.started = true
		e.announce()
	}
	return nil
}

func (e *endlessOwner) announce() {
	go func() {
		time.Sleep(10 * time.Millisecond)
		e.events <- xproto.PropertyNotifyEvent{
			Window: testWin,
			Atom:   testProp,
			State:  xproto.PropertyNewValue,
		}
	}()
}

func TestTransfer_IgnoresForeignEvents(t *testing.T) {
	f := newFakeOwner(testAtoms())
	f.directType = f.atoms.Utf8String
	f.directData = []byte("mine")

	// noise addressed to another requestor and another scratch property
	f.events <- xproto.SelectionNotifyEvent{
		Requestor: testWin + 1,
		Selection: f.atoms.Clipboard,
		Target:    f.atoms.Utf8String,
		Property:  testProp + 1,
	}
	f.events <- xproto.PropertyNotifyEvent{
		Window: testWin + 1,
		Atom:   testProp + 1,
		State:  xproto.PropertyNewValue,
	}

	got, err := runTransfer(t, f)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !bytes.Equal(got, f.directData) {
		t.Fatalf("got %q, want %q", got, f.directData)
	}
}

func TestTransfer_SequentialCallsShareEventFeed(t *testing.T) {
	// One event feed serving retrieval after retrieval, as over an
	// injected connection with a single long-lived pump. Leftovers
	// addressed to the released first session must not disturb the
	// second, and no event may go to a stale consumer.
	feed := make(chan xgb.Event, 32)

	first := newFakeOwnerFeed(testAtoms(), feed)
	first.directType = first.atoms.Utf8String
	first.directData = []byte("first")

	got, err := runTransfer(t, first)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !bytes.Equal(got, first.directData) {
		t.Fatalf("first run got %q, want %q", got, first.directData)
	}

	// stragglers from the released session linger on a shared feed
	feed <- xproto.PropertyNotifyEvent{
		Window: first.win,
		Atom:   first.prop,
		State:  xproto.PropertyDelete,
	}
	feed <- xproto.SelectionNotifyEvent{
		Requestor: first.win,
		Selection: first.atoms.Clipboard,
		Target:    first.atoms.Utf8String,
		Property:  first.prop,
	}

	second := newFakeOwnerFeed(testAtoms(), feed)
	second.win = first.win + 1
	second.prop = first.prop + 1
	second.directType = second.atoms.Utf8String
	second.directData = []byte("second")

	got, err = runTransfer(t, second)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !bytes.Equal(got, second.directData) {
		t.Fatalf("second run got %q, want %q", got, second.directData)
	}
}

func TestRequestTargets_FallbackLadder(t *testing.T) {
	atoms := testAtoms()

	want := []xproto.Atom{atoms.Utf8String, atoms.String, atoms.Text}
	if diff := cmp.Diff(want, requestTargets(atoms)); diff != "" {
		t.Fatalf("target ladder mismatch (-want +got):\n%s", diff)
	}

	for _, target := range requestTargets(atoms) {
		if !atoms.text(target) {
			t.Errorf("requested target %d not accepted as a reply type", target)
		}
	}
}

func TestTransfer_SizeLimit(t *testing.T) {
	f := newFakeOwner(testAtoms())
	f.incrChunks = [][]byte{
		bytes.Repeat([]byte{'a'}, 4096),
		bytes.Repeat([]byte{'b'}, 4096),
	}
	f.chunkType = f.atoms.Utf8String

	tr := newTestTransfer(f)
	tr.maxSize = 4096

	_, err := tr.run(f.atoms.Clipboard, f.atoms.Utf8String, xproto.TimeCurrentTime, time.Now().Add(time.Second))
	if !errors.Is(err, errTooLarge) {
		t.Fatalf("err = %v, want errTooLarge", err)
	}
}
