package clipboard

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cespare/xxhash"
	"github.com/google/go-cmp/cmp"
)

func TestTrimNewline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "hello", "hello"},
		{"TrailingLF", "hello\n", "hello"},
		{"TrailingCRLF", "hello\r\n", "hello"},
		{"ManyTrailing", "hello\n\n\r\n", "hello"},
		{"InteriorPreserved", "a\nb\nc\n", "a\nb\nc"},
		{"OnlyNewlines", "\n\r\n", ""},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(trimNewline([]byte(tt.in)))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("trimNewline mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRelayTrimmed(t *testing.T) {
	in := make(chan Update, 4)
	in <- Update{Data: []byte("hello\n"), Hash: xxhash.Sum64String("hello\n")}
	in <- Update{Data: []byte("\n\r\n"), Hash: xxhash.Sum64String("\n\r\n")}
	in <- Update{Data: []byte("a\nb"), Hash: xxhash.Sum64String("a\nb")}
	close(in)

	out := make(chan Update, 4)
	relayTrimmed(in, out)

	var got []string
	for u := range out {
		if u.Hash != xxhash.Sum64(u.Data) {
			t.Errorf("hash %d does not match forwarded payload %q", u.Hash, u.Data)
		}
		got = append(got, string(u.Data))
	}

	want := []string{"hello", "a\nb"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("forwarded updates mismatch (-want +got):\n%s", diff)
	}
}

func TestWrapUnavailable(t *testing.T) {
	if wrapUnavailable(nil) != nil {
		t.Fatal("nil error must pass through")
	}

	plain := errors.New("wl-copy: exit status 1")
	wrapped := wrapUnavailable(plain)
	if !errors.Is(wrapped, ErrUnavailable) {
		t.Fatalf("wrapUnavailable(%v) does not carry ErrUnavailable", plain)
	}
	if !errors.Is(wrapped, plain) {
		t.Fatalf("wrapUnavailable(%v) lost the original error", plain)
	}

	already := fmt.Errorf("%w: xclip missing", ErrUnavailable)
	if got := wrapUnavailable(already); got != already {
		t.Fatalf("already-tagged error rewrapped: %v", got)
	}
}

func TestOptions_Defaults(t *testing.T) {
	var opts Options
	opts = opts.withDefaults()

	if opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
	}
	if opts.MaxSize != DefaultMaxSize {
		t.Errorf("MaxSize = %d, want %d", opts.MaxSize, DefaultMaxSize)
	}

	custom := Options{Timeout: 300 * time.Millisecond, MaxSize: 1024}.withDefaults()
	if custom.Timeout != 300*time.Millisecond || custom.MaxSize != 1024 {
		t.Errorf("withDefaults overwrote explicit values: %+v", custom)
	}
}
