//go:build windows

package windows

import (
	"errors"
	"runtime"
	"time"
)

var errUnavailable = errors.New("clipboard unavailable")

// ReadText returns the clipboard text as UTF-8, nil when no text is
// available.
func ReadText() ([]byte, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r, _, _ := isClipboardFormatAvailable.Call(cFmtUnicodeText)
	if r == 0 {
		return nil, nil
	}

	if err := open(); err != nil {
		return nil, err
	}
	defer closeClipboard.Call()

	return readText()
}

// WriteText replaces the clipboard contents with buf.
func WriteText(buf []byte) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := open(); err != nil {
		return err
	}
	defer closeClipboard.Call()

	if r, _, _ := emptyClipboard.Call(); r == 0 {
		return errors.New("failed to empty clipboard")
	}

	return writeText(buf)
}

// open retries briefly: another process holding the clipboard is routine.
func open() error {
	for i := 0; i < 5; i++ {
		if r, _, _ := openClipboard.Call(0); r != 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errUnavailable
}
