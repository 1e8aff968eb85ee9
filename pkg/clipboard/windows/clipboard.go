//go:build windows

// Package windows talks to the native win32 clipboard: CF_UNICODETEXT
// read/write and an AddClipboardFormatListener message window for change
// subscription.
package windows

import (
	"context"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
	"golang.org/x/sys/windows"
)

type Clipboard struct {
	dedup eventful.Deduplicator
}

func New() *Clipboard {
	return new(Clipboard)
}

func (w *Clipboard) Watch(ctx context.Context, upd chan<- eventful.Update) error {
	defer close(upd)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hInstance, _, _ := getModuleHandle.Call(0)
	clsNamePtr, err := windows.UTF16PtrFromString(className)
	if err != nil {
		return err
	}

	wndProc := syscall.NewCallback(func(hwnd windows.Handle, msg uint32, wparam, lparam uintptr) uintptr {
		switch msg {
		case wmClipboardUpdate:
			data, err := ReadText()
			if err == nil && len(data) > 0 {
				if h, ok := w.dedup.Check(data); ok {
					select {
					case upd <- eventful.Update{Data: data, Hash: h}:
					case <-ctx.Done():
					}
				}
			}
			return 0

		case wmDestroy:
			postQuitMessage.Call(0)
			return 0
		}

		ret, _, _ := defWindowProc.Call(uintptr(hwnd), uintptr(msg), wparam, lparam)
		return ret
	})

	wc := wndClassEx{
		Size:      uint32(unsafe.Sizeof(wndClassEx{})),
		Instance:  windows.Handle(hInstance),
		WndProc:   wndProc,
		ClassName: clsNamePtr,
	}

	registerClassEx.Call(uintptr(unsafe.Pointer(&wc)))

	hwnd, _, _ := createWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(clsNamePtr)),
		uintptr(unsafe.Pointer(clsNamePtr)),
		0, 0, 0, 0, 0,
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		return fmt.Errorf("failed to create window listener")
	}

	if ret, _, _ := addClipboardFormatListener.Call(hwnd); ret == 0 {
		destroyWindow.Call(hwnd)
		return fmt.Errorf("failed to add clipboard format listener")
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			postMessage.Call(hwnd, wmDestroy, 0, 0)
		case <-done:
		}
	}()

	var msg struct {
		Hwnd    windows.Handle
		Message uint32
		WParam  uintptr
		LParam  uintptr
		Time    uint32
		Pt      struct{ X, Y int32 }
	}

	for {
		r, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(r) <= 0 {
			break
		}
		translateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		dispatchMessage.Call(uintptr(unsafe.Pointer(&msg)))
	}

	close(done)
	removeClipboardFormatListener.Call(hwnd)
	return nil
}
