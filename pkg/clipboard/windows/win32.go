//go:build windows

package windows

import (
	"golang.org/x/sys/windows"
)

const (
	wmClipboardUpdate = 0x031D
	wmDestroy         = 0x0002
	className         = "AstarothClipboardListener"
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

const (
	cFmtUnicodeText = 13

	gmemMoveable = 0x0002
)

// Win32 API
var (
	user32   = windows.NewLazySystemDLL("user32")
	kernel32 = windows.NewLazySystemDLL("kernel32")

	openClipboard              = user32.NewProc("OpenClipboard")
	closeClipboard             = user32.NewProc("CloseClipboard")
	emptyClipboard             = user32.NewProc("EmptyClipboard")
	getClipboardData           = user32.NewProc("GetClipboardData")
	setClipboardData           = user32.NewProc("SetClipboardData")
	isClipboardFormatAvailable = user32.NewProc("IsClipboardFormatAvailable")

	addClipboardFormatListener    = user32.NewProc("AddClipboardFormatListener")
	removeClipboardFormatListener = user32.NewProc("RemoveClipboardFormatListener")
	createWindowEx                = user32.NewProc("CreateWindowExW")
	defWindowProc                 = user32.NewProc("DefWindowProcW")
	registerClassEx               = user32.NewProc("RegisterClassExW")
	getMessage                    = user32.NewProc("GetMessageW")
	dispatchMessage               = user32.NewProc("DispatchMessageW")
	translateMessage              = user32.NewProc("TranslateMessage")
	postQuitMessage               = user32.NewProc("PostQuitMessage")
	destroyWindow                 = user32.NewProc("DestroyWindow")
	postMessage                   = user32.NewProc("PostMessageW")
	getModuleHandle               = kernel32.NewProc("GetModuleHandleW")

	gLock   = kernel32.NewProc("GlobalLock")
	gUnlock = kernel32.NewProc("GlobalUnlock")
	gAlloc  = kernel32.NewProc("GlobalAlloc")
	gFree   = kernel32.NewProc("GlobalFree")
)
