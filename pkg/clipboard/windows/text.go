//go:build windows

package windows

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"
)

// readText reads CF_UNICODETEXT from an already-open clipboard and returns
// it as UTF-8.
func readText() ([]byte, error) {
	hMem, _, _ := getClipboardData.Call(cFmtUnicodeText)
	if hMem == 0 {
		return nil, nil
	}

	p, _, _ := gLock.Call(hMem)
	if p == 0 {
		return nil, fmt.Errorf("global lock failed")
	}
	defer gUnlock.Call(hMem)

	// CF_UNICODETEXT: UTF-16LE, NUL-terminated
	u := (*uint16)(unsafe.Pointer(p))

	n := 0
	for *(*uint16)(unsafe.Pointer(uintptr(unsafe.Pointer(u)) + uintptr(n)*2)) != 0 {
		n++
	}

	s := unsafe.Slice(u, n)

	buf := make([]byte, 0, n)

	for i := 0; i < len(s); i++ {
		r := rune(s[i])

		if r < 128 {
			buf = append(buf, byte(r))
			continue
		}

		if 0xD800 <= r && r < 0xDC00 && i+1 < len(s) && 0xDC00 <= s[i+1] && s[i+1] < 0xE000 {
			r = utf16.DecodeRune(r, rune(s[i+1]))
			i++
			buf = utf8.AppendRune(buf, r)
			continue
		}

		if 0xD800 <= r && r < 0xE000 {
			r = utf8.RuneError
		}

		buf = utf8.AppendRune(buf, r)
	}

	return buf, nil
}

// writeText stores buf as CF_UNICODETEXT on an already-open, already-emptied
// clipboard. Ownership of the global memory passes to the system on success.
func writeText(buf []byte) error {
	len16 := 0
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		i += size
		if r >= 0x10000 {
			len16 += 2
			continue
		}
		len16++
	}
	len16++ // NUL terminator

	sizeBytes := uintptr(len16 * 2)

	hMem, _, _ := gAlloc.Call(gmemMoveable, sizeBytes)
	if hMem == 0 {
		return fmt.Errorf("failed to alloc global memory")
	}

	p, _, _ := gLock.Call(hMem)
	if p == 0 {
		gFree.Call(hMem)
		return fmt.Errorf("failed to lock global memory")
	}

	dst := unsafe.Slice((*uint16)(unsafe.Pointer(p)), len16)

	idx := 0
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		i += size

		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			dst[idx] = uint16(r1)
			dst[idx+1] = uint16(r2)
			idx += 2
			continue
		}
		dst[idx] = uint16(r)
		idx++
	}
	dst[idx] = 0

	gUnlock.Call(hMem)

	v, _, _ := setClipboardData.Call(cFmtUnicodeText, hMem)
	if v == 0 {
		gFree.Call(hMem)
		return fmt.Errorf("failed to set text to clipboard")
	}

	return nil
}
