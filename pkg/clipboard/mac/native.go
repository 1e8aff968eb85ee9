//go:build darwin

// Package mac watches NSPasteboard for changes through its changeCount,
// which is the only change signal AppKit offers.
package mac

import (
	"context"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"
	"github.com/labi-le/astaroth/pkg/clipboard/eventful"
)

func init() {
	_, err := purego.Dlopen("/System/Library/Frameworks/AppKit.framework/AppKit", purego.RTLD_GLOBAL|purego.RTLD_LAZY)
	if err != nil {
		panic(fmt.Errorf("mac clipboard: failed to load AppKit: %w", err))
	}
}

type Clipboard struct {
	dedup eventful.Deduplicator
}

func (m *Clipboard) Watch(ctx context.Context, upd chan<- eventful.Update) error {
	defer close(upd)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	clsNSPasteboard := objc.GetClass("NSPasteboard")
	clsNSString := objc.GetClass("NSString")

	selGeneralPasteboard := objc.RegisterName("generalPasteboard")
	selChangeCount := objc.RegisterName("changeCount")
	selStringForType := objc.RegisterName("stringForType:")
	selUTF8String := objc.RegisterName("UTF8String")

	nsTypeText := makeNSString(clsNSString, "public.utf8-plain-text")

	pb := objc.ID(clsNSPasteboard).Send(selGeneralPasteboard)
	lastCount := pb.Send(selChangeCount)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			currentCount := pb.Send(selChangeCount)
			if currentCount == lastCount {
				continue
			}
			lastCount = currentCount

			nsStr := pb.Send(selStringForType, nsTypeText)
			if nsStr == 0 {
				continue
			}
			utf8Ptr := nsStr.Send(selUTF8String)
			if utf8Ptr == 0 {
				continue
			}

			data := cStringToGoBytes(uintptr(utf8Ptr))
			if h, ok := m.dedup.Check(data); ok {
				dataCopy := make([]byte, len(data))
				copy(dataCopy, data)

				select {
				case upd <- eventful.Update{Data: dataCopy, Hash: h}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func makeNSString(clsNSString objc.Class, str string) objc.ID {
	selStringWithUTF8String := objc.RegisterName("stringWithUTF8String:")
	return objc.ID(clsNSString).Send(selStringWithUTF8String, str)
}

func cStringToGoBytes(ptr uintptr) []byte {
	if ptr == 0 {
		return nil
	}
	var length int
	for {
		if *(*byte)(unsafe.Pointer(ptr + uintptr(length))) == 0 {
			break
		}
		length++
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), length)
}
