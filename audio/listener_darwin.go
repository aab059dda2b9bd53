//go:build darwin && cgo

package audio

/*
#include <CoreAudio/CoreAudio.h>
*/
import "C"

import "unsafe"

// goPropertyListener runs on a CoreAudio-owned thread. It must not block.
//
//export goPropertyListener
func goPropertyListener(_ C.AudioObjectID, n C.UInt32, addrs *C.AudioObjectPropertyAddress, clientData unsafe.Pointer) C.OSStatus {
	ctx := lookupListener(uintptr(clientData))
	if ctx == nil {
		return 0
	}
	if addrs == nil || n == 0 {
		ctx.Dispatch(nil)
		return 0
	}
	raw := unsafe.Slice(addrs, int(n))
	sels := make([]Selector, len(raw))
	for i, a := range raw {
		sels[i] = Selector(a.mSelector)
	}
	ctx.Dispatch(sels)
	return 0
}
