//go:build darwin && cgo

package audio

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdint.h>
#include <stdlib.h>

extern OSStatus goPropertyListener(AudioObjectID objectID, UInt32 numAddresses, AudioObjectPropertyAddress *addresses, void *clientData);

static AudioObjectPropertyAddress mkAddress(AudioObjectPropertySelector sel, AudioObjectPropertyScope scope) {
	AudioObjectPropertyAddress addr = { sel, scope, kAudioObjectPropertyElementMain };
	return addr;
}

static OSStatus propertySize(AudioObjectID obj, AudioObjectPropertySelector sel, AudioObjectPropertyScope scope, UInt32 *size) {
	AudioObjectPropertyAddress addr = mkAddress(sel, scope);
	return AudioObjectGetPropertyDataSize(obj, &addr, 0, NULL, size);
}

static OSStatus propertyData(AudioObjectID obj, AudioObjectPropertySelector sel, AudioObjectPropertyScope scope, UInt32 *size, void *out) {
	AudioObjectPropertyAddress addr = mkAddress(sel, scope);
	return AudioObjectGetPropertyData(obj, &addr, 0, NULL, size, out);
}

static OSStatus setDefaultInput(AudioObjectID dev) {
	AudioObjectPropertyAddress addr = mkAddress(kAudioHardwarePropertyDefaultInputDevice, kAudioObjectPropertyScopeGlobal);
	return AudioObjectSetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, sizeof(dev), &dev);
}

// copyStringProperty copies a CFString property into a malloc'd UTF-8 buffer.
// *out is NULL when the property is empty.
static OSStatus copyStringProperty(AudioObjectID obj, AudioObjectPropertySelector sel, char **out) {
	*out = NULL;
	CFStringRef str = NULL;
	UInt32 size = sizeof(str);
	OSStatus st = propertyData(obj, sel, kAudioObjectPropertyScopeGlobal, &size, &str);
	if (st != noErr) {
		return st;
	}
	if (str == NULL) {
		return noErr;
	}
	CFIndex len = CFStringGetMaximumSizeForEncoding(CFStringGetLength(str), kCFStringEncodingUTF8) + 1;
	char *buf = malloc(len);
	if (buf != NULL && CFStringGetCString(str, buf, len, kCFStringEncodingUTF8)) {
		*out = buf;
	} else {
		free(buf);
	}
	CFRelease(str);
	return noErr;
}

// inputChannels sums mNumberChannels across the input stream configuration.
static OSStatus inputChannels(AudioObjectID dev, UInt32 *channels) {
	*channels = 0;
	UInt32 size = 0;
	OSStatus st = propertySize(dev, kAudioDevicePropertyStreamConfiguration, kAudioDevicePropertyScopeInput, &size);
	if (st != noErr || size == 0) {
		return st;
	}
	AudioBufferList *abl = malloc(size);
	if (abl == NULL) {
		return kAudioHardwareUnspecifiedError;
	}
	st = propertyData(dev, kAudioDevicePropertyStreamConfiguration, kAudioDevicePropertyScopeInput, &size, abl);
	if (st == noErr) {
		for (UInt32 i = 0; i < abl->mNumberBuffers; i++) {
			*channels += abl->mBuffers[i].mNumberChannels;
		}
	}
	free(abl);
	return st;
}

static OSStatus deviceForUID(const char *uid, AudioObjectID *out) {
	*out = kAudioObjectUnknown;
	CFStringRef cfUID = CFStringCreateWithCString(NULL, uid, kCFStringEncodingUTF8);
	if (cfUID == NULL) {
		return kAudioHardwareIllegalOperationError;
	}
	AudioValueTranslation t = { &cfUID, sizeof(cfUID), out, sizeof(*out) };
	UInt32 size = sizeof(t);
	OSStatus st = propertyData(kAudioObjectSystemObject, kAudioHardwarePropertyDeviceForUID, kAudioObjectPropertyScopeGlobal, &size, &t);
	CFRelease(cfUID);
	return st;
}

static OSStatus addListener(AudioObjectPropertySelector sel, uintptr_t ctx) {
	AudioObjectPropertyAddress addr = mkAddress(sel, kAudioObjectPropertyScopeGlobal);
	return AudioObjectAddPropertyListener(kAudioObjectSystemObject, &addr, (AudioObjectPropertyListenerProc)goPropertyListener, (void *)ctx);
}

static OSStatus removeListener(AudioObjectPropertySelector sel, uintptr_t ctx) {
	AudioObjectPropertyAddress addr = mkAddress(sel, kAudioObjectPropertyScopeGlobal);
	return AudioObjectRemovePropertyListener(kAudioObjectSystemObject, &addr, (AudioObjectPropertyListenerProc)goPropertyListener, (void *)ctx);
}
*/
import "C"

import (
	"unsafe"
)

type coreAudioHAL struct{}

// NewHAL opens the CoreAudio hardware abstraction layer.
func NewHAL() (HAL, error) {
	return coreAudioHAL{}, nil
}

func (coreAudioHAL) DeviceIDs() ([]DeviceID, error) {
	var size C.UInt32
	st := C.propertySize(C.kAudioObjectSystemObject, C.kAudioHardwarePropertyDevices, C.kAudioObjectPropertyScopeGlobal, &size)
	if err := statusErr("get devices size", int32(st)); err != nil {
		return nil, err
	}
	n := int(size) / int(unsafe.Sizeof(C.AudioObjectID(0)))
	if n == 0 {
		return nil, nil
	}
	raw := make([]C.AudioObjectID, n)
	st = C.propertyData(C.kAudioObjectSystemObject, C.kAudioHardwarePropertyDevices, C.kAudioObjectPropertyScopeGlobal, &size, unsafe.Pointer(&raw[0]))
	if err := statusErr("get devices", int32(st)); err != nil {
		return nil, err
	}
	// the list can shrink between the two calls
	n = int(size) / int(unsafe.Sizeof(C.AudioObjectID(0)))
	ids := make([]DeviceID, n)
	for i := 0; i < n; i++ {
		ids[i] = DeviceID(raw[i])
	}
	return ids, nil
}

// stringSelector maps a string property onto the CoreAudio selector that
// returns it as a CFString.
func stringSelector(sel Selector) (C.AudioObjectPropertySelector, bool) {
	switch sel {
	case SelName:
		return C.kAudioObjectPropertyName, true
	case SelDeviceUID:
		return C.kAudioDevicePropertyDeviceUID, true
	}
	return 0, false
}

func (coreAudioHAL) StringProperty(id DeviceID, sel Selector) (string, error) {
	caSel, ok := stringSelector(sel)
	if !ok {
		return "", &SubsystemError{Op: "get " + sel.String(), Code: -1}
	}
	var out *C.char
	st := C.copyStringProperty(C.AudioObjectID(id), caSel, &out)
	if err := statusErr("get "+sel.String(), int32(st)); err != nil {
		return "", err
	}
	if out == nil {
		return "", ErrNotFound
	}
	defer C.free(unsafe.Pointer(out))
	s := C.GoString(out)
	if s == "" {
		return "", ErrNotFound
	}
	return s, nil
}

func (coreAudioHAL) InputChannelCount(id DeviceID) (uint32, error) {
	var ch C.UInt32
	st := C.inputChannels(C.AudioObjectID(id), &ch)
	if err := statusErr("get stream configuration", int32(st)); err != nil {
		return 0, err
	}
	return uint32(ch), nil
}

func (coreAudioHAL) InputStreamCount(id DeviceID) (int, error) {
	var size C.UInt32
	st := C.propertySize(C.AudioObjectID(id), C.kAudioDevicePropertyStreams, C.kAudioDevicePropertyScopeInput, &size)
	if err := statusErr("get input streams", int32(st)); err != nil {
		return 0, err
	}
	return int(size) / int(unsafe.Sizeof(C.AudioStreamID(0))), nil
}

func (coreAudioHAL) DefaultInputDevice() (DeviceID, error) {
	var dev C.AudioObjectID
	size := C.UInt32(unsafe.Sizeof(dev))
	st := C.propertyData(C.kAudioObjectSystemObject, C.kAudioHardwarePropertyDefaultInputDevice, C.kAudioObjectPropertyScopeGlobal, &size, unsafe.Pointer(&dev))
	if err := statusErr("get default input", int32(st)); err != nil {
		return 0, err
	}
	if dev == C.kAudioObjectUnknown {
		return 0, ErrNotFound
	}
	return DeviceID(dev), nil
}

func (coreAudioHAL) SetDefaultInputDevice(id DeviceID) error {
	return statusErr("set default input", int32(C.setDefaultInput(C.AudioObjectID(id))))
}

func (coreAudioHAL) DeviceForUID(uid string) (DeviceID, error) {
	cs := C.CString(uid)
	defer C.free(unsafe.Pointer(cs))
	var dev C.AudioObjectID
	if err := statusErr("translate uid", int32(C.deviceForUID(cs, &dev))); err != nil {
		return 0, err
	}
	if dev == C.kAudioObjectUnknown {
		return 0, ErrNotFound
	}
	return DeviceID(dev), nil
}

func (coreAudioHAL) AddPropertyListener(sel Selector, ctx *ListenerContext) error {
	st := C.addListener(C.AudioObjectPropertySelector(sel), C.uintptr_t(ctx.ID()))
	return statusErr("add listener "+sel.String(), int32(st))
}

func (coreAudioHAL) RemovePropertyListener(sel Selector, ctx *ListenerContext) error {
	st := C.removeListener(C.AudioObjectPropertySelector(sel), C.uintptr_t(ctx.ID()))
	return statusErr("remove listener "+sel.String(), int32(st))
}

func (coreAudioHAL) Close() error { return nil }
