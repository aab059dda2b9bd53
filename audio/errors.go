package audio

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a well-formed query without an answer: an unset
// default, an unresolved UID, an empty property.
var ErrNotFound = errors.New("audio: not found")

// ErrUnsupported is returned by NewHAL on platforms without a backend.
var ErrUnsupported = errors.New("audio: no audio subsystem backend for this platform")

// SubsystemError is a native call that returned a non-success status. Code is
// opaque at this layer (an OSStatus on macOS, a protocol error on Linux).
type SubsystemError struct {
	Op   string
	Code int32
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("audio: %s failed (status %d%s)", e.Op, e.Code, fourCCSuffix(e.Code))
}

// fourCCSuffix renders CoreAudio statuses that are four printable characters,
// e.g. 'who?' for kAudioHardwareBadObjectError.
func fourCCSuffix(code int32) string {
	u := uint32(code)
	b := []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return ""
		}
	}
	return " '" + string(b) + "'"
}

func statusErr(op string, code int32) error {
	if code == 0 {
		return nil
	}
	return &SubsystemError{Op: op, Code: code}
}
