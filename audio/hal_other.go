//go:build !linux && !(darwin && cgo)

package audio

// NewHAL has no backend on this platform; -fake runs still work.
func NewHAL() (HAL, error) {
	return nil, ErrUnsupported
}
