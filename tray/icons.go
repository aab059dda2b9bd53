//go:build darwin

package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

var (
	iconIdle      []byte
	iconIdleHi    []byte
	iconMissing   []byte
	iconMissingHi []byte
)

func init() {
	iconIdle = renderMic(22, false)
	iconIdleHi = renderMic(44, false)
	iconMissing = renderMic(22, true)
	iconMissingHi = renderMic(44, true)
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("encodePNG: " + err.Error())
	}
	return buf.Bytes()
}

// renderMic draws a capsule on a stand in black on transparent, which macOS
// tints as a template image. A missing lock gets a slash across it.
func renderMic(size int, missing bool) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	s := float64(size)

	capW := s * 0.30
	capTop, capBot := s*0.10, s*0.58
	cx := s / 2
	capR := capW / 2

	armR := s * 0.27
	armCY := capBot - capR
	stroke := s * 0.07

	for y := range size {
		for x := range size {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			dx := math.Abs(fx - cx)

			var inCapsule bool
			switch {
			case fy < capTop+capR:
				inCapsule = math.Hypot(dx, fy-(capTop+capR)) <= capR
			case fy > capBot-capR:
				inCapsule = math.Hypot(dx, fy-(capBot-capR)) <= capR
			default:
				inCapsule = dx <= capR
			}

			d := math.Hypot(fx-cx, fy-armCY)
			inArm := fy >= armCY && math.Abs(d-armR) <= stroke/2
			inStem := dx <= stroke/2 && fy >= armCY+armR && fy <= s*0.90
			inBase := math.Abs(fy-s*0.90) <= stroke/2 && dx <= s*0.18

			if inCapsule || inArm || inStem || inBase {
				img.Set(x, y, color.Black)
			}
		}
	}

	if missing {
		drawSlash(img, size)
	}
	return encodePNG(img)
}

func drawSlash(img *image.RGBA, size int) {
	s := float64(size)
	w := s * 0.09
	for y := range size {
		for x := range size {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			// distance to the line x == y
			d := math.Abs(fx-fy) / math.Sqrt2
			if d <= w/2 && fx > s*0.08 && fx < s*0.92 {
				img.Set(x, y, color.Black)
			} else if d <= w/2+w*0.6 && fx > s*0.08 && fx < s*0.92 {
				img.Set(x, y, color.Transparent)
			}
		}
	}
}
