package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 480

	// snapshotQuality is the JPEG quality for surface snapshots served over
	// HTTP.
	snapshotQuality = 80
)

// Surface is the fixed output target a camera's frames paint onto. Each
// frame replaces the previous content wholesale; the surface resizes itself
// to match incoming frame dimensions.
type Surface struct {
	mu      sync.RWMutex
	img     *image.RGBA
	painted uint64
}

func NewSurface() *Surface {
	return &Surface{}
}

// Paint replaces the surface content with a frame, resizing to its bounds.
func (s *Surface) Paint(frame image.Image) {
	bounds := frame.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), frame, bounds.Min, draw.Src)

	s.mu.Lock()
	s.img = canvas
	s.painted++
	s.mu.Unlock()
}

// Placeholder paints a dark frame carrying a status message, shown before
// the first frame arrives or after the stream stops.
func (s *Surface) Placeholder(text string) {
	canvas := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{R: 16, G: 16, B: 24, A: 255}), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.RGBA{R: 200, G: 200, B: 200, A: 255}),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(placeholderWidth/2) - width/2,
		Y: fixed.I(placeholderHeight / 2),
	}
	d.DrawString(text)

	s.mu.Lock()
	s.img = canvas
	s.mu.Unlock()
}

// Snapshot returns the current content, or nil when nothing has been
// painted. The returned image is never mutated afterwards; Paint swaps in a
// fresh canvas per frame.
func (s *Surface) Snapshot() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return nil
	}
	return s.img
}

// Bounds returns the current surface dimensions.
func (s *Surface) Bounds() image.Rectangle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return image.Rectangle{}
	}
	return s.img.Bounds()
}

// PaintCount returns how many frames have painted the surface.
func (s *Surface) PaintCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.painted
}

// EncodeJPEG writes the current content as JPEG. It reports false without
// writing when nothing has been painted yet.
func (s *Surface) EncodeJPEG(w io.Writer) (bool, error) {
	img := s.Snapshot()
	if img == nil {
		return false, nil
	}
	return true, jpeg.Encode(w, img, &jpeg.Options{Quality: snapshotQuality})
}
