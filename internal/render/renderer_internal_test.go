package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLateDecodeNeverPaintsOverNewer(t *testing.T) {
	s := NewSurface()
	r := NewRenderer(s)

	first := r.issued.Add(1)
	second := r.issued.Add(1)

	// The newer decode lands first; the older one completes late.
	r.paintDecoded(second, image.NewRGBA(image.Rect(0, 0, 64, 64)))
	r.paintDecoded(first, image.NewRGBA(image.Rect(0, 0, 32, 32)))

	assert.Equal(t, image.Rect(0, 0, 64, 64), s.Bounds())
	assert.Equal(t, uint64(1), s.PaintCount())
}

func TestSupersededDecodeDiscarded(t *testing.T) {
	s := NewSurface()
	r := NewRenderer(s)

	first := r.issued.Add(1)
	r.issued.Add(1) // a newer frame is already in flight

	r.paintDecoded(first, image.NewRGBA(image.Rect(0, 0, 32, 32)))
	assert.Equal(t, uint64(0), s.PaintCount())
}
