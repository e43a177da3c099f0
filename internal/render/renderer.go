package render

import (
	"bytes"
	"image"
	"log"
	"sync"
	"sync/atomic"

	_ "image/jpeg"
	_ "image/png"
)

// Renderer decodes encoded frame payloads asynchronously and paints them
// onto a surface. There is no frame queue: every payload issues a decode
// immediately, and each decode is stamped with its arrival order. A decode
// that finishes after a newer frame has been issued is discarded instead of
// painted, which keeps the lossy low-latency behavior without ever showing a
// stale frame over a newer one.
type Renderer struct {
	surface *Surface

	issued       atomic.Uint64
	decoded      atomic.Uint64
	decodeErrors atomic.Uint64

	// paintMu orders finished decodes onto the surface; lastStamp is the
	// stamp of the last painted frame and only ever moves forward.
	paintMu   sync.Mutex
	lastStamp uint64
}

func NewRenderer(surface *Surface) *Renderer {
	return &Renderer{surface: surface}
}

// Surface returns the output surface this renderer paints.
func (r *Renderer) Surface() *Surface {
	return r.surface
}

// Render issues one asynchronous decode for an encoded still-image payload.
// Decode failures are logged and the frame dropped; they never propagate.
func (r *Renderer) Render(payload []byte) {
	stamp := r.issued.Add(1)

	go func() {
		img, _, err := image.Decode(bytes.NewReader(payload))
		if err != nil {
			r.decodeErrors.Add(1)
			log.Printf("Renderer: dropping undecodable frame (%d bytes): %v", len(payload), err)
			return
		}
		r.decoded.Add(1)
		r.paintDecoded(stamp, img)
	}()
}

// paintDecoded paints a finished decode unless it has been superseded. The
// check and the paint happen under one lock so a slow old decode can never
// land on the surface after a newer one already has.
func (r *Renderer) paintDecoded(stamp uint64, img image.Image) {
	r.paintMu.Lock()
	defer r.paintMu.Unlock()

	if stamp != r.issued.Load() || stamp <= r.lastStamp {
		return
	}
	r.lastStamp = stamp
	r.surface.Paint(img)
}

// Issued returns how many decodes have been issued.
func (r *Renderer) Issued() uint64 {
	return r.issued.Load()
}

// Decoded returns how many decodes have succeeded.
func (r *Renderer) Decoded() uint64 {
	return r.decoded.Load()
}

// DecodeErrors returns how many payloads failed to decode.
func (r *Renderer) DecodeErrors() uint64 {
	return r.decodeErrors.Load()
}
