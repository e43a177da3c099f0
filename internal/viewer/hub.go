package viewer

import (
	"sync"

	"github.com/egrangel/facerecon-sub002/internal/render"
	"github.com/egrangel/facerecon-sub002/internal/stream"
)

// Hub hands out one viewer (and its render surface) per camera.
type Hub struct {
	manager   *stream.Manager
	streamURL string

	mu      sync.Mutex
	viewers map[int]*Viewer
	renders map[int]*render.Renderer
}

// NewHub creates a hub. streamURL is the fixed stream endpoint every frame
// channel dials, regardless of the informational streamUrl in the session.
func NewHub(manager *stream.Manager, streamURL string) *Hub {
	return &Hub{
		manager:   manager,
		streamURL: streamURL,
		viewers:   make(map[int]*Viewer),
		renders:   make(map[int]*render.Renderer),
	}
}

// Viewer returns the camera's viewer, creating it on first use.
func (h *Hub) Viewer(cameraID int) *Viewer {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v, ok := h.viewers[cameraID]; ok {
		return v
	}

	surface := render.NewSurface()
	surface.Placeholder("NO SIGNAL")
	renderer := render.NewRenderer(surface)
	v := newViewer(cameraID, h.manager, h.streamURL, renderer)

	h.renders[cameraID] = renderer
	h.viewers[cameraID] = v
	return v
}

// Surface returns the camera's render surface, or nil when no viewer exists.
func (h *Hub) Surface(cameraID int) *render.Surface {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.renders[cameraID]; ok {
		return r.Surface()
	}
	return nil
}

// Close shuts down every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	viewers := make([]*Viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.viewers = make(map[int]*Viewer)
	h.renders = make(map[int]*render.Renderer)
	h.mu.Unlock()

	for _, v := range viewers {
		v.Close()
	}
}
