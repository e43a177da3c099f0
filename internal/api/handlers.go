package api

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/egrangel/facerecon-sub002/internal/stream"
	"github.com/egrangel/facerecon-sub002/internal/viewer"
)

// Server carries the handler dependencies: the lifecycle manager for control
// operations and the viewer hub for frames.
type Server struct {
	manager  *stream.Manager
	hub      *viewer.Hub
	upgrader websocket.Upgrader
}

func NewServer(manager *stream.Manager, hub *viewer.Hub) *Server {
	return &Server{
		manager: manager,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
	}
}

func cameraID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("cameraId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid camera id"})
		return 0, false
	}
	return id, true
}

// handleStartStream admits a stream session for a camera. The registry
// projection in the response is authoritative either way: on admission
// failure it carries has_error and the user-facing message.
func (s *Server) handleStartStream(c *gin.Context) {
	id, ok := cameraID(c)
	if !ok {
		return
	}

	err := s.manager.StartStream(c.Request.Context(), id)
	session := s.manager.Registry().Get(id)
	if err != nil {
		log.Printf("Camera %d: stream admission failed: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   session.ErrorMessage,
			"session": session,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stream started successfully",
		"session": session,
	})
}

// handleStopStream tears down a camera's stream. The local entry is gone
// when this returns, whatever the backend teardown did.
func (s *Server) handleStopStream(c *gin.Context) {
	id, ok := cameraID(c)
	if !ok {
		return
	}

	s.manager.StopStream(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Stream stopped successfully",
		"camera_id": id,
	})
}

func (s *Server) handleRefreshStream(c *gin.Context) {
	id, ok := cameraID(c)
	if !ok {
		return
	}

	err := s.manager.RefreshStream(c.Request.Context(), id)
	session := s.manager.Registry().Get(id)
	if err != nil {
		log.Printf("Camera %d: stream refresh failed: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   session.ErrorMessage,
			"session": session,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stream refreshed successfully",
		"session": session,
	})
}

func (s *Server) handleDismissError(c *gin.Context) {
	id, ok := cameraID(c)
	if !ok {
		return
	}

	s.manager.DismissError(id)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Error dismissed",
		"camera_id": id,
	})
}

// handleGetStreamStatus returns the registry projection for a camera. Total:
// a camera with no entry reports the idle projection, never 404.
func (s *Server) handleGetStreamStatus(c *gin.Context) {
	id, ok := cameraID(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.manager.Registry().Get(id))
}

func (s *Server) handleListStreams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"streams": s.manager.Registry().Entries()})
}

// handleGetFrame returns the camera's current surface as a JPEG, or 204
// before the first paint.
func (s *Server) handleGetFrame(c *gin.Context) {
	id, ok := cameraID(c)
	if !ok {
		return
	}

	surface := s.hub.Surface(id)
	if surface == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	painted, err := surface.EncodeJPEG(&buf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode frame"})
		return
	}
	if !painted {
		c.Status(http.StatusNoContent)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

// handleWebSocket attaches a browser to a camera's relay.
func (s *Server) handleWebSocket(c *gin.Context) {
	id, ok := cameraID(c)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Camera %d: websocket upgrade error: %v", id, err)
		return
	}

	s.hub.Viewer(id).AddClient(conn)
}
