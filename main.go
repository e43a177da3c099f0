package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/egrangel/facerecon-sub002/internal/api"
	"github.com/egrangel/facerecon-sub002/internal/backend"
	"github.com/egrangel/facerecon-sub002/internal/config"
	"github.com/egrangel/facerecon-sub002/internal/registry"
	"github.com/egrangel/facerecon-sub002/internal/stream"
	"github.com/egrangel/facerecon-sub002/internal/viewer"
)

// main wires the stream gateway: session registry, lifecycle manager with
// its idle sweep, the viewer hub, and the HTTP surface.
func main() {
	cfg := config.New()

	reg := registry.New()
	client := backend.NewClient(cfg.BackendOrigin, cfg.BackendTimeout)
	manager := stream.NewManager(reg, client)
	hub := viewer.NewHub(manager, cfg.StreamEndpoint())

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go manager.RunSweep(sweepCtx)

	server := api.NewServer(manager, hub)

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("Camera stream gateway starting on %s (backend %s)", cfg.ServerAddress, cfg.BackendOrigin)
		log.Println("API endpoints:")
		log.Println("  POST /api/cameras/:cameraId/stream - Start a camera stream")
		log.Println("  DELETE /api/cameras/:cameraId/stream - Stop a camera stream")
		log.Println("  POST /api/cameras/:cameraId/stream/refresh - Refresh a camera stream")
		log.Println("  GET /api/cameras/:cameraId/stream - Stream status")
		log.Println("  GET /api/cameras/:cameraId/frame - Latest frame (JPEG)")
		log.Println("  GET /api/streams - List live sessions")
		log.Println("  WS /ws/cameras/:cameraId - Browser frame relay")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down gateway...")

	stopSweep()
	hub.Close()

	// Tear down every live session so the backend doesn't keep orphans
	teardownCtx, cancelTeardown := context.WithTimeout(context.Background(), 10*time.Second)
	for _, s := range reg.Entries() {
		manager.StopStream(teardownCtx, s.CameraID)
	}
	cancelTeardown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Gateway exited")
}
