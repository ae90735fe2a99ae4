package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/df07/go-light-transport/pkg/integrator"
	"github.com/df07/go-light-transport/pkg/renderer"
	"github.com/df07/go-light-transport/pkg/scene"
)

// TileUpdate represents a single tile update sent via SSE
type TileUpdate struct {
	TileX       int    `json:"tileX"`
	TileY       int    `json:"tileY"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG of just this tile
	PassNumber  int    `json:"passNumber"`
	TileNumber  int    `json:"tileNumber"`  // Current tile number in this pass (1-based)
	TotalTiles  int    `json:"totalTiles"`  // Total number of tiles in the image
	TotalPasses int    `json:"totalPasses"` // Total number of passes planned
}

// PassUpdate is sent after every completed pass
type PassUpdate struct {
	PassNumber     int    `json:"passNumber"`
	ImageData      string `json:"imageData"` // Base64 encoded PNG of the whole image
	Stats          Stats  `json:"stats"`
	IsLast         bool   `json:"isLast"`
	ElapsedMs      int64  `json:"elapsedMs"`
	PrimitiveCount int    `json:"primitiveCount"`
}

// SSEEvent is one server-sent event
type SSEEvent struct {
	Type string `json:"type"` // "console", "tile", "passComplete", "error", "complete"
	Data string `json:"data"`
}

// RenderingPipeline contains the prepared scene and its renderer
type RenderingPipeline struct {
	Scene    *scene.Scene
	Renderer *renderer.Renderer
}

// handleRender streams a progressive render as server-sent events. All
// writes happen on the handler goroutine.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.writeSSEEvent(w, SSEEvent{Type: "error", Data: fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	logger := slog.New(NewConsoleHandler(renderID, consoleChan, s.logger.Handler()))

	pipeline, err := s.setupRenderingPipeline(req, logger)
	if err != nil {
		s.writeSSEEvent(w, SSEEvent{Type: "error", Data: err.Error()})
		return
	}
	defer pipeline.Scene.TeardownAfterRender()

	startTime := time.Now()
	passChan, tileChan, errChan := pipeline.Renderer.RenderProgressive(ctx, renderer.RenderOptions{TileUpdates: true})
	defer func() {
		// The scene is torn down only after the render goroutine exits
		cancel()
		for range errChan {
		}
	}()
	s.handleRenderingEvents(ctx, w, passChan, tileChan, errChan, consoleChan, pipeline.Scene, startTime)
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvent writes and flushes one event
func (s *Server) writeSSEEvent(w http.ResponseWriter, event SSEEvent) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// writeJSONEvent marshals data into an event of the given type
func (s *Server) writeJSONEvent(w http.ResponseWriter, eventType string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.writeSSEEvent(w, SSEEvent{Type: eventType, Data: string(encoded)})
}

// setupRenderingPipeline builds, prepares and configures the requested scene
func (s *Server) setupRenderingPipeline(req *RenderRequest, logger *slog.Logger) (*RenderingPipeline, error) {
	sc, doc, err := s.buildScene(req)
	if err != nil {
		return nil, err
	}
	if err := sc.PrepareForRender(); err != nil {
		return nil, err
	}
	hash, err := doc.ConfigHash()
	if err != nil {
		sc.TeardownAfterRender()
		return nil, err
	}

	config := renderer.DefaultConfig()
	config.Spp = sc.Defaults.Spp
	if req.Spp > 0 {
		config.Spp = req.Spp
	}
	config.SppStep = doc.Int("renderer.spp_step", config.SppStep)
	if req.SppStep > 0 {
		config.SppStep = req.SppStep
	}
	config.Adaptive = req.Adaptive || doc.Bool("renderer.adaptive", false)
	if req.Seed != 0 {
		config.Seed = req.Seed
	}
	config.SceneHash = hash
	config.Logger = logger

	settings := integrator.DefaultSettings().WithMaxBounces(sc.Defaults.MaxBounces).WithMaxBounces(req.MaxBounces)
	r, err := renderer.NewRenderer(sc, integrator.PathTracerFactory(settings), config)
	if err != nil {
		sc.TeardownAfterRender()
		return nil, err
	}
	return &RenderingPipeline{Scene: sc, Renderer: r}, nil
}

// handleRenderingEvents forwards render results and console messages until
// the render ends or the client disconnects
func (s *Server) handleRenderingEvents(ctx context.Context, w http.ResponseWriter,
	passChan <-chan renderer.PassResult, tileChan <-chan renderer.TileCompletionResult, errChan <-chan error,
	consoleChan <-chan ConsoleMessage, sc *scene.Scene, startTime time.Time) {

	for passChan != nil || tileChan != nil {
		var err error
		select {
		case passResult, ok := <-passChan:
			if !ok {
				passChan = nil // Channel closed
				continue
			}
			err = s.handlePassComplete(w, passResult, sc, startTime)
		case tileResult, ok := <-tileChan:
			if !ok {
				tileChan = nil
				continue
			}
			err = s.handleTileUpdate(w, tileResult)
		case msg := <-consoleChan:
			err = s.writeJSONEvent(w, "console", msg)
		case <-ctx.Done():
			// Client disconnected; the renderer stops on the same context
			return
		}
		if err != nil {
			s.logger.Warn("dropping render stream", "error", err)
			return
		}
	}

	renderErr := <-errChan
	s.flushConsole(w, consoleChan)
	if renderErr != nil {
		s.writeSSEEvent(w, SSEEvent{Type: "error", Data: fmt.Sprintf("Rendering failed: %v", renderErr)})
		return
	}
	s.writeSSEEvent(w, SSEEvent{Type: "complete", Data: "Rendering completed"})
}

// flushConsole sends the console messages still buffered
func (s *Server) flushConsole(w http.ResponseWriter, consoleChan <-chan ConsoleMessage) {
	for {
		select {
		case msg := <-consoleChan:
			if s.writeJSONEvent(w, "console", msg) != nil {
				return
			}
		default:
			return
		}
	}
}

// handlePassComplete sends the pass image and statistics
func (s *Server) handlePassComplete(w http.ResponseWriter, passResult renderer.PassResult, sc *scene.Scene, startTime time.Time) error {
	imageData, err := s.imageToBase64PNG(passResult.Image)
	if err != nil {
		return fmt.Errorf("encoding pass image: %w", err)
	}
	stats := passResult.Stats
	return s.writeJSONEvent(w, "passComplete", PassUpdate{
		PassNumber: passResult.PassNumber,
		ImageData:  imageData,
		Stats: Stats{
			TotalPixels:    stats.TotalPixels,
			TotalSamples:   stats.TotalSamples,
			AverageSamples: stats.AverageSamples,
			MaxSamples:     stats.MaxSamples,
			MinSamples:     stats.MinSamples,
			MaxSamplesUsed: stats.MaxSamplesUsed,
			TotalBounces:   stats.TotalBounces,
		},
		IsLast:         passResult.IsLast,
		ElapsedMs:      time.Since(startTime).Milliseconds(),
		PrimitiveCount: sc.PrimitiveCount(),
	})
}

// handleTileUpdate sends one finished tile
func (s *Server) handleTileUpdate(w http.ResponseWriter, tileResult renderer.TileCompletionResult) error {
	tileData, err := s.imageToBase64PNG(tileResult.TileImage)
	if err != nil {
		return fmt.Errorf("encoding tile (%d, %d): %w", tileResult.TileX, tileResult.TileY, err)
	}
	return s.writeJSONEvent(w, "tile", TileUpdate{
		TileX:       tileResult.TileX,
		TileY:       tileResult.TileY,
		ImageData:   tileData,
		PassNumber:  tileResult.PassNumber,
		TileNumber:  tileResult.TileNumber,
		TotalTiles:  tileResult.TotalTiles,
		TotalPasses: tileResult.TotalPasses,
	})
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
