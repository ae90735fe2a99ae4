package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/scene"
)

// Parameter limits of the API
const (
	MinWidth   = 16
	MaxWidth   = 2000
	MaxSpp     = 10000
	MaxBounces = 1024
)

// Server streams progressive renders to browsers
type Server struct {
	port      int
	scenesDir string
	logger    *slog.Logger
}

// NewServer creates a new web server. A nil logger uses the package logger.
func NewServer(port int, scenesDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = core.Logger()
	}
	return &Server{port: port, scenesDir: scenesDir, logger: logger}
}

// RenderRequest represents a render request from the client. Zero values
// select the scene's defaults.
type RenderRequest struct {
	Scene      string `json:"scene"`      // Built-in scene name or document ID
	Width      int    `json:"width"`      // Image width
	Spp        int    `json:"spp"`        // Target samples per pixel
	SppStep    int    `json:"sppStep"`    // Samples per pixel per pass
	MaxBounces int    `json:"maxBounces"` // Maximum path length
	Adaptive   bool   `json:"adaptive"`   // Distribute samples by variance
	Seed       uint64 `json:"seed"`
}

// Stats represents render statistics
type Stats struct {
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int     `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	MaxSamples     int     `json:"maxSamples"`
	MinSamples     int     `json:"minSamples"`
	MaxSamplesUsed int     `json:"maxSamplesUsed"`
	TotalBounces   int     `json:"totalBounces"`
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting web server", "addr", fmt.Sprintf("http://localhost:%d", s.port))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// writeJSON sends v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes and the scene documents
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func parseBoolParam(values url.Values, key string, defaultValue bool) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseSceneParams reads the parameters shared by every scene endpoint
func (s *Server) parseSceneParams(values url.Values, req *RenderRequest) error {
	req.Scene = values.Get("scene")
	if req.Scene == "" {
		req.Scene = scene.DefaultSceneName
	}
	var err error
	req.Width, err = parseIntParam(values, "width", 0, MinWidth, MaxWidth)
	return err
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	values := r.URL.Query()
	req := &RenderRequest{}
	if err := s.parseSceneParams(values, req); err != nil {
		return nil, err
	}

	var err error
	if req.Spp, err = parseIntParam(values, "spp", 0, 1, MaxSpp); err != nil {
		return nil, err
	}
	if req.SppStep, err = parseIntParam(values, "sppStep", 0, 1, MaxSpp); err != nil {
		return nil, err
	}
	if req.MaxBounces, err = parseIntParam(values, "maxBounces", 0, 1, MaxBounces); err != nil {
		return nil, err
	}
	if req.Adaptive, err = parseBoolParam(values, "adaptive", false); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(values, "seed", 0, 0, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = uint64(seed)
	return req, nil
}

// buildScene resolves and builds the requested scene, applying the width
// override. The scene is not prepared.
func (s *Server) buildScene(req *RenderRequest) (*scene.Scene, *scene.Document, error) {
	doc, err := scene.ResolveDocument(req.Scene, s.scenesDir)
	if err != nil {
		return nil, nil, err
	}
	if req.Width > 0 {
		if doc, err = doc.Set("camera.width", req.Width); err != nil {
			return nil, nil, err
		}
	}
	sc, err := doc.Build()
	if err != nil {
		return nil, nil, err
	}
	return sc, doc, nil
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	req := &RenderRequest{}
	if err := s.parseSceneParams(r.URL.Query(), req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc, _, err := s.buildScene(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scene":      req.Scene,
		"name":       sc.Name,
		"primitives": sc.PrimitiveCount(),
		"defaults": map[string]int{
			"width":      sc.Camera.Width,
			"height":     sc.Camera.Height,
			"spp":        sc.Defaults.Spp,
			"maxBounces": sc.Defaults.MaxBounces,
		},
		"limits": map[string]map[string]int{
			"width":      {"min": MinWidth, "max": MaxWidth},
			"spp":        {"min": 1, "max": MaxSpp},
			"maxBounces": {"min": 1, "max": MaxBounces},
		},
	})
}
