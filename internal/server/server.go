// Package server exposes the WMS/WMTS/REST surface over the tile
// pipeline. Handlers canonicalize their request parameters into
// coordinate.Request values - all three surfaces share one fingerprint
// space - and translate pipeline errors into OGC exception documents.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/driftline/stratus/internal/cache"
	"github.com/driftline/stratus/internal/config"
	"github.com/driftline/stratus/internal/coordinate"
	"github.com/driftline/stratus/internal/render"
)

// Server holds the HTTP surface's dependencies.
type Server struct {
	coord  *coordinate.Coordinator
	layers map[string]config.Layer
	styles render.StyleSet
	warmer *coordinate.Warmer
	log    zerolog.Logger

	gatherer prometheus.Gatherer
}

// New builds the server.
func New(coord *coordinate.Coordinator, layers map[string]config.Layer, styles render.StyleSet, warmer *coordinate.Warmer, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	return &Server{
		coord:    coord,
		layers:   layers,
		styles:   styles,
		warmer:   warmer,
		log:      log,
		gatherer: gatherer,
	}
}

// Router builds the route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/wms", s.handleWMS)
	r.Get("/wmts", s.handleWMTSKVP)
	r.Get("/tiles/{layer}/{style}/{tilematrixset}/{z}/{y}/{x}.png", s.handleTileREST)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if s.warmer != nil && !s.warmer.Ready() {
			http.Error(w, "warming", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// query returns request parameters with uppercased keys; WMS parameter
// names are case-insensitive and must not split the fingerprint space.
func query(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			out[strings.ToUpper(k)] = vs[0]
		}
	}
	return out
}

// serveTile runs a canonicalized request through the coordinator and
// writes the image response.
func (s *Server) serveTile(w http.ResponseWriter, r *http.Request, req coordinate.Request) {
	if match := r.Header.Get("If-None-Match"); match != "" && match == req.ETag() {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	entry, err := s.coord.Tile(r.Context(), req)
	if err != nil {
		s.writeTileError(w, req, err)
		return
	}
	s.writeEntry(w, entry)
}

func (s *Server) writeEntry(w http.ResponseWriter, entry cache.Entry) {
	w.Header().Set("Content-Type", entry.ContentType)
	if entry.ETag != "" {
		w.Header().Set("ETag", entry.ETag)
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(entry.Bytes)
}

func (s *Server) writeTileError(w http.ResponseWriter, req coordinate.Request, err error) {
	var rf *coordinate.RenderFailure
	switch {
	case errors.Is(err, coordinate.ErrUnknownLayer):
		writeException(w, codeLayerNotDefined, "layer "+req.Layer+" is not defined", false)
	case errors.Is(err, coordinate.ErrNoData):
		writeException(w, codeLayerNotDefined, "no data available for layer "+req.Layer, false)
	case errors.As(err, &rf):
		// Data-level failure on the render path: do not let caches
		// poison retries.
		s.log.Error().Err(err).Str("layer", req.Layer).Msg("render failure")
		writeException(w, codeInternal, "render failed", true)
	default:
		s.log.Error().Err(err).Str("layer", req.Layer).Msg("tile request failed")
		writeException(w, codeInternal, "internal error", false)
	}
}

// layerTime resolves the TIME parameter: absolute RFC 3339 when given,
// otherwise the layer's newest available run. Using the concrete run
// time (not "now") keeps default-time fingerprints stable between
// requests.
func (s *Server) layerTime(r *http.Request, layerID, timeParam string) (time.Time, error) {
	if timeParam != "" {
		t, err := time.Parse(time.RFC3339, timeParam)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	layer, ok := s.layers[layerID]
	if !ok {
		return time.Time{}, coordinate.ErrUnknownLayer
	}
	run, err := s.coord.LatestRun(r.Context(), layer.Model)
	if err != nil {
		return time.Time{}, err
	}
	return run, nil
}
