package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/driftline/stratus/internal/coordinate"
	"github.com/driftline/stratus/internal/proj"
)

// maxZoom bounds the tile pyramid depth.
const maxZoom = 18

// handleTileREST serves /tiles/{layer}/{style}/{tilematrixset}/{z}/{y}/{x}.png.
func (s *Server) handleTileREST(w http.ResponseWriter, r *http.Request) {
	layerID := strings.ToLower(chi.URLParam(r, "layer"))
	styleID := strings.ToLower(chi.URLParam(r, "style"))
	tms := strings.ToLower(chi.URLParam(r, "tilematrixset"))

	z, err1 := strconv.Atoi(chi.URLParam(r, "z"))
	y, err2 := strconv.Atoi(chi.URLParam(r, "y"))
	x, err3 := strconv.Atoi(chi.URLParam(r, "x"))
	if err1 != nil || err2 != nil || err3 != nil {
		writeException(w, codeInvalidParameter, "tile coordinates must be integers", false)
		return
	}

	req, ok := s.buildTileRequest(w, r, layerID, styleID, tms, z, x, y, query(r)["TIME"])
	if !ok {
		return
	}
	s.serveTile(w, r, req)
}

// handleWMTSKVP serves WMTS key-value-pair GetTile and GetCapabilities.
func (s *Server) handleWMTSKVP(w http.ResponseWriter, r *http.Request) {
	q := query(r)

	if svc := strings.ToUpper(q["SERVICE"]); svc != "" && svc != "WMTS" {
		writeException(w, codeInvalidParameter, "SERVICE must be WMTS", false)
		return
	}

	switch strings.ToUpper(q["REQUEST"]) {
	case "GETTILE":
		layerID := strings.ToLower(q["LAYER"])
		styleID := strings.ToLower(q["STYLE"])
		tms := strings.ToLower(q["TILEMATRIXSET"])

		z, err1 := strconv.Atoi(q["TILEMATRIX"])
		y, err2 := strconv.Atoi(q["TILEROW"])
		x, err3 := strconv.Atoi(q["TILECOL"])
		if err1 != nil || err2 != nil || err3 != nil {
			writeException(w, codeInvalidParameter, "TILEMATRIX, TILEROW, TILECOL must be integers", false)
			return
		}

		req, ok := s.buildTileRequest(w, r, layerID, styleID, tms, z, x, y, q["TIME"])
		if !ok {
			return
		}
		s.serveTile(w, r, req)

	case "GETCAPABILITIES":
		// The WMTS capabilities document shares the WMS layer list.
		s.handleWMSCapabilities(w)

	default:
		writeException(w, codeInvalidParameter, "unsupported REQUEST "+q["REQUEST"], false)
	}
}

// buildTileRequest canonicalizes a tile address into the shared
// fingerprint space: a WMTS tile and the equivalent WMS GetMap bbox
// produce the same fingerprint.
func (s *Server) buildTileRequest(w http.ResponseWriter, r *http.Request, layerID, styleID, tms string, z, x, y int, timeParam string) (coordinate.Request, bool) {
	var req coordinate.Request

	layer, known := s.layers[layerID]
	if !known {
		writeException(w, codeLayerNotDefined, "layer "+layerID+" is not defined", false)
		return req, false
	}
	if styleID == "" || styleID == "default" {
		styleID = layer.Style
	}
	if _, err := s.styles.Get(styleID); err != nil {
		writeException(w, codeInvalidParameter, "unknown style "+styleID, false)
		return req, false
	}

	if tms != "" && tms != "webmercatorquad" && tms != "googlemapscompatible" {
		writeException(w, codeInvalidParameter, "unsupported tile matrix set "+tms, false)
		return req, false
	}

	if z < 0 || z > maxZoom {
		writeException(w, codeInvalidParameter, "zoom out of range", false)
		return req, false
	}
	n := 1 << uint(z)
	if x < 0 || x >= n || y < 0 || y >= n {
		writeException(w, codeInvalidParameter, "tile address out of range", false)
		return req, false
	}

	at, err := s.layerTime(r, layerID, timeParam)
	if err != nil {
		writeException(w, codeInvalidParameter, "invalid TIME", false)
		return req, false
	}

	minX, minY, maxX, maxY := proj.TileBounds(z, x, y)
	return coordinate.Request{
		Layer: layerID, Style: styleID,
		Width: 256, Height: 256,
		MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY,
		Time: at, Format: "image/png",
		Tile: &coordinate.TileCoord{Z: z, X: x, Y: y},
	}, true
}
