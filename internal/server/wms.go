package server

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/driftline/stratus/internal/coordinate"
	"github.com/driftline/stratus/internal/proj"
)

// maxDimension bounds requested image sizes.
const maxDimension = 4096

// handleWMS dispatches WMS KVP requests.
func (s *Server) handleWMS(w http.ResponseWriter, r *http.Request) {
	q := query(r)

	if svc := strings.ToUpper(q["SERVICE"]); svc != "" && svc != "WMS" {
		writeException(w, codeInvalidParameter, "SERVICE must be WMS", false)
		return
	}

	switch strings.ToUpper(q["REQUEST"]) {
	case "GETMAP":
		s.handleGetMap(w, r, q)
	case "GETCAPABILITIES":
		s.handleWMSCapabilities(w)
	case "GETFEATUREINFO":
		s.handleGetFeatureInfo(w, r, q)
	default:
		writeException(w, codeInvalidParameter, "unsupported REQUEST "+q["REQUEST"], false)
	}
}

// handleGetMap validates GetMap parameters and canonicalizes them into
// the shared fingerprint space.
func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request, q map[string]string) {
	req, ok := s.parseMapRequest(w, r, q)
	if !ok {
		return
	}
	s.serveTile(w, r, req)
}

// parseMapRequest builds a canonical Request from WMS KVP parameters.
// On failure it writes the OGC exception and returns ok = false.
func (s *Server) parseMapRequest(w http.ResponseWriter, r *http.Request, q map[string]string) (coordinate.Request, bool) {
	var req coordinate.Request

	layerID := strings.ToLower(q["LAYERS"])
	if layerID == "" {
		writeException(w, codeInvalidParameter, "LAYERS is required", false)
		return req, false
	}
	if strings.Contains(layerID, ",") {
		writeException(w, codeInvalidParameter, "exactly one layer per request", false)
		return req, false
	}
	layer, known := s.layers[layerID]
	if !known {
		writeException(w, codeLayerNotDefined, "layer "+layerID+" is not defined", false)
		return req, false
	}

	styleID := strings.ToLower(q["STYLES"])
	if styleID == "" {
		styleID = layer.Style
	}
	if _, err := s.styles.Get(styleID); err != nil {
		writeException(w, codeInvalidParameter, "unknown style "+styleID, false)
		return req, false
	}

	// WMS 1.3.0 uses CRS; 1.1.1 clients send SRS.
	crsParam := q["CRS"]
	if crsParam == "" {
		crsParam = q["SRS"]
	}
	crs, err := proj.ParseCRS(crsParam)
	if err != nil {
		writeException(w, codeInvalidSRS, err.Error(), false)
		return req, false
	}

	minX, minY, maxX, maxY, err := parseBBox(q["BBOX"], crs, q["VERSION"])
	if err != nil {
		writeException(w, codeInvalidParameter, err.Error(), false)
		return req, false
	}

	width, err1 := strconv.Atoi(q["WIDTH"])
	height, err2 := strconv.Atoi(q["HEIGHT"])
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		writeException(w, codeInvalidParameter,
			fmt.Sprintf("WIDTH and HEIGHT must be in [1, %d]", maxDimension), false)
		return req, false
	}

	format := strings.ToLower(q["FORMAT"])
	if format == "" {
		format = "image/png"
	}
	if format != "image/png" {
		writeException(w, codeInvalidParameter, "only image/png is supported", false)
		return req, false
	}

	at, err := s.layerTime(r, layerID, q["TIME"])
	if err != nil {
		writeException(w, codeInvalidParameter, "invalid TIME", false)
		return req, false
	}

	return coordinate.Request{
		Layer: layerID, Style: styleID,
		Width: width, Height: height,
		MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY,
		Time: at, Format: format,
	}, true
}

// parseBBox parses a WMS bbox and converts it to EPSG:3857.
//
// WMS 1.3.0 geographic CRS bboxes use lat,lon axis order; earlier
// versions and projected CRSs use x,y. Both land on the same canonical
// mercator bbox so the fingerprint space is axis-order blind.
func parseBBox(raw string, crs proj.CRS, version string) (minX, minY, maxX, maxY float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("BBOX must have four comma-separated values")
	}
	var v [4]float64
	for i, p := range parts {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return 0, 0, 0, 0, fmt.Errorf("BBOX value %q is not a number", p)
		}
	}

	if crs == proj.CRS4326 {
		// 1.3.0: minlat,minlon,maxlat,maxlon. Older clients: lon first.
		lat1, lon1, lat2, lon2 := v[0], v[1], v[2], v[3]
		if version != "" && strings.HasPrefix(version, "1.1") {
			lon1, lat1, lon2, lat2 = v[0], v[1], v[2], v[3]
		}
		tr := proj.NewTransformer(proj.CRS4326, proj.CRS3857)
		minX, minY = tr.Transform(lon1, lat1)
		maxX, maxY = tr.Transform(lon2, lat2)
	} else {
		minX, minY, maxX, maxY = v[0], v[1], v[2], v[3]
	}

	if minX >= maxX || minY >= maxY {
		return 0, 0, 0, 0, fmt.Errorf("BBOX is empty or inverted")
	}
	return minX, minY, maxX, maxY, nil
}

// handleGetFeatureInfo samples the nearest grid cell under a pixel.
func (s *Server) handleGetFeatureInfo(w http.ResponseWriter, r *http.Request, q map[string]string) {
	req, ok := s.parseMapRequest(w, r, q)
	if !ok {
		return
	}

	i, err1 := strconv.Atoi(q["I"])
	j, err2 := strconv.Atoi(q["J"])
	if err1 != nil || err2 != nil || i < 0 || i >= req.Width || j < 0 || j >= req.Height {
		writeException(w, codeInvalidParameter, "I and J must address a pixel", false)
		return
	}

	// Pixel center back to geographic coordinates.
	x := req.MinX + (float64(i)+0.5)*(req.MaxX-req.MinX)/float64(req.Width)
	y := req.MaxY - (float64(j)+0.5)*(req.MaxY-req.MinY)/float64(req.Height)
	lon, lat := proj.NewTransformer(proj.CRS3857, proj.CRS4326).Transform(x, y)

	value, covered, err := s.coord.FieldValue(r.Context(), req.Layer, req.Time, lat, lon)
	if err != nil {
		s.writeTileError(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"layer":   req.Layer,
		"lat":     lat,
		"lon":     lon,
		"covered": covered,
	}
	if covered {
		resp["value"] = value
	}
	json.NewEncoder(w).Encode(resp)
}

// wmsCapabilities is the minimal capabilities document; full document
// generation lives with the deployment tooling, but clients probing the
// endpoint need the layer list.
type wmsCapabilities struct {
	XMLName xml.Name   `xml:"WMS_Capabilities"`
	Version string     `xml:"version,attr"`
	Layers  []wmsLayer `xml:"Capability>Layer>Layer"`
}

type wmsLayer struct {
	Name  string `xml:"Name"`
	Title string `xml:"Title"`
}

func (s *Server) handleWMSCapabilities(w http.ResponseWriter) {
	doc := wmsCapabilities{Version: "1.3.0"}
	names := make([]string, 0, len(s.layers))
	for name := range s.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Layers = append(doc.Layers, wmsLayer{Name: name, Title: name})
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		writeException(w, codeInternal, "capabilities generation failed", false)
		return
	}
	w.Write([]byte(xml.Header))
	w.Write(out)
}
