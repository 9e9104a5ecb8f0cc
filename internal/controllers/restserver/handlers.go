package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/gridlive/internal/constants"
	"github.com/chrissnell/gridlive/internal/dashboard"
	"github.com/chrissnell/gridlive/internal/gridlive"
	"github.com/chrissnell/gridlive/internal/meterseries"
	"github.com/chrissnell/gridlive/pkg/osgrid"
	"github.com/chrissnell/gridlive/pkg/responseformat"
	"github.com/gorilla/mux"
)

const (
	dateLayout     = "2006-01-02"
	defaultRadius  = 1000
	maxRadius      = 10_000_000
	allAreasOption = "All"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// badRequest marks errors caused by the caller's parameters.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// GetLicenseAreas lists the license areas available for selection.
func (h *Handlers) GetLicenseAreas(w http.ResponseWriter, req *http.Request) {
	areas, err := h.controller.dashboard.LicenseAreas(req.Context())
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, map[string]any{"license_areas": areas}, nil)
}

// GetSubstations returns the substation map for ?area= (repeatable; absent or
// "All" means every area) limited to ?limit= ESAs per area.
func (h *Handlers) GetSubstations(w http.ResponseWriter, req *http.Request) {
	areas := areasParam(req)
	limit, err := h.limitParam(req)
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}

	view, err := h.controller.dashboard.SubstationMap(req.Context(), areas, limit)
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, view, nil)
}

// GetNearbySubstations returns the substations within ?radius= meters of
// ?lat=&lon=.
func (h *Handlers) GetNearbySubstations(w http.ResponseWriter, req *http.Request) {
	lat, lon, err := latLonParams(req)
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}

	radius := defaultRadius
	if s := req.URL.Query().Get("radius"); s != "" {
		radius, err = strconv.Atoi(s)
		if err != nil || radius < 1 || radius > maxRadius {
			h.writeError(w, req, badRequestf("radius must be an integer between 1 and %d meters", maxRadius), nil)
			return
		}
	}

	view, err := h.controller.dashboard.NearbyMap(req.Context(), lat, lon, radius)
	if err != nil {
		h.writeError(w, req, err, map[string]any{"lat": lat, "lon": lon})
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, view, nil)
}

// GetSmartMeterSeries returns the merged smart-meter series of the substation
// {id}, found among the metadata of ?area= (limited by ?limit=), between the
// whole days ?start= and ?end= (YYYY-MM-DD), plotting ?column=.
func (h *Handlers) GetSmartMeterSeries(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	h.writeSeries(w, req, dashboard.SeriesQuery{SubstationID: id}, map[string]any{"substation_id": id})
}

// GetMarkerSeries is GetSmartMeterSeries for the substation whose map marker
// sits at ?lat=&lon=.
func (h *Handlers) GetMarkerSeries(w http.ResponseWriter, req *http.Request) {
	lat, lon, err := latLonParams(req)
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}
	pos := &dashboard.LatLon{Lat: lat, Lon: lon}
	h.writeSeries(w, req, dashboard.SeriesQuery{Position: pos}, map[string]any{"lat": lat, "lon": lon})
}

func (h *Handlers) writeSeries(w http.ResponseWriter, req *http.Request, sq dashboard.SeriesQuery, errFields map[string]any) {
	q := req.URL.Query()

	limit, err := h.limitParam(req)
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}
	start, end, err := h.dateParams(q.Get("start"), q.Get("end"))
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}

	sq.Areas = areasParam(req)
	sq.Limit = limit
	sq.Start, sq.End = start, end
	sq.Column = q.Get("column")

	result, err := h.controller.dashboard.SubstationSeries(req.Context(), sq)
	if err != nil {
		h.writeError(w, req, err, errFields)
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, result, nil)
}

type gridReferenceResponse struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	Eastings      float64 `json:"eastings"`
	Northings     float64 `json:"northings"`
	GridReference string  `json:"grid_reference"`
}

// GetGridReference converts ?lat=&lon= to National Grid coordinates and a
// 10-digit OS grid reference.
func (h *Handlers) GetGridReference(w http.ResponseWriter, req *http.Request) {
	lat, lon, err := latLonParams(req)
	if err != nil {
		h.writeError(w, req, err, nil)
		return
	}

	e, n := osgrid.ToEastingsNorthings(lat, lon)
	ref, err := osgrid.FormatGridReference(e, n)
	if err != nil {
		h.writeError(w, req, err, map[string]any{"lat": lat, "lon": lon})
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, gridReferenceResponse{
		Lat:           lat,
		Lon:           lon,
		Eastings:      e,
		Northings:     n,
		GridReference: ref,
	}, map[string]string{"Cache-Control": "max-age=86400"})
}

// GetHealth reports liveness.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": constants.Version,
	}, nil)
}

// writeError maps err onto an HTTP status and writes it with any extra fields.
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error, extra map[string]any) {
	status := statusFor(err)
	if status >= 500 {
		h.controller.logger.Errorw("request failed", "path", req.URL.Path, "status", status,
			"request_id", requestIDFromContext(req.Context()), "error", err)
	}
	h.formatter.WriteError(w, req, status, err.Error(), extra)
}

func statusFor(err error) int {
	var br *badRequest
	var apiErr *gridlive.APIError

	switch {
	case errors.As(err, &br),
		errors.Is(err, meterseries.ErrMissingColumn),
		errors.Is(err, dashboard.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, osgrid.ErrOutsideGrid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dashboard.ErrUnknownSubstation):
		return http.StatusNotFound
	case errors.Is(err, gridlive.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr), errors.Is(err, dashboard.ErrNoData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func areasParam(req *http.Request) []string {
	var areas []string
	for _, a := range req.URL.Query()["area"] {
		a = strings.TrimSpace(a)
		if a == allAreasOption {
			return nil
		}
		if a != "" {
			areas = append(areas, a)
		}
	}
	return areas
}

func (h *Handlers) limitParam(req *http.Request) (int, error) {
	s := req.URL.Query().Get("limit")
	if s == "" {
		return h.controller.cfg.GridLive.LicenseAreaLimit, nil
	}
	limit, err := strconv.Atoi(s)
	if err != nil || limit < 0 {
		return 0, badRequestf("limit must be a non-negative integer (0 for unlimited)")
	}
	return limit, nil
}

func latLonParams(req *http.Request) (lat, lon float64, err error) {
	q := req.URL.Query()
	lat, err = strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || !(lat >= -90 && lat <= 90) {
		return 0, 0, badRequestf("lat must be a number between -90 and 90")
	}
	lon, err = strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || !(lon >= -180 && lon <= 180) {
		return 0, 0, badRequestf("lon must be a number between -180 and 180")
	}
	return lat, lon, nil
}

// dateParams resolves the whole-day window; a missing end is today and a
// missing start is the configured lookback before the end.
func (h *Handlers) dateParams(startStr, endStr string) (string, string, error) {
	end := h.controller.now().UTC()
	if endStr != "" {
		t, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return "", "", badRequestf("end must be a date in YYYY-MM-DD form")
		}
		end = t
	}

	start := end.Add(-h.controller.cfg.Series.DefaultLookback)
	if startStr != "" {
		t, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return "", "", badRequestf("start must be a date in YYYY-MM-DD form")
		}
		start = t
	}

	return dashboard.DateRange(start, end)
}
