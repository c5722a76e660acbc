package service

import (
	"encoding/json"
	"net/http"
	"strings"

	"qhare-bridge/internal/scrapers/solar"
)

const missingCoordinates = "latitude et longitude requis"

// coordinates are pointers so that 0 is a valid latitude or longitude.
type coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (c coordinates) location() (solar.Location, bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return solar.Location{}, false
	}
	return solar.Location{Latitude: *c.Latitude, Longitude: *c.Longitude}, true
}

type dataLayersRequest struct {
	coordinates
	RadiusMeters    float64 `json:"radiusMeters"`
	View            string  `json:"view"`
	PixelSizeMeters float64 `json:"pixelSizeMeters"`
}

type buildingInsightsRequest struct {
	coordinates
	RequiredQuality string `json:"requiredQuality"`
}

type geoTiffRequest struct {
	Id string `json:"id"`
}

func writeRaw(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s Service) handleSolarData(w http.ResponseWriter, r *http.Request) {
	var req dataLayersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	location, ok := req.location()
	if !ok {
		writeError(w, http.StatusBadRequest, missingCoordinates)
		return
	}

	data, err := s.solar.DataLayers(r.Context(), solar.DataLayersRequest{
		Location:        location,
		RadiusMeters:    req.RadiusMeters,
		View:            req.View,
		PixelSizeMeters: req.PixelSizeMeters,
	})
	if err != nil {
		s.fail(w, report_solar_data, err)
		return
	}
	writeRaw(w, data)
}

func (s Service) handleBuildingInsights(w http.ResponseWriter, r *http.Request) {
	var req buildingInsightsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	location, ok := req.location()
	if !ok {
		writeError(w, http.StatusBadRequest, missingCoordinates)
		return
	}

	data, err := s.solar.BuildingInsights(r.Context(), location, req.RequiredQuality)
	if err != nil {
		s.fail(w, report_solar_building_insights, err)
		return
	}
	writeRaw(w, data)
}

func (s Service) handleGeoTiff(w http.ResponseWriter, r *http.Request) {
	var req geoTiffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Id) == "" {
		writeError(w, http.StatusBadRequest, "id requis")
		return
	}

	link, err := s.solar.GeoTiffUrl(req.Id)
	if err != nil {
		s.fail(w, report_solar_geotiff, err)
		return
	}
	writeJson(w, http.StatusOK, map[string]string{"url": link})
}
