package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"
)

// maxBodyBytes bounds request bodies; every request body is a small JSON object.
const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pointRequest is a [lng, lat] position sent by the client.
type pointRequest struct {
	Lng *float64 `json:"lng"`
	Lat *float64 `json:"lat"`
}

func (p pointRequest) point() (orb.Point, error) {
	if p.Lng == nil || p.Lat == nil {
		return orb.Point{}, errors.New("lng and lat are required")
	}
	return validPoint(*p.Lng, *p.Lat)
}

// queryPoint reads lat and lng query parameters.
func queryPoint(r *http.Request) (orb.Point, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return orb.Point{}, errors.New("lat query parameter must be a number")
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		return orb.Point{}, errors.New("lng query parameter must be a number")
	}
	return validPoint(lng, lat)
}

func validPoint(lng, lat float64) (orb.Point, error) {
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("position out of range: lng %g lat %g", lng, lat)
	}
	return orb.Point{lng, lat}, nil
}
