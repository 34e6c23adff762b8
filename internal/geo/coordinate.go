// Package geo resolves the dashboard's current coordinate from device or IP
// geolocation, manual input, or the fixed default.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Default is used whenever no position can be obtained (Delhi, India).
var Default = Coordinate{Lat: 28.6139, Lon: 77.2090}

// Map zoom levels for a detected position and for the default fallback.
const (
	DetectedZoom = 12
	DefaultZoom  = 10
)

// Validate reports whether c lies within the valid latitude and longitude ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{Field: "lat", Value: strconv.FormatFloat(c.Lat, 'f', -1, 64), Reason: "must be between -90 and 90"}
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{Field: "lon", Value: strconv.FormatFloat(c.Lon, 'f', -1, 64), Reason: "must be between -180 and 180"}
	}
	return nil
}

// Round returns c rounded to the given number of decimal places.
func (c Coordinate) Round(places int) Coordinate {
	p := math.Pow(10, float64(places))
	return Coordinate{Lat: math.Round(c.Lat*p) / p, Lon: math.Round(c.Lon*p) / p}
}

// String renders "lat, lon" with 4 decimals.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon)
}

// ParseCoordinate parses manual latitude and longitude input.
func ParseCoordinate(latText, lonText string) (Coordinate, error) {
	lat, err := parseField("lat", latText)
	if err != nil {
		return Coordinate{}, err
	}
	lon, err := parseField("lon", lonText)
	if err != nil {
		return Coordinate{}, err
	}

	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

func parseField(field, text string) (float64, error) {
	text = strings.TrimSpace(text)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &ValidationError{Field: field, Value: text, Reason: "must be a number"}
	}
	return v, nil
}

// CoordinateLabel is the place-name fallback shown when reverse geocoding fails.
func CoordinateLabel(c Coordinate) string {
	return "📍 " + c.String()
}

// ShortLabel renders the top-bar fallback "lat°, lon°" with 2 decimals.
func ShortLabel(c Coordinate) string {
	return fmt.Sprintf("%.2f°, %.2f°", c.Lat, c.Lon)
}
