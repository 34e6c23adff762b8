package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/breatheroute/airwatch/internal/api/models"
	"github.com/breatheroute/airwatch/internal/api/response"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/weather"
)

// CityWeather looks up current weather by city name.
type CityWeather interface {
	GetWeatherByCity(ctx context.Context, city string) (*weather.Observation, error)
}

// IPLookup geolocates the server's own public address.
type IPLookup interface {
	Lookup(ctx context.Context) (*geo.IPLookup, error)
}

// LookupHandler serves the city weather and reverse IP geolocation routes.
type LookupHandler struct {
	weather CityWeather
	ip      IPLookup
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(w CityWeather, ip IPLookup) *LookupHandler {
	return &LookupHandler{weather: w, ip: ip}
}

// GetWeather handles GET /api/weather?city=.
func (h *LookupHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	obs, err := h.weather.GetWeatherByCity(r.Context(), city)
	switch {
	case errors.Is(err, weather.ErrCityRequired):
		response.BadRequest(w, r, "city required", []models.FieldError{
			{Field: "city", Message: "must not be empty", Code: "required"},
		})
		return
	case err != nil:
		response.BadGateway(w, r, "weather provider unavailable")
		return
	}

	name := obs.City
	if name == "" {
		name = city
	}
	response.JSON(w, r, http.StatusOK, models.CityWeather{
		City: city,
		Weather: models.WeatherObservation{
			Name:        name,
			Lat:         obs.Lat,
			Lon:         obs.Lon,
			Main:        obs.Main,
			Description: obs.Description,
			Icon:        obs.Icon,
			Temperature: obs.Temperature,
			FeelsLike:   obs.FeelsLike,
			Humidity:    obs.Humidity,
			WindSpeed:   obs.WindSpeed,
			Visibility:  obs.Visibility,
			ObservedAt:  models.Timestamp(obs.ObservedAt),
		},
	})
}

// GetRevGeo handles GET /api/revgeo.
func (h *LookupHandler) GetRevGeo(w http.ResponseWriter, r *http.Request) {
	res, err := h.ip.Lookup(r.Context())
	if err != nil {
		response.BadGateway(w, r, "IP geolocation unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, models.RevGeo{
		IP:   res.IP,
		City: res.City,
		Lat:  res.Coordinate.Lat,
		Lon:  res.Coordinate.Lon,
		Raw:  res.Raw,
	})
}
