package aggregate

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/geo"
	"github.com/breatheroute/airwatch/internal/weather"
)

const (
	// SourceOpenWeatherCurrent labels realtime readings from the current endpoint.
	SourceOpenWeatherCurrent = "openweather_current"

	// ForecastDays is the number of daily points returned.
	ForecastDays = 7
)

// WeatherSource is the subset of weather.Service the aggregate needs.
type WeatherSource interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
	GetAirPollution(ctx context.Context, lat, lon float64) (*weather.AirPollution, error)
	GetAirPollutionForecast(ctx context.Context, lat, lon float64) (*weather.AirPollution, error)
}

// ServiceConfig holds configuration for the aggregate service.
type ServiceConfig struct {
	Weather WeatherSource
	Logger  zerolog.Logger

	// TimeZone buckets forecast samples into dates (default: time.Local).
	TimeZone *time.Location
}

// Service assembles payloads from upstream data.
type Service struct {
	weather WeatherSource
	logger  zerolog.Logger
	tz      *time.Location
}

// NewService creates an aggregate service.
func NewService(cfg ServiceConfig) *Service {
	tz := cfg.TimeZone
	if tz == nil {
		tz = time.Local
	}
	return &Service{weather: cfg.Weather, logger: cfg.Logger, tz: tz}
}

// Aggregate builds the payload for coord. Upstream failures leave the
// corresponding sections empty; Aggregate itself never fails.
func (s *Service) Aggregate(ctx context.Context, coord geo.Coordinate) *Payload {
	var notes []string

	forecast := s.forecast(ctx, coord)
	current, err := s.weather.GetAirPollution(ctx, coord.Lat, coord.Lon)
	if err != nil {
		s.logger.Warn().Err(err).Msg("current air pollution unavailable")
		current = nil
	}
	obs, err := s.weather.GetCurrentWeather(ctx, coord.Lat, coord.Lon)
	if err != nil {
		s.logger.Warn().Err(err).Msg("current weather unavailable")
		obs = nil
	}

	payload := &Payload{
		Location:    &Location{Coordinate: &geo.Coordinate{Lat: coord.Lat, Lon: coord.Lon}},
		Sources:     map[string]bool{"openweather": forecast != nil || current != nil},
		OpenWeather: &Availability{Forecast: forecast != nil, Current: current != nil},
		DailyAQI:    []DailyPoint{},
	}

	if rt := realtimeFrom(current); rt != nil {
		payload.RealtimeAQI = rt
		payload.Used = rt.Source
		notes = append(notes, "Realtime via OpenWeather current")
	} else {
		notes = append(notes, "Realtime unavailable (OW current empty)")
	}

	if obs != nil {
		payload.WeatherCondition = conditionFrom(obs)
		payload.Weather = rawWeatherFrom(obs)
		notes = append(notes, "Weather condition data fetched")
	}

	daily := s.dailyAQI(forecast)
	if len(daily) > 0 {
		notes = append(notes, "Forecast daily from OpenWeather")
	} else {
		notes = append(notes, "Forecast unavailable at exact point; retrying rounded coords")
		rounded := coord.Round(2)
		if rounded != coord {
			if d := s.dailyAQI(s.forecast(ctx, rounded)); len(d) > 0 {
				daily = d
				notes = append(notes, "Forecast found at rounded "+
					strconv.FormatFloat(rounded.Lat, 'f', -1, 64)+","+
					strconv.FormatFloat(rounded.Lon, 'f', -1, 64))
			}
		}
	}
	if daily != nil {
		payload.DailyAQI = daily
	}

	components := pollutantsFrom(current)
	if len(components) == 0 {
		components = pollutantsFrom(forecast)
	}
	payload.Pollutants.OpenWeather = components
	idx := airquality.Compute500(components)
	payload.AQI500 = &idx

	payload.Debug = notes
	return payload
}

func (s *Service) forecast(ctx context.Context, coord geo.Coordinate) *weather.AirPollution {
	fc, err := s.weather.GetAirPollutionForecast(ctx, coord.Lat, coord.Lon)
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", coord.Lat).
			Float64("lon", coord.Lon).
			Msg("air pollution forecast unavailable")
		return nil
	}
	return fc
}

// dailyAQI averages the hourly forecast index per calendar date, ordered by
// date, keeping the first ForecastDays days.
func (s *Service) dailyAQI(fc *weather.AirPollution) []DailyPoint {
	if fc.Empty() {
		return nil
	}

	sums := make(map[string][2]float64)
	for _, sample := range fc.Samples {
		if sample.Index == 0 || sample.Time.IsZero() {
			continue
		}
		date := sample.Time.In(s.tz).Format("2006-01-02")
		acc := sums[date]
		sums[date] = [2]float64{acc[0] + float64(sample.Index), acc[1] + 1}
	}

	dates := make([]string, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) > ForecastDays {
		dates = dates[:ForecastDays]
	}

	daily := make([]DailyPoint, 0, len(dates))
	for _, d := range dates {
		acc := sums[d]
		daily = append(daily, DailyPoint{Date: d, Value: round2(acc[0] / acc[1])})
	}
	return daily
}

func realtimeFrom(current *weather.AirPollution) *RealtimeAQI {
	if current.Empty() || current.Samples[0].Index == 0 {
		return nil
	}
	v := float64(current.Samples[0].Index)
	return &RealtimeAQI{AQI: &v, Source: SourceOpenWeatherCurrent, Scale: string(airquality.ScaleOpenWeather)}
}

// pollutantsFrom keeps the known pollutant keys of the first sample.
func pollutantsFrom(ap *weather.AirPollution) map[airquality.Pollutant]float64 {
	out := make(map[airquality.Pollutant]float64)
	if ap.Empty() {
		return out
	}
	for _, info := range airquality.Pollutants {
		if v, ok := ap.Samples[0].Components[info.Key]; ok {
			out[info.Key] = v
		}
	}
	return out
}

func conditionFrom(obs *weather.Observation) *WeatherCondition {
	if !obs.HasCondition {
		return nil
	}
	wc := &WeatherCondition{
		Main:        orDefault(obs.Main, "Unknown"),
		Description: orDefault(obs.Description, "No description"),
		Icon:        orDefault(obs.Icon, "01d"),
		Temp:        obs.Temperature,
		FeelsLike:   obs.FeelsLike,
		Humidity:    obs.Humidity,
		WindSpeed:   obs.WindSpeed,
		Visibility:  obs.Visibility,
	}
	lat, lon := obs.Lat, obs.Lon
	wc.Lat, wc.Lon = &lat, &lon
	return wc
}

func rawWeatherFrom(obs *weather.Observation) *RawWeather {
	raw := &RawWeather{Name: obs.City, Weather: []RawCondition{}}
	raw.Main.Temp = obs.Temperature
	raw.Main.Humidity = obs.Humidity
	raw.Wind.Speed = obs.WindSpeed
	if obs.HasCondition {
		raw.Weather = append(raw.Weather, RawCondition{Main: obs.Main, Icon: obs.Icon, Description: obs.Description})
	}
	return raw
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
