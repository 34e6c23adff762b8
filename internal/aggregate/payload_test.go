package aggregate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/geo"
)

func ptr(v float64) *float64 { return &v }

func TestPayload_DecodeBackendShape(t *testing.T) {
	body := `{
		"location": {"lat": 28.6139, "lon": 77.209},
		"sources": {"openweather": true},
		"used": "openweather_current",
		"realtimeAqi": {"source": "openweather_current", "aqi": 4.0, "scale": "OW_1_5"},
		"weatherCondition": {"main": "Haze", "description": "haze", "icon": "50d", "temp": 31.2, "feels_like": null, "humidity": 40, "wind_speed": 2.6, "visibility": 3000},
		"openweather": {"forecast": true, "current": true},
		"pollutants": {"openweather": {"pm2_5": 88.4, "pm10": 120.7}},
		"aqi500": {"overall": 168, "subindices": {"pm2_5": 168, "pm10": 83}},
		"dailyAqi": [["2024-05-01", 3.5], ["2024-05-02", 4]],
		"debug": ["Realtime via OpenWeather current"]
	}`

	var p aggregate.Payload
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	require.NotNil(t, p.Location)
	require.NotNil(t, p.Location.Coordinate)
	assert.Equal(t, geo.Coordinate{Lat: 28.6139, Lon: 77.209}, *p.Location.Coordinate)

	v, scale, ok := p.Realtime()
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	assert.Equal(t, "OW_1_5", scale)

	assert.Equal(t, []aggregate.DailyPoint{{Date: "2024-05-01", Value: 3.5}, {Date: "2024-05-02", Value: 4}}, p.DailyAQI)
	assert.Equal(t, 168.0, p.AQI500Value())

	pm, ok := p.Pollutant(airquality.PollutantPM25)
	assert.True(t, ok)
	assert.Equal(t, 88.4, pm)

	assert.Nil(t, p.WeatherCondition.FeelsLike)
	require.NotNil(t, p.WeatherCondition.Temp)
}

func TestDailyPoint_JSON(t *testing.T) {
	out, err := json.Marshal([]aggregate.DailyPoint{{Date: "Mon", Value: 50}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["Mon", 50]]`, string(out))

	var p aggregate.DailyPoint
	assert.Error(t, json.Unmarshal([]byte(`["Mon"]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"date":"Mon"}`), &p))
}

func TestLocation_JSON(t *testing.T) {
	var fromString aggregate.Location
	require.NoError(t, json.Unmarshal([]byte(`"Delhi, India"`), &fromString))
	assert.Equal(t, "Delhi, India", fromString.String())
	assert.Nil(t, fromString.Coordinate)

	var fromObject aggregate.Location
	require.NoError(t, json.Unmarshal([]byte(`{"lat": 1.5, "lon": -2.25}`), &fromObject))
	assert.Equal(t, "1.5000, -2.2500", fromObject.String())

	out, err := json.Marshal(fromObject)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat": 1.5, "lon": -2.25}`, string(out))

	out, err = json.Marshal(fromString)
	require.NoError(t, err)
	assert.Equal(t, `"Delhi, India"`, string(out))
}

func TestPayload_AQI500Value(t *testing.T) {
	tests := []struct {
		name     string
		payload  *aggregate.Payload
		expected float64
	}{
		{"nil payload", nil, aggregate.DefaultAQI500},
		{"empty", &aggregate.Payload{}, aggregate.DefaultAQI500},
		{
			name: "overall wins",
			payload: &aggregate.Payload{
				RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(2)},
				AQI500:      &airquality.Index500{Overall: ptr(130)},
			},
			expected: 130,
		},
		{
			name:     "openweather band converted",
			payload:  &aggregate.Payload{RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(4), Scale: "OW_1_5"}},
			expected: 200,
		},
		{
			name:     "epa value kept",
			payload:  &aggregate.Payload{RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(120)}},
			expected: 120,
		},
		{
			name:     "realtime without value",
			payload:  &aggregate.Payload{RealtimeAQI: &aggregate.RealtimeAQI{Source: "ow"}},
			expected: aggregate.DefaultAQI500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.payload.AQI500Value())
		})
	}
}

func TestPayload_WeatherPrecedence(t *testing.T) {
	p := &aggregate.Payload{
		WeatherCondition: &aggregate.WeatherCondition{Temp: ptr(30), WindSpeed: ptr(0.5)},
	}
	temp, ok := p.Temperature()
	assert.True(t, ok)
	assert.Equal(t, 30.0, temp)

	p.Weather = &aggregate.RawWeather{}
	p.Weather.Main.Temp = ptr(36)
	temp, _ = p.Temperature()
	assert.Equal(t, 36.0, temp)

	wind, ok := p.WindSpeed()
	assert.True(t, ok)
	assert.Equal(t, 0.5, wind)

	_, ok = (&aggregate.Payload{}).WindSpeed()
	assert.False(t, ok)
}
