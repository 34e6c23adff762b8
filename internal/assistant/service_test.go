package assistant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/airquality"
	"github.com/breatheroute/airwatch/internal/assistant"
	"github.com/breatheroute/airwatch/internal/geo"
)

func ptr(v float64) *float64 { return &v }

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
	opts    []assistant.GenerateOptions
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts assistant.GenerateOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return f.reply, f.err
}

func samplePayload() *aggregate.Payload {
	return &aggregate.Payload{
		Location:    &aggregate.Location{Coordinate: &geo.Coordinate{Lat: 28.6139, Lon: 77.209}},
		RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(3), Source: "openweather_current", Scale: "OW_1_5"},
		DailyAQI: []aggregate.DailyPoint{
			{Date: "2024-05-01", Value: 2},
			{Date: "2024-05-02", Value: 3},
			{Date: "2024-05-03", Value: 4},
		},
		Pollutants: aggregate.Pollutants{OpenWeather: map[airquality.Pollutant]float64{airquality.PollutantPM25: 40.5}},
	}
}

func TestHeuristicSuggestion(t *testing.T) {
	got := assistant.HeuristicSuggestion(samplePayload())
	assert.Equal(t, "Current AQI 3 (via openweather_current). Avg next-7 3.0. Trend rising.\n- Moderate; sensitive groups take care. PM2.5 ~ 40.5µg/m³.", got)
}

func TestHeuristicSuggestion_Empty(t *testing.T) {
	assert.Equal(t, "Current AQI unavailable.", assistant.HeuristicSuggestion(&aggregate.Payload{}))
	assert.Equal(t, "Current AQI unavailable.", assistant.HeuristicSuggestion(nil))
}

func TestHeuristicSuggestion_Advice(t *testing.T) {
	tests := []struct {
		aqi    float64
		advice string
	}{
		{1, "\n- Looks good today."},
		{2, "\n- Looks good today."},
		{3, "\n- Moderate; sensitive groups take care."},
		{5, "\n- Unhealthy; limit outdoor time."},
	}
	for _, tt := range tests {
		p := &aggregate.Payload{RealtimeAQI: &aggregate.RealtimeAQI{AQI: ptr(tt.aqi), Source: "ow"}}
		assert.Contains(t, assistant.HeuristicSuggestion(p), tt.advice)
	}
}

func TestFallbackReply(t *testing.T) {
	p := samplePayload()

	tests := []struct {
		name    string
		message string
		payload *aggregate.Payload
		want    string
	}{
		{
			name:    "health with data",
			message: "Is it SAFE to jog?",
			payload: p,
			want:    "⚠️ Moderate air quality. Sensitive individuals should limit prolonged outdoor exposure.",
		},
		{
			name:    "health without data",
			message: "any advice?",
			payload: nil,
			want:    "I'd need current air quality data to give specific health advice. Try refreshing the location data first.",
		},
		{
			name:    "current",
			message: "what is it today",
			payload: p,
			want:    "Current AQI: 3 (OpenWeather scale 1-5) | 7-day average: 3.0",
		},
		{
			name:    "forecast",
			message: "what's the trend?",
			payload: p,
			want:    "📊 7-day forecast available. Trend appears to be worsening. Average AQI: 3.0",
		},
		{
			name:    "forecast without data",
			message: "forecast please",
			payload: &aggregate.Payload{},
			want:    "No forecast data available for this location.",
		},
		{
			name:    "default",
			message: "hello",
			payload: p,
			want:    "👋 Hi! Current AQI: 3 | 7-day avg: 3.0. Ask me about health recommendations, current conditions, or forecasts!",
		},
		{
			name:    "default without data",
			message: "hello",
			payload: nil,
			want:    "👋 Hi! Current AQI unavailable. Ask me about health recommendations, current conditions, or forecasts!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assistant.FallbackReply(tt.message, tt.payload))
		})
	}
}

func TestService_SuggestWithoutGenerator(t *testing.T) {
	s := assistant.NewService(assistant.ServiceConfig{Logger: zerolog.Nop()})
	assert.Equal(t, assistant.HeuristicSuggestion(samplePayload()), s.Suggest(context.Background(), samplePayload()))
}

func TestService_SuggestUsesGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: "- Wear a mask outdoors."}
	s := assistant.NewService(assistant.ServiceConfig{Generator: gen, Logger: zerolog.Nop()})

	got := s.Suggest(context.Background(), samplePayload())

	assert.Equal(t, "- Wear a mask outdoors.", got)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Act as a friendly air-quality chatbot.")
	assert.Contains(t, gen.prompts[0], `Realtime: {"aqi":3,"source":"openweather_current","scale":"OW_1_5"}`)
	assert.Contains(t, gen.prompts[0], `Location: {"lat":28.6139,"lon":77.209}`)
}

func TestService_SuggestGeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	s := assistant.NewService(assistant.ServiceConfig{Generator: gen, Logger: zerolog.Nop()})

	assert.Equal(t, assistant.HeuristicSuggestion(samplePayload()), s.Suggest(context.Background(), samplePayload()))
}

func TestService_Chat(t *testing.T) {
	gen := &fakeGenerator{reply: "  Stay indoors today.  "}
	s := assistant.NewService(assistant.ServiceConfig{Generator: gen, Logger: zerolog.Nop()})

	history := make([]assistant.Turn, 0, 12)
	for i := 0; i < 12; i++ {
		history = append(history, assistant.Turn{Role: "user", Content: string(rune('a' + i))})
	}

	reply, err := s.Chat(context.Background(), assistant.ChatRequest{
		Message: "should I run?",
		History: history,
		Context: samplePayload(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Stay indoors today.", reply)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "You are AirQuality AI")
	assert.Contains(t, prompt, "\nCurrent AQI: 3 (OpenWeather 1-5 scale)")
	assert.Contains(t, prompt, "\nLocation: 28.6139, 77.209")
	assert.Contains(t, prompt, "\n7-day trend: worsening")
	// Only the last 8 history turns are included.
	assert.NotContains(t, prompt, "\nuser: d\n")
	assert.Contains(t, prompt, "\nuser: e\n")
	assert.Contains(t, prompt, "\nuser: should I run?\nassistant:")

	assert.Equal(t, assistant.GenerateOptions{Temperature: 0.7, TopP: 0.8, TopK: 40, MaxOutputTokens: 200}, gen.opts[0])
}

func TestService_ChatFallbacks(t *testing.T) {
	t.Run("no generator", func(t *testing.T) {
		s := assistant.NewService(assistant.ServiceConfig{Logger: zerolog.Nop()})
		reply, err := s.Chat(context.Background(), assistant.ChatRequest{Message: "hello"})
		require.NoError(t, err)
		assert.Contains(t, reply, "👋 Hi!")
	})

	t.Run("generator error", func(t *testing.T) {
		gen := &fakeGenerator{err: assistant.ErrEmptyResponse}
		s := assistant.NewService(assistant.ServiceConfig{Generator: gen, Logger: zerolog.Nop()})
		reply, err := s.Chat(context.Background(), assistant.ChatRequest{Message: "forecast?", Context: samplePayload()})
		require.NoError(t, err)
		assert.Contains(t, reply, "📊 7-day forecast available.")
	})

	t.Run("missing message", func(t *testing.T) {
		s := assistant.NewService(assistant.ServiceConfig{Logger: zerolog.Nop()})
		_, err := s.Chat(context.Background(), assistant.ChatRequest{Message: "  "})
		assert.ErrorIs(t, err, assistant.ErrMessageRequired)
	})
}

func TestHasUsableKey(t *testing.T) {
	assert.False(t, assistant.HasUsableKey(""))
	assert.False(t, assistant.HasUsableKey("your_gemini_api_key_here"))
	assert.True(t, assistant.HasUsableKey("AIzaSyRealLookingKey"))
}
