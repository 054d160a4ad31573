package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleForecast = `{
	"location": {"name": "Paris", "region": "Ile-de-France", "country": "France"},
	"current": {
		"temp_c": 18.5,
		"condition": {"text": "Partly cloudy", "icon": "//cdn.weatherapi.com/day/116.png"},
		"humidity": 60,
		"wind_kph": 12.3
	},
	"forecast": {"forecastday": [
		{"date": "2025-07-01", "day": {"maxtemp_c": 22.0, "mintemp_c": 14.0, "condition": {"text": "Sunny", "icon": "//cdn/113.png"}, "daily_chance_of_rain": 10}},
		{"date": "2025-07-02", "day": {"maxtemp_c": 20.0, "mintemp_c": 13.0, "condition": {"text": "Rain", "icon": "//cdn/296.png"}, "daily_chance_of_rain": 80}}
	]}
}`

func TestForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "3", r.URL.Query().Get("days"))
		w.Write([]byte(sampleForecast))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 3, zap.NewNop())
	report, err := c.Forecast(context.Background(), "Paris")
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "Paris", report.Location.Name)
	assert.Equal(t, 18.5, report.Current.TempC)
	assert.Equal(t, "Partly cloudy", report.Current.Condition.Text)
	require.Len(t, report.Forecast.ForecastDay, 2)
	assert.Equal(t, 80, report.Forecast.ForecastDay[1].Day.DailyChanceOfRain)
}

func TestForecastUnknownPlaceIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":1006,"message":"No matching location found."}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 3, zap.NewNop())
	report, err := c.Forecast(context.Background(), "Atlantis")
	assert.NoError(t, err)
	assert.Nil(t, report)
}

func TestForecastAuthFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":2008,"message":"API key has been disabled."}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 3, zap.NewNop())
	report, err := c.Forecast(context.Background(), "Paris")
	assert.Error(t, err, "auth failures must not read as an unknown place")
	assert.Nil(t, report)
}

func TestForecastServerErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 3, zap.NewNop())
	report, err := c.Forecast(context.Background(), "Paris")
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestForecastEmptyQuery(t *testing.T) {
	c := NewClient("http://example.invalid", "k", 3, zap.NewNop())
	_, err := c.Forecast(context.Background(), "")
	assert.Error(t, err)
}

func TestResolveName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "35.68,139.76" {
			w.Write([]byte(`{"location":{"name":"Tokyo"},"current":{},"forecast":{"forecastday":[]}}`))
			return
		}
		http.Error(w, "no match", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 3, zap.NewNop())

	name, err := c.ResolveName(context.Background(), "35.68,139.76")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", name)

	name, err = c.ResolveName(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, name)
}
