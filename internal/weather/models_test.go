package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructure(t *testing.T) {
	report := &Report{
		Location: Location{Name: "Paris", Region: "Ile-de-France", Country: "France"},
		Current: Current{
			TempC:     18.5,
			Condition: Condition{Text: "Partly cloudy", Icon: "//cdn/116.png"},
			Humidity:  60,
			WindKPH:   12.3,
		},
		Forecast: Forecast{ForecastDay: []ForecastDay{
			{Day: Day{MaxTempC: 22, MinTempC: 14, Condition: Condition{Text: "Sunny"}, DailyChanceOfRain: 10}},
		}},
	}

	s := Structure(report)
	require.NotNil(t, s)
	assert.Equal(t, "Paris", s.Location.Name)
	assert.Equal(t, "Partly cloudy", s.Current.ConditionText)
	assert.Equal(t, 12.3, s.Current.WindKPH)

	require.NotNil(t, s.Forecast.Today)
	assert.Equal(t, 22.0, s.Forecast.Today.MaxTempC)
	assert.Equal(t, "Sunny", s.Forecast.Today.ConditionText)

	// Only one forecast day was present, so tomorrow is absent, not zeroed.
	assert.Nil(t, s.Forecast.Tomorrow)
}

func TestStructureNil(t *testing.T) {
	assert.Nil(t, Structure(nil))
}

func TestStructureNoForecastDays(t *testing.T) {
	s := Structure(&Report{Location: Location{Name: "Tokyo"}})
	require.NotNil(t, s)
	assert.Nil(t, s.Forecast.Today)
	assert.Nil(t, s.Forecast.Tomorrow)
}
