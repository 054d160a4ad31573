package weather

// Report is the subset of the provider's forecast payload the system uses.
type Report struct {
	Location Location `json:"location"`
	Current  Current  `json:"current"`
	Forecast Forecast `json:"forecast"`
}

type Location struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

type Current struct {
	TempC     float64   `json:"temp_c"`
	Condition Condition `json:"condition"`
	Humidity  int       `json:"humidity"`
	WindKPH   float64   `json:"wind_kph"`
}

type Forecast struct {
	ForecastDay []ForecastDay `json:"forecastday"`
}

type ForecastDay struct {
	Date string `json:"date"`
	Day  Day    `json:"day"`
}

type Day struct {
	MaxTempC          float64   `json:"maxtemp_c"`
	MinTempC          float64   `json:"mintemp_c"`
	Condition         Condition `json:"condition"`
	DailyChanceOfRain int       `json:"daily_chance_of_rain"`
}

// Structured is the reduced weather shape attached to chat responses.
type Structured struct {
	Location Location           `json:"location"`
	Current  StructuredCurrent  `json:"current"`
	Forecast StructuredForecast `json:"forecast"`
}

type StructuredCurrent struct {
	TempC         float64 `json:"temp_c"`
	ConditionText string  `json:"condition_text"`
	ConditionIcon string  `json:"condition_icon"`
	Humidity      int     `json:"humidity"`
	WindKPH       float64 `json:"wind_kph"`
}

type StructuredDay struct {
	MaxTempC          float64 `json:"maxtemp_c"`
	MinTempC          float64 `json:"mintemp_c"`
	ConditionText     string  `json:"condition_text"`
	ConditionIcon     string  `json:"condition_icon"`
	DailyChanceOfRain int     `json:"daily_chance_of_rain"`
}

type StructuredForecast struct {
	Today    *StructuredDay `json:"today"`
	Tomorrow *StructuredDay `json:"tomorrow"`
}

// Structure reduces a raw report to the compact response shape. Absent
// forecast days come through as nil; a nil report stays nil.
func Structure(r *Report) *Structured {
	if r == nil {
		return nil
	}
	return &Structured{
		Location: r.Location,
		Current: StructuredCurrent{
			TempC:         r.Current.TempC,
			ConditionText: r.Current.Condition.Text,
			ConditionIcon: r.Current.Condition.Icon,
			Humidity:      r.Current.Humidity,
			WindKPH:       r.Current.WindKPH,
		},
		Forecast: StructuredForecast{
			Today:    structuredDay(r.Forecast.ForecastDay, 0),
			Tomorrow: structuredDay(r.Forecast.ForecastDay, 1),
		},
	}
}

func structuredDay(days []ForecastDay, idx int) *StructuredDay {
	if idx >= len(days) {
		return nil
	}
	d := days[idx].Day
	return &StructuredDay{
		MaxTempC:          d.MaxTempC,
		MinTempC:          d.MinTempC,
		ConditionText:     d.Condition.Text,
		ConditionIcon:     d.Condition.Icon,
		DailyChanceOfRain: d.DailyChanceOfRain,
	}
}
