package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// WMO weather interpretation codes used by Open-Meteo.
var weatherCodeDescriptions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	66: "light freezing rain",
	67: "heavy freezing rain",
	71: "slight snowfall",
	73: "moderate snowfall",
	75: "heavy snowfall",
	77: "snow grains",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	85: "slight snow showers",
	86: "heavy snow showers",
	95: "thunderstorm",
	96: "thunderstorm with slight hail",
	99: "thunderstorm with heavy hail",
}

// NewWeatherTool creates the get_weather tool backed by Open-Meteo.
func NewWeatherTool(client *weatherClient) *Tool {
	return &Tool{
		Name:        "get_weather",
		DisplayName: "Get Weather",
		Description: "Get the weather forecast for a location, optionally at a specific date and time within the next 7 days",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"location": map[string]interface{}{
					"type":        "string",
					"description": "City or place name, e.g. 'Berlin' or 'San Francisco'",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Optional RFC3339 timestamp or YYYY-MM-DD date for the forecast. Defaults to now.",
				},
			},
			"required": []string{"location"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return executeGetWeather(ctx, client, args)
		},
		Category: "weather",
		Keywords: []string{"weather", "forecast", "temperature", "rain", "wind", "umbrella"},
	}
}

func executeGetWeather(ctx context.Context, client *weatherClient, args map[string]interface{}) (string, error) {
	location, _ := args["location"].(string)
	if location == "" {
		return "", fmt.Errorf("location is required")
	}

	loc, err := client.geocode(ctx, location)
	if err != nil {
		return "", err
	}

	fc, err := client.forecast(ctx, loc)
	if err != nil {
		return "", err
	}

	tz, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		tz = time.UTC
	}

	target := time.Now().In(tz)
	if raw, ok := args["date"].(string); ok && raw != "" {
		parsed, perr := parseForecastTime(raw, tz)
		if perr != nil {
			return "", perr
		}
		target = parsed
	}

	idx, err := nearestForecastSlot(fc.Hourly.Time, target, tz)
	if err != nil {
		return "", err
	}

	description, ok := weatherCodeDescriptions[fc.Hourly.WeatherCode[idx]]
	if !ok {
		description = "unknown conditions"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"location":                  loc.Name,
		"time":                      fc.Hourly.Time[idx],
		"timezone":                  loc.Timezone,
		"temperature_c":             fc.Hourly.Temperature2m[idx],
		"feels_like_c":              fc.Hourly.ApparentTemperature[idx],
		"description":               description,
		"humidity_percent":          fc.Hourly.RelativeHumidity2m[idx],
		"wind_speed_kmh":            fc.Hourly.WindSpeed10m[idx],
		"precipitation_probability": fc.Hourly.PrecipitationProbability[idx],
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode weather result: %w", err)
	}
	return string(payload), nil
}

func parseForecastTime(raw string, tz *time.Location) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, tz); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q, expected RFC3339 or YYYY-MM-DD", raw)
}

// nearestForecastSlot picks the hourly slot closest to target. Open-Meteo
// returns hourly timestamps without a zone offset, in the requested timezone.
func nearestForecastSlot(slots []string, target time.Time, tz *time.Location) (int, error) {
	best := -1
	bestDiff := math.MaxFloat64
	for i, slot := range slots {
		t, err := time.ParseInLocation("2006-01-02T15:04", slot, tz)
		if err != nil {
			continue
		}
		diff := math.Abs(target.Sub(t).Minutes())
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("no usable forecast slots")
	}
	return best, nil
}
