package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	geocodingBaseURL = "https://geocoding-api.open-meteo.com/v1"
	forecastBaseURL  = "https://api.open-meteo.com/v1"

	geocodeCacheTTL = 24 * time.Hour
)

// weatherClient talks to the Open-Meteo geocoding and forecast APIs. Neither
// endpoint requires an API key. Geocoding results are cached since place
// coordinates do not change between calls.
type weatherClient struct {
	geocodingBaseURL string
	forecastBaseURL  string
	httpClient       *http.Client
	geocodeCache     *cache.Cache
}

func newWeatherClient() *weatherClient {
	return &weatherClient{
		geocodingBaseURL: geocodingBaseURL,
		forecastBaseURL:  forecastBaseURL,
		httpClient:       &http.Client{Timeout: 15 * time.Second},
		geocodeCache:     cache.New(geocodeCacheTTL, 2*geocodeCacheTTL),
	}
}

type geoLocation struct {
	Name      string
	Latitude  float64
	Longitude float64
	Timezone  string
}

func (w *weatherClient) geocode(ctx context.Context, location string) (*geoLocation, error) {
	key := strings.ToLower(strings.TrimSpace(location))
	if cached, found := w.geocodeCache.Get(key); found {
		return cached.(*geoLocation), nil
	}

	params := url.Values{}
	params.Set("name", location)
	params.Set("count", "1")

	var result struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Timezone  string  `json:"timezone"`
		} `json:"results"`
	}
	if err := w.getJSON(ctx, w.geocodingBaseURL+"/search", params, &result); err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("location %q not found", location)
	}

	loc := &geoLocation{
		Name:      result.Results[0].Name,
		Latitude:  result.Results[0].Latitude,
		Longitude: result.Results[0].Longitude,
		Timezone:  result.Results[0].Timezone,
	}
	w.geocodeCache.Set(key, loc, cache.DefaultExpiration)
	return loc, nil
}

type forecastResponse struct {
	Hourly struct {
		Time                     []string  `json:"time"`
		Temperature2m            []float64 `json:"temperature_2m"`
		ApparentTemperature      []float64 `json:"apparent_temperature"`
		RelativeHumidity2m       []float64 `json:"relative_humidity_2m"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		WeatherCode              []int     `json:"weather_code"`
		WindSpeed10m             []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

func (w *weatherClient) forecast(ctx context.Context, loc *geoLocation) (*forecastResponse, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	params.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	params.Set("hourly", "temperature_2m,apparent_temperature,relative_humidity_2m,precipitation_probability,weather_code,wind_speed_10m")
	params.Set("timezone", loc.Timezone)
	params.Set("forecast_days", "7")

	var result forecastResponse
	if err := w.getJSON(ctx, w.forecastBaseURL+"/forecast", params, &result); err != nil {
		return nil, fmt.Errorf("forecast failed: %w", err)
	}
	if len(result.Hourly.Time) == 0 {
		return nil, fmt.Errorf("forecast returned no data for %s", loc.Name)
	}
	return &result, nil
}

func (w *weatherClient) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
