package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

const maxPlaceResults = 5

// NewPlacesTool creates the search_places tool backed by the Google Places
// text search API.
func NewPlacesTool(client *mapsClient) *Tool {
	return &Tool{
		Name:        "search_places",
		DisplayName: "Search Places",
		Description: "Search for places such as restaurants, shops, or landmarks by free-text query, optionally near a location",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text search query, e.g. 'coffee near downtown Seattle'",
				},
				"location": map[string]interface{}{
					"type":        "string",
					"description": "Optional bias location as 'lat,lng'",
				},
				"radius_meters": map[string]interface{}{
					"type":        "number",
					"description": "Optional search radius in meters, used with location",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return executeSearchPlaces(ctx, client, args)
		},
		Category: "travel",
		Keywords: []string{"places", "restaurant", "nearby", "search", "shop", "venue"},
	}
}

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Rating           float64  `json:"rating"`
		UserRatingsTotal int      `json:"user_ratings_total"`
		Types            []string `json:"types"`
		OpeningHours     *struct {
			OpenNow bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}

func executeSearchPlaces(ctx context.Context, client *mapsClient, args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	params := url.Values{}
	params.Set("query", query)
	if location, ok := args["location"].(string); ok && location != "" {
		params.Set("location", location)
		if radius, ok := args["radius_meters"].(float64); ok && radius > 0 {
			params.Set("radius", strconv.Itoa(int(radius)))
		}
	}

	var result placesResponse
	if err := client.getJSON(ctx, "/place/textsearch/json", params, &result); err != nil {
		return "", err
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS":
		return "", fmt.Errorf("no places found for %q", query)
	default:
		return "", fmt.Errorf("places provider error: %s", result.Status)
	}

	places := make([]map[string]interface{}, 0, maxPlaceResults)
	for i, p := range result.Results {
		if i >= maxPlaceResults {
			break
		}
		place := map[string]interface{}{
			"name":       p.Name,
			"address":    p.FormattedAddress,
			"rating":     p.Rating,
			"reviews":    p.UserRatingsTotal,
			"categories": p.Types,
		}
		if p.OpeningHours != nil {
			place["open_now"] = p.OpeningHours.OpenNow
		}
		places = append(places, place)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"query":  query,
		"places": places,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode places result: %w", err)
	}
	return string(payload), nil
}
