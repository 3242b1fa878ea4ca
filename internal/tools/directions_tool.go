package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var htmlTagPattern = regexp.MustCompile("<[^>]+>")

// NewDirectionsTool creates the get_directions tool backed by the Google
// Directions API.
func NewDirectionsTool(client *mapsClient) *Tool {
	return &Tool{
		Name:        "get_directions",
		DisplayName: "Get Directions",
		Description: "Get driving directions between two locations, including distance, duration, traffic-adjusted duration, and turn-by-turn steps",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"origin": map[string]interface{}{
					"type":        "string",
					"description": "Starting address or place name",
				},
				"destination": map[string]interface{}{
					"type":        "string",
					"description": "Destination address or place name",
				},
				"departure_time": map[string]interface{}{
					"type":        "string",
					"description": "Optional departure time as RFC3339 timestamp or 'now'. Defaults to now.",
				},
			},
			"required": []string{"origin", "destination"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return executeGetDirections(ctx, client, args)
		},
		Category: "travel",
		Keywords: []string{"directions", "route", "drive", "commute", "traffic", "travel", "distance"},
	}
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Distance          struct{ Text string } `json:"distance"`
			Duration          struct{ Text string } `json:"duration"`
			DurationInTraffic struct{ Text string } `json:"duration_in_traffic"`
			Steps             []struct {
				HTMLInstructions string                `json:"html_instructions"`
				Distance         struct{ Text string } `json:"distance"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

func executeGetDirections(ctx context.Context, client *mapsClient, args map[string]interface{}) (string, error) {
	origin, _ := args["origin"].(string)
	destination, _ := args["destination"].(string)
	if origin == "" || destination == "" {
		return "", fmt.Errorf("both origin and destination are required")
	}

	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("departure_time", "now")
	if dt, ok := args["departure_time"].(string); ok && dt != "" && dt != "now" {
		params.Set("departure_time", dt)
	}

	var result directionsResponse
	if err := client.getJSON(ctx, "/directions/json", params, &result); err != nil {
		return "", err
	}

	switch result.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return "", fmt.Errorf("no route found from %q to %q", origin, destination)
	default:
		return "", fmt.Errorf("directions provider error: %s", result.Status)
	}
	if len(result.Routes) == 0 || len(result.Routes[0].Legs) == 0 {
		return "", fmt.Errorf("no route found from %q to %q", origin, destination)
	}

	leg := result.Routes[0].Legs[0]
	steps := make([]string, 0, len(leg.Steps))
	for _, step := range leg.Steps {
		instruction := strings.TrimSpace(htmlTagPattern.ReplaceAllString(step.HTMLInstructions, " "))
		instruction = strings.Join(strings.Fields(instruction), " ")
		steps = append(steps, fmt.Sprintf("%s (%s)", instruction, step.Distance.Text))
	}

	payload, err := json.Marshal(map[string]interface{}{
		"summary":             result.Routes[0].Summary,
		"distance":            leg.Distance.Text,
		"duration":            leg.Duration.Text,
		"duration_in_traffic": leg.DurationInTraffic.Text,
		"steps":               steps,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode directions result: %w", err)
	}
	return string(payload), nil
}
