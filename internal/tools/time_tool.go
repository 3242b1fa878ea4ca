package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// NewTimeTool creates the get_current_time tool
func NewTimeTool() *Tool {
	return &Tool{
		Name:        "get_current_time",
		DisplayName: "Get Current Time",
		Description: "Get the current time in a specific timezone",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"timezone": map[string]interface{}{
					"type":        "string",
					"description": "Timezone name (e.g., 'America/New_York', 'Asia/Tokyo', 'UTC'). Defaults to UTC.",
					"default":     "UTC",
				},
			},
			"required": []string{},
		},
		Execute:  executeGetCurrentTime,
		Category: "time",
		Keywords: []string{"time", "date", "clock", "now", "current", "timezone", "datetime", "timestamp"},
	}
}

func executeGetCurrentTime(ctx context.Context, args map[string]interface{}) (string, error) {
	timezone := "UTC"
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		timezone = tz
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("invalid timezone '%s', use format like 'America/New_York' or 'UTC'", timezone)
	}

	now := time.Now().In(loc)
	payload, err := json.Marshal(map[string]string{
		"iso":      now.Format(time.RFC3339),
		"local":    now.Format("Monday, January 2, 2006 3:04 PM MST"),
		"timezone": timezone,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode time result: %w", err)
	}
	return string(payload), nil
}
