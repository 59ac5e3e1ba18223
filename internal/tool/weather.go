package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultWeatherBaseURL = "https://api.open-meteo.com"

// WeatherTool fetches current conditions for a coordinate pair. It is
// read-only and executes without approval.
type WeatherTool struct {
	baseURL string
	client  *http.Client
}

// NewWeatherTool returns a weather tool. An empty baseURL selects the
// public forecast API.
func NewWeatherTool(baseURL string) *WeatherTool {
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	return &WeatherTool{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *WeatherTool) ID() string { return "getWeather" }

func (t *WeatherTool) Description() string {
	return "Get the current weather at a location"
}

func (t *WeatherTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"latitude": {"type": "number", "description": "Latitude of the location"},
			"longitude": {"type": "number", "description": "Longitude of the location"}
		},
		"required": ["latitude", "longitude"]
	}`)
}

func (t *WeatherTool) Mutating() bool { return false }

func (t *WeatherTool) Execute(ctx context.Context, input json.RawMessage, _ *Context) (*Result, error) {
	var args struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid weather input: %w", err)
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", args.Latitude))
	q.Set("longitude", fmt.Sprintf("%g", args.Longitude))
	q.Set("current", "temperature_2m")
	q.Set("hourly", "temperature_2m")
	q.Set("daily", "sunrise,sunset")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather service returned %d", resp.StatusCode)
	}

	// The body is already JSON; pass it through as the tool output so
	// the model can read the fields it needs.
	return &Result{Output: string(body)}, nil
}
