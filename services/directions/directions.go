package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"campuspark/models"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

var (
	// ErrNotConfigured is returned when the API key or entrance address is missing.
	ErrNotConfigured = errors.New("directions not configured")
	// ErrNoRoute is returned when Google finds no route.
	ErrNoRoute = errors.New("no route found")
)

// DirectionsResponse represents the structure of the response from Google Directions API.
type DirectionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// Client fetches walking/driving polylines from a campus entrance to a space.
type Client struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	entrances map[models.Entrance]string
}

func NewClient(apiKey string, entrances map[models.Entrance]string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{apiKey: apiKey, baseURL: defaultBaseURL, http: httpClient, entrances: entrances}
}

// Route returns the overview polyline from the entrance to destination.
func (c *Client) Route(ctx context.Context, entrance models.Entrance, destination string) (string, error) {
	origin := c.entrances[entrance]
	if c.apiKey == "" || origin == "" || destination == "" {
		return "", ErrNotConfigured
	}

	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directions status %d", resp.StatusCode)
	}

	var directions DirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&directions); err != nil {
		return "", fmt.Errorf("failed to decode directions: %w", err)
	}
	if len(directions.Routes) == 0 {
		return "", fmt.Errorf("%s: %w", directions.Status, ErrNoRoute)
	}
	return directions.Routes[0].OverviewPolyline.Points, nil
}
