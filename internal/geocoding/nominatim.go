// Package geocoding resolves free text and coordinates through a Nominatim server.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNoResults = errors.New("no geocoding results")
	ErrUpstream  = errors.New("geocoding service unavailable")
)

type Place struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Address     map[string]string
}

// Client makes single-attempt lookups. Nominatim's usage policy requires a
// descriptive User-Agent on every request.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json"),
	}
}

type searchHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseHit struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

// Search returns the first match for a free-text query.
func (c *Client) Search(ctx context.Context, query string) (*Place, error) {
	var hits []searchHit
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"q":      query,
			"limit":  "1",
		}).
		SetResult(&hits).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}
	if len(hits) == 0 {
		return nil, ErrNoResults
	}
	return toPlace(hits[0].Lat, hits[0].Lon, hits[0].DisplayName, nil)
}

// Reverse resolves coordinates to an address at street-level zoom.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	var hit reverseHit
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":         "json",
			"lat":            strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":            strconv.FormatFloat(lng, 'f', -1, 64),
			"zoom":           "18",
			"addressdetails": "1",
		}).
		SetResult(&hit).
		Get("/reverse")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}
	if hit.Error != "" || hit.DisplayName == "" {
		return nil, ErrNoResults
	}
	place, err := toPlace(hit.Lat, hit.Lon, hit.DisplayName, hit.Address)
	if err != nil {
		// Keep the caller's coordinates when the echo is unparsable.
		return &Place{Latitude: lat, Longitude: lng, DisplayName: hit.DisplayName, Address: hit.Address}, nil
	}
	return place, nil
}

// FallbackName is the coordinate-only text shown when reverse lookup fails.
func FallbackName(lat, lng float64) string {
	return fmt.Sprintf("Current Location: %.4f, %.4f", lat, lng)
}

func toPlace(lat, lon, name string, address map[string]string) (*Place, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", ErrUpstream, lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", ErrUpstream, lon)
	}
	return &Place{Latitude: la, Longitude: lo, DisplayName: name, Address: address}, nil
}
