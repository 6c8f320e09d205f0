// Package geocode resolves waypoint names to coordinates through the
// Nominatim HTTP API. Waypoints that already carry coordinates are left
// untouched, so routes keep working offline once resolved and saved.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ivlev/route2video/internal/geo"
	"github.com/ivlev/route2video/internal/route"
)

// ErrNotFound: the service returned no match for the place name.
var ErrNotFound = errors.New("place not found")

// Geocoder resolves place names to coordinates and back.
type Geocoder interface {
	Lookup(ctx context.Context, name string) (geo.Coordinate, error)
	ReverseLookup(ctx context.Context, coord geo.Coordinate) (string, error)
}

const defaultEndpoint = "https://nominatim.openstreetmap.org"

// userAgent identifies us to the OSM servers per their usage policy.
const userAgent = "route2video/1.0"

// NominatimClient talks to a Nominatim instance.
type NominatimClient struct {
	endpoint string
	client   *http.Client
}

// NewNominatim creates a client. An empty endpoint selects the public
// OSM instance.
func NewNominatim(endpoint string) *NominatimClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &NominatimClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup resolves a free-form place name.
func (c *NominatimClient) Lookup(ctx context.Context, name string) (geo.Coordinate, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode request for %q failed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("geocode request for %q: status %d", name, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to decode geocode response for %q: %w", name, err)
	}
	if len(results) == 0 {
		return geo.Coordinate{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("bad latitude for %q: %w", name, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("bad longitude for %q: %w", name, err)
	}

	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}

type reverseResult struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseLookup resolves a coordinate to its display name.
func (c *NominatimClient) ReverseLookup(ctx context.Context, coord geo.Coordinate) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build reverse geocode request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode of %.5f,%.5f failed: %w", coord.Lat, coord.Lon, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode of %.5f,%.5f: status %d", coord.Lat, coord.Lon, resp.StatusCode)
	}

	var result reverseResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode reverse geocode response: %w", err)
	}
	// Nominatim reports "no match" as a 200 with an error field.
	if result.Error != "" || result.DisplayName == "" {
		return "", fmt.Errorf("%w: %.5f,%.5f", ErrNotFound, coord.Lat, coord.Lon)
	}
	return result.DisplayName, nil
}

// ResolveRoute fills in coordinates for every unresolved waypoint in
// place. Names the service cannot find are reported but left unresolved;
// the route layer decides whether enough waypoints remain.
func ResolveRoute(ctx context.Context, g Geocoder, r *route.Route) (unresolved []string, err error) {
	for i := range r.Waypoints {
		w := &r.Waypoints[i]
		if w.Resolved() {
			continue
		}

		coord, lookupErr := g.Lookup(ctx, w.Name)
		if lookupErr != nil {
			if errors.Is(lookupErr, ErrNotFound) {
				unresolved = append(unresolved, w.Name)
				continue
			}
			return unresolved, lookupErr
		}
		w.Lat, w.Lon = &coord.Lat, &coord.Lon
	}
	return unresolved, nil
}

// NameEndpoints reverse-geocodes the route's first and last waypoints when
// they carry coordinates but no name, as GPX tracks do. Lookup failures
// leave the waypoint unnamed; the label overlay has its own fallback.
func NameEndpoints(ctx context.Context, g Geocoder, r *route.Route) {
	if len(r.Waypoints) == 0 {
		return
	}
	for _, i := range []int{0, len(r.Waypoints) - 1} {
		w := &r.Waypoints[i]
		if w.Name != "" || !w.Resolved() {
			continue
		}
		name, err := g.ReverseLookup(ctx, w.Coordinate())
		if err != nil {
			continue
		}
		w.Name = name
	}
}
