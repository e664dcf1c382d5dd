// Package routing provides ports.RouteProvider implementations: an OSRM HTTP
// client for drivable routes and a straight-line provider for setups without one.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/tracking"
	"ordertrack/internal/core/ports"
)

const defaultHTTPTimeout = 10 * time.Second

var (
	// ErrNoRoute is returned when the routing service finds no route between the points.
	ErrNoRoute = errors.New("no route between points")
	// ErrUnexpectedResponse is returned for non-200 answers and malformed bodies.
	ErrUnexpectedResponse = errors.New("unexpected routing response")
)

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Geometry struct {
			// GeoJSON order: [lng, lat]
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// OSRMProvider asks an OSRM server for driving routes.
type OSRMProvider struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

var _ ports.RouteProvider = (*OSRMProvider)(nil)

// NewOSRMProvider creates a client for the server at baseURL, for example
// "https://router.project-osrm.org". A nil httpClient gets a 10 s timeout.
func NewOSRMProvider(baseURL string, httpClient *http.Client) *OSRMProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &OSRMProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    "driving",
		httpClient: httpClient,
	}
}

// Route returns the first route OSRM suggests from source to target.
func (p *OSRMProvider) Route(ctx context.Context, source, target kernel.Coordinate) (tracking.RouteSnapshot, error) {
	if err := errors.Join(source.Validate(), target.Validate()); err != nil {
		return tracking.RouteSnapshot{}, err
	}

	endpoint := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f",
		p.baseURL, p.profile, source.Lng(), source.Lat(), target.Lng(), target.Lat())
	query := url.Values{}
	query.Set("overview", "full")
	query.Set("geometries", "geojson")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return tracking.RouteSnapshot{}, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return tracking.RouteSnapshot{}, fmt.Errorf("request route: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return tracking.RouteSnapshot{}, fmt.Errorf("read route: %w", err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return tracking.RouteSnapshot{}, fmt.Errorf("%w: status %d: %v", ErrUnexpectedResponse, resp.StatusCode, err)
	}
	if parsed.Code == "NoRoute" || (resp.StatusCode == http.StatusOK && parsed.Code == "Ok" && len(parsed.Routes) == 0) {
		return tracking.RouteSnapshot{}, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK || parsed.Code != "Ok" {
		return tracking.RouteSnapshot{}, fmt.Errorf("%w: status %d: %s %s",
			ErrUnexpectedResponse, resp.StatusCode, parsed.Code, parsed.Message)
	}

	route := parsed.Routes[0]
	points := make([]kernel.Coordinate, 0, len(route.Geometry.Coordinates))
	for _, pair := range route.Geometry.Coordinates {
		c, err := kernel.NewCoordinate(pair[1], pair[0])
		if err != nil {
			return tracking.RouteSnapshot{}, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		points = append(points, c)
	}
	return tracking.NewRouteSnapshot(points, route.Distance)
}
