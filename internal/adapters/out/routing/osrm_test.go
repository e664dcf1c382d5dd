package routing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ordertrack/internal/adapters/out/routing"
	"ordertrack/internal/core/domain/model/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coord(t *testing.T, lat, lng float64) kernel.Coordinate {
	t.Helper()
	c, err := kernel.NewCoordinate(lat, lng)
	require.NoError(t, err)
	return c
}

func TestOSRMProvider_Route(t *testing.T) {
	src := coord(t, 12.9716, 77.5946)
	dst := coord(t, 12.9352, 77.6245)

	t.Run("should request lng,lat pairs and parse the geojson polyline", func(t *testing.T) {
		var gotPath, gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":5321.4,"geometry":{"type":"LineString",` +
				`"coordinates":[[77.5946,12.9716],[77.6100,12.9500],[77.6245,12.9352]]}}]}`))
		}))
		defer server.Close()

		route, err := routing.NewOSRMProvider(server.URL+"/", nil).Route(t.Context(), src, dst)
		require.NoError(t, err)

		assert.Equal(t, "/route/v1/driving/77.594600,12.971600;77.624500,12.935200", gotPath)
		assert.Contains(t, gotQuery, "geometries=geojson")
		assert.Contains(t, gotQuery, "overview=full")

		points := route.Points()
		require.Len(t, points, 3)
		assert.InDelta(t, 12.95, points[1].Lat(), 1e-9)
		assert.InDelta(t, 77.61, points[1].Lng(), 1e-9)
		assert.InDelta(t, 5321.4, route.DistanceMeters(), 1e-9)
	})

	t.Run("should report no route", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
		}))
		defer server.Close()

		_, err := routing.NewOSRMProvider(server.URL, nil).Route(t.Context(), src, dst)
		require.ErrorIs(t, err, routing.ErrNoRoute)
	})

	t.Run("should reject server errors and malformed bodies", func(t *testing.T) {
		html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<html>oops</html>`))
		}))
		defer html.Close()
		_, err := routing.NewOSRMProvider(html.URL, nil).Route(t.Context(), src, dst)
		require.ErrorIs(t, err, routing.ErrUnexpectedResponse)

		rateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"TooBig","message":"Too many coordinates"}`))
		}))
		defer rateLimited.Close()
		_, err = routing.NewOSRMProvider(rateLimited.URL, nil).Route(t.Context(), src, dst)
		require.ErrorIs(t, err, routing.ErrUnexpectedResponse)
	})

	t.Run("should give up when the context deadline passes", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client := &http.Client{Timeout: 50 * time.Millisecond}
		_, err := routing.NewOSRMProvider(server.URL, client).Route(t.Context(), src, dst)
		require.Error(t, err)
	})

	t.Run("should not call the server for invalid points", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) { calls++ }))
		defer server.Close()

		_, err := routing.NewOSRMProvider(server.URL, nil).Route(t.Context(), kernel.Coordinate{}, dst)
		require.Error(t, err)
		assert.Zero(t, calls)
	})
}

func TestStraightProvider_Route(t *testing.T) {
	t.Run("should return the two endpoints", func(t *testing.T) {
		src := coord(t, 0, 0)
		dst := coord(t, 0, 1)

		route, err := routing.StraightProvider{}.Route(t.Context(), src, dst)
		require.NoError(t, err)

		assert.True(t, route.Source().IsEqual(src))
		assert.True(t, route.Target().IsEqual(dst))
		assert.InDelta(t, 111_195, route.DistanceMeters(), 200)
	})
}
