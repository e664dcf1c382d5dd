package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "ordertrack/internal/adapters/in/http"
	"ordertrack/internal/adapters/out/memory"
	"ordertrack/internal/core/application/tracker"
	"ordertrack/internal/core/application/usecases/commands"
	"ordertrack/internal/core/domain/model/kernel"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	echo       *echo.Echo
	customerID string
	merchantID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewOrderStore()
	broker := memory.NewLocationBroker()

	registry := tracker.NewRegistry(tracker.Config{}, tracker.Dependencies{
		Orders:      store,
		OrderFeed:   store,
		PartnerFeed: broker,
		PartnerSink: broker,
		Logger:      logger,
	})
	uowFactory := commands.OrderUoWFactoryFrom(memory.NewUnitOfWorkFactory(store, nil, logger))
	tr := tracker.NewTracker(registry, uowFactory, store, time.Now, logger)
	t.Cleanup(tr.Close)

	e := echo.New()
	httpadapter.NewServer(tr, logger).Register(e)
	return &fixture{
		echo:       e,
		customerID: kernel.NewUUID().String(),
		merchantID: kernel.NewUUID().String(),
	}
}

func (f *fixture) do(t *testing.T, method, path, role, actorID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if role != "" {
		req.Header.Set(httpadapter.HeaderActorRole, role)
		req.Header.Set(httpadapter.HeaderActorID, actorID)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createDelivery(t *testing.T) httpadapter.Order {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/orders", "", "", httpadapter.NewOrder{
		Mode:       "delivery",
		CustomerID: f.customerID,
		MerchantID: f.merchantID,
		Pickup:     httpadapter.Coordinate{Lat: 12.9716, Lng: 77.5946},
		Drop:       &httpadapter.Coordinate{Lat: 12.9352, Lng: 77.6245},
		TotalMinor: 45000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[httpadapter.Order](t, rec)
}

func (f *fixture) setStatus(t *testing.T, id, role, actorID, status string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/v1/orders/"+id+"/status", role, actorID,
		httpadapter.StatusChange{Status: status})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Swagger(t *testing.T) {
	f := newFixture(t)

	t.Run("should serve the swagger ui", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/swagger/index.html", "", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("should describe every order route", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/swagger/doc.json", "", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var doc struct {
			BasePath string                     `json:"basePath"`
			Paths    map[string]json.RawMessage `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Equal(t, "/api/v1", doc.BasePath)
		for _, path := range []string{
			"/orders", "/orders/available", "/orders/{id}", "/orders/{id}/claim",
			"/orders/{id}/status", "/orders/{id}/cancel", "/orders/{id}/scene", "/orders/{id}/stream",
		} {
			assert.Contains(t, doc.Paths, path)
		}
	})
}

func TestServer_CreateOrder(t *testing.T) {
	t.Run("should create a pending order", func(t *testing.T) {
		f := newFixture(t)
		o := f.createDelivery(t)

		assert.Equal(t, "placed", o.Status)
		assert.Equal(t, []string{"accepted"}, o.NextStatuses)
		assert.Equal(t, "delivery", o.Mode)
		assert.Equal(t, f.customerID, o.CustomerID)
		assert.Nil(t, o.PartnerID)
		assert.Greater(t, o.DistanceMeters, 0.0)
	})

	t.Run("should reject a delivery order without a drop point", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/orders", "", "", httpadapter.NewOrder{
			Mode:       "delivery",
			CustomerID: f.customerID,
			MerchantID: f.merchantID,
			Pickup:     httpadapter.Coordinate{Lat: 1, Lng: 1},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should reject malformed input", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/v1/orders", "", "", httpadapter.NewOrder{Mode: "teleport"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode[httpadapter.Error](t, rec)
		assert.Equal(t, http.StatusBadRequest, body.Code)
	})
}

func TestServer_GetOrder(t *testing.T) {
	f := newFixture(t)
	created := f.createDelivery(t)

	t.Run("should return a stored order", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, "", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.ID, decode[httpadapter.Order](t, rec).ID)
	})

	t.Run("should return 404 for an unknown order", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders/"+kernel.NewUUID().String(), "", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should return 400 for a malformed id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders/not-an-id", "", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Lifecycle(t *testing.T) {
	f := newFixture(t)
	o := f.createDelivery(t)
	partner := kernel.NewUUID().String()
	rival := kernel.NewUUID().String()

	t.Run("should refuse a transition by the wrong actor", func(t *testing.T) {
		rec := f.setStatus(t, o.ID, "customer", f.customerID, "accepted")
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("should refuse a skipped transition", func(t *testing.T) {
		rec := f.setStatus(t, o.ID, "merchant", f.merchantID, "ready")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	})

	t.Run("should list the accepted order as available", func(t *testing.T) {
		rec := f.setStatus(t, o.ID, "merchant", f.merchantID, "accepted")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodGet, "/api/v1/orders/available", "", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		available := decode[[]httpadapter.Order](t, rec)
		require.Len(t, available, 1)
		assert.Equal(t, o.ID, available[0].ID)
	})

	t.Run("should let the first partner claim and turn the second away", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/orders/"+o.ID+"/claim", "partner", partner, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		claimed := decode[httpadapter.Order](t, rec)
		require.NotNil(t, claimed.PartnerID)
		assert.Equal(t, partner, *claimed.PartnerID)

		rec = f.do(t, http.MethodPost, "/api/v1/orders/"+o.ID+"/claim", "partner", rival, nil)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("should only let partners claim", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/orders/"+o.ID+"/claim", "customer", f.customerID, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("should refuse to cancel a claimed order", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/orders/"+o.ID+"/cancel", "customer", f.customerID, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	})

	t.Run("should reach delivered through the partner leg", func(t *testing.T) {
		require.Equal(t, http.StatusOK, f.setStatus(t, o.ID, "merchant", f.merchantID, "packing").Code)
		require.Equal(t, http.StatusOK, f.setStatus(t, o.ID, "merchant", f.merchantID, "on_way").Code)
		require.Equal(t, http.StatusOK, f.setStatus(t, o.ID, "partner", partner, "picked_up").Code)

		rec := f.setStatus(t, o.ID, "partner", rival, "delivered")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.setStatus(t, o.ID, "partner", partner, "delivered")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "delivered", decode[httpadapter.Order](t, rec).Status)
	})

	t.Run("should require identity headers", func(t *testing.T) {
		rec := f.setStatus(t, o.ID, "", "", "delivered")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_GetScene(t *testing.T) {
	f := newFixture(t)
	o := f.createDelivery(t)

	t.Run("should render the merchant pin and the route for the customer", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/scene", "customer", f.customerID, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		scene := decode[httpadapter.Scene](t, rec)
		assert.Equal(t, o.ID, scene.OrderID)
		kinds := make([]string, 0, len(scene.Markers))
		for _, m := range scene.Markers {
			kinds = append(kinds, m.Kind)
		}
		assert.Contains(t, kinds, "merchant")
		assert.Nil(t, scene.Route, "no route before the merchant accepts")
	})

	t.Run("should refuse viewers outside the order", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/orders/"+o.ID+"/scene", "customer", kernel.NewUUID().String(), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestServer_StreamScene(t *testing.T) {
	f := newFixture(t)
	o := f.createDelivery(t)
	server := httptest.NewServer(f.echo)
	defer server.Close()

	dial := func(t *testing.T, role, actorID string) *websocket.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http") +
			"/api/v1/orders/" + o.ID + "/stream?role=" + role + "&actor_id=" + actorID
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}

	next := func(t *testing.T, conn *websocket.Conn, match func(httpadapter.Scene) bool) httpadapter.Scene {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		for {
			var scene httpadapter.Scene
			require.NoError(t, conn.ReadJSON(&scene))
			if match(scene) {
				return scene
			}
		}
	}

	t.Run("should send the current scene first", func(t *testing.T) {
		conn := dial(t, "customer", f.customerID)
		scene := next(t, conn, func(httpadapter.Scene) bool { return true })
		assert.Equal(t, "placed", scene.Status)
		assert.Equal(t, "follow", scene.Camera.Mode)
	})

	t.Run("should release the camera on pan and show the customer's own fix", func(t *testing.T) {
		conn := dial(t, "customer", f.customerID)
		next(t, conn, func(httpadapter.Scene) bool { return true })

		require.NoError(t, conn.WriteJSON(httpadapter.ClientMessage{Type: "pan"}))
		next(t, conn, func(s httpadapter.Scene) bool { return s.Camera.Mode == "free" })

		require.NoError(t, conn.WriteJSON(httpadapter.ClientMessage{Type: "fix", Lat: 12.94, Lng: 77.62, Accuracy: 5}))
		scene := next(t, conn, func(s httpadapter.Scene) bool {
			for _, m := range s.Markers {
				if m.Kind == "self" {
					return true
				}
			}
			return false
		})
		for _, m := range scene.Markers {
			if m.Kind == "self" {
				assert.InDelta(t, 12.94, m.Position.Lat, 1e-9)
			}
		}
	})

	t.Run("should push status changes made over REST", func(t *testing.T) {
		conn := dial(t, "merchant", f.merchantID)
		next(t, conn, func(httpadapter.Scene) bool { return true })

		require.Equal(t, http.StatusOK, f.setStatus(t, o.ID, "merchant", f.merchantID, "accepted").Code)
		next(t, conn, func(s httpadapter.Scene) bool { return s.Status == "accepted" })
	})

	t.Run("should refuse the upgrade for outsiders", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(server.URL, "http") +
			"/api/v1/orders/" + o.ID + "/stream?role=customer&actor_id=" + kernel.NewUUID().String()
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
