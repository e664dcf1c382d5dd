package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"ordertrack/internal/adapters/out/memory"
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/domain/services"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
)

// ClientMessage is what a stream client sends.
//
//	{"type":"fix","lat":12.97,"lng":77.59,"accuracy":8}
//	{"type":"pan"}
//	{"type":"recenter"}
type ClientMessage struct {
	Type     string     `json:"type"`
	Lat      float64    `json:"lat"`
	Lng      float64    `json:"lng"`
	Accuracy float64    `json:"accuracy"`
	At       *time.Time `json:"at,omitempty"`
}

// StreamScene handles GET /api/v1/orders/:id/stream. It upgrades to a
// websocket, sends the current scene and then every changed scene. Customers
// and partners may send their own device fixes over the same socket.
//
//	@Summary	Stream map scenes over a websocket
//	@Tags		tracking
//	@Param		id			path	string	true	"Order ID"
//	@Param		role		query	string	true	"Caller role"
//	@Param		actor_id	query	string	true	"Caller ID"
//	@Success	101
//	@Failure	403	{object}	Error
//	@Router		/orders/{id}/stream [get]
func (s *Server) StreamScene(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, "Invalid order id")
	}
	actor, err := actorFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	source := memory.NewPushLocationSource()
	session, err := s.tracker.OpenSession(ctx, id, actor, source)
	if err != nil {
		source.Close()
		return s.fail(c, err)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		session.Close()
		source.Close()
		return nil //nolint:nilerr // the upgrader already wrote the error response
	}

	logger := s.logger.With("order_id", id.String(), "role", actor.Role.String())
	logger.InfoContext(ctx, "Scene stream opened")

	// latest scene wins; a slow client skips intermediate frames
	scenes := make(chan services.Scene, 1)
	push := func(scene services.Scene) {
		select {
		case scenes <- scene:
		default:
			select {
			case <-scenes:
			default:
			}
			select {
			case scenes <- scene:
			default:
			}
		}
	}
	stop := session.OnSceneChanged(push)
	push(session.Scene())

	done := make(chan struct{})
	go s.writePump(conn, scenes, done, logger)
	s.readPump(conn, actor, session, source, logger)

	stop()
	session.Close()
	source.Close()
	close(done)
	logger.InfoContext(ctx, "Scene stream closed")
	return nil
}

type sceneSession interface {
	Pan()
	Recenter()
}

func (s *Server) readPump(
	conn *websocket.Conn,
	actor order.Actor,
	session sceneSession,
	source *memory.PushLocationSource,
	logger *slog.Logger,
) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Scene stream read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("Invalid stream message", "error", err)
			continue
		}

		switch msg.Type {
		case "pan":
			session.Pan()
		case "recenter":
			session.Recenter()
		case "fix":
			if actor.Role == order.Merchant {
				continue
			}
			fix, err := msg.toFix(time.Now())
			if err != nil {
				logger.Warn("Invalid location fix", "error", err)
				continue
			}
			source.Push(fix)
		default:
			logger.Warn("Unknown stream message type", "type", msg.Type)
		}
	}
}

func (s *Server) writePump(
	conn *websocket.Conn,
	scenes <-chan services.Scene,
	done <-chan struct{},
	logger *slog.Logger,
) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case scene := <-scenes:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(fromScene(scene)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.Warn("Scene stream write failed", "error", err)
				}
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m ClientMessage) toFix(now time.Time) (kernel.LocationFix, error) {
	c, err := kernel.NewCoordinate(m.Lat, m.Lng)
	if err != nil {
		return kernel.LocationFix{}, err
	}
	at := now
	if m.At != nil {
		at = *m.At
	}
	return kernel.NewLocationFix(c, m.Accuracy, at)
}
