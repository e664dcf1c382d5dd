// Package http exposes the order tracker over REST and a websocket scene stream.
package http

import (
	"log/slog"
	"net/http"

	_ "ordertrack/internal/adapters/in/http/docs"
	"ordertrack/internal/core/application/tracker"
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

const (
	// HeaderActorRole and HeaderActorID identify the caller. Authentication
	// happens in front of this service; the gateway sets both headers.
	HeaderActorRole = "X-Actor-Role"
	HeaderActorID   = "X-Actor-ID"
)

// Server handles HTTP requests by delegating to the tracker facade.
type Server struct {
	tracker  *tracker.Tracker
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a server for t.
func NewServer(t *tracker.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tracker: t,
		logger:  logger.With("component", "http_server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

//go:generate swag init -g server.go -o docs --outputTypes go

// Register mounts every route on e.
//
//	@title			Order tracking API
//	@version		1.0
//	@description	Order lifecycle, partner claims and live map scenes.
//	@BasePath		/api/v1
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/available", s.GetAvailableOrders)
	api.GET("/orders/:id", s.GetOrder)
	api.POST("/orders/:id/claim", s.ClaimOrder)
	api.POST("/orders/:id/status", s.AdvanceStatus)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.GET("/orders/:id/scene", s.GetScene)
	api.GET("/orders/:id/stream", s.StreamScene)
}

// CreateOrder handles POST /api/v1/orders.
//
//	@Summary	Place an order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		order	body		NewOrder	true	"Order draft"
//	@Success	201		{object}	Order
//	@Failure	400		{object}	Error
//	@Router		/orders [post]
func (s *Server) CreateOrder(c echo.Context) error {
	var body NewOrder
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	draft, err := body.toDraft()
	if err != nil {
		return badRequest(c, "Invalid order data: "+err.Error())
	}

	o, err := s.tracker.CreateOrder(c.Request().Context(), draft)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, fromOrder(o))
}

// GetAvailableOrders handles GET /api/v1/orders/available.
//
//	@Summary	List claimable delivery orders
//	@Tags		orders
//	@Produce	json
//	@Success	200	{array}		Order
//	@Failure	500	{object}	Error
//	@Router		/orders/available [get]
func (s *Server) GetAvailableOrders(c echo.Context) error {
	orders, err := s.tracker.AvailableOrders(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}

	response := make([]Order, 0, len(orders))
	for _, o := range orders {
		response = append(response, fromResponse(o))
	}
	return c.JSON(http.StatusOK, response)
}

// GetOrder handles GET /api/v1/orders/:id.
//
//	@Summary	Get an order
//	@Tags		orders
//	@Produce	json
//	@Param		id	path		string	true	"Order ID"
//	@Success	200	{object}	Order
//	@Failure	400	{object}	Error
//	@Failure	404	{object}	Error
//	@Router		/orders/{id} [get]
func (s *Server) GetOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, "Invalid order id")
	}

	o, err := s.tracker.GetOrder(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, fromResponse(o))
}

// ClaimOrder handles POST /api/v1/orders/:id/claim. The caller must be a partner.
//
//	@Summary	Claim a delivery order
//	@Tags		orders
//	@Produce	json
//	@Param		id				path		string	true	"Order ID"
//	@Param		X-Actor-Role	header		string	true	"Caller role"
//	@Param		X-Actor-ID		header		string	true	"Caller ID"
//	@Success	200				{object}	Order
//	@Failure	403				{object}	Error
//	@Failure	409				{object}	Error
//	@Failure	422				{object}	Error
//	@Router		/orders/{id}/claim [post]
func (s *Server) ClaimOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, "Invalid order id")
	}
	actor, err := actorFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if actor.Role != order.Partner {
		return s.fail(c, order.ErrActorNotPermitted)
	}

	o, err := s.tracker.AcceptOrder(c.Request().Context(), id, actor.ID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, fromOrder(o))
}

// AdvanceStatus handles POST /api/v1/orders/:id/status.
//
//	@Summary	Move an order to its next status
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		id				path		string			true	"Order ID"
//	@Param		X-Actor-Role	header		string			true	"Caller role"
//	@Param		X-Actor-ID		header		string			true	"Caller ID"
//	@Param		change			body		StatusChange	true	"Target status"
//	@Success	200				{object}	Order
//	@Failure	403				{object}	Error
//	@Failure	409				{object}	Error
//	@Failure	422				{object}	Error
//	@Router		/orders/{id}/status [post]
func (s *Server) AdvanceStatus(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, "Invalid order id")
	}
	actor, err := actorFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body StatusChange
	if err = c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	next, err := order.StatusFromCode(body.Status)
	if err != nil {
		return badRequest(c, "Invalid status: "+err.Error())
	}

	o, err := s.tracker.AdvanceStatus(c.Request().Context(), id, actor, next)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, fromOrder(o))
}

// CancelOrder handles POST /api/v1/orders/:id/cancel.
//
//	@Summary	Cancel an order
//	@Tags		orders
//	@Produce	json
//	@Param		id				path		string	true	"Order ID"
//	@Param		X-Actor-Role	header		string	true	"Caller role"
//	@Param		X-Actor-ID		header		string	true	"Caller ID"
//	@Success	200				{object}	Order
//	@Failure	403				{object}	Error
//	@Failure	409				{object}	Error
//	@Failure	422				{object}	Error
//	@Router		/orders/{id}/cancel [post]
func (s *Server) CancelOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, "Invalid order id")
	}
	actor, err := actorFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	o, err := s.tracker.CancelOrder(c.Request().Context(), id, actor)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, fromOrder(o))
}

// GetScene handles GET /api/v1/orders/:id/scene.
//
//	@Summary	Render the map scene for the caller
//	@Tags		tracking
//	@Produce	json
//	@Param		id				path		string	true	"Order ID"
//	@Param		X-Actor-Role	header		string	true	"Caller role"
//	@Param		X-Actor-ID		header		string	true	"Caller ID"
//	@Success	200				{object}	Scene
//	@Failure	403				{object}	Error
//	@Failure	404				{object}	Error
//	@Router		/orders/{id}/scene [get]
func (s *Server) GetScene(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, "Invalid order id")
	}
	actor, err := actorFrom(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	scene, err := s.tracker.GetRenderScene(c.Request().Context(), id, actor)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, fromScene(scene))
}

func orderID(c echo.Context) (kernel.UUID, error) {
	return kernel.UUIDFromString(c.Param("id"))
}

// actorFrom reads the caller from the identity headers, falling back to the
// role and actor_id query parameters for websocket clients that cannot set headers.
func actorFrom(c echo.Context) (order.Actor, error) {
	role := c.Request().Header.Get(HeaderActorRole)
	id := c.Request().Header.Get(HeaderActorID)
	if role == "" && id == "" {
		role = c.QueryParam("role")
		id = c.QueryParam("actor_id")
	}

	r, err := order.RoleFromCode(role)
	if err != nil {
		return order.Actor{}, err
	}
	actorID, err := kernel.UUIDFromString(id)
	if err != nil {
		return order.Actor{}, err
	}
	return order.Actor{Role: r, ID: actorID}, nil
}
