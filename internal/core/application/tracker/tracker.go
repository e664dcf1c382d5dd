package tracker

import (
	"context"
	"log/slog"

	"ordertrack/internal/core/application/usecases/commands"
	"ordertrack/internal/core/application/usecases/queries"
	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/domain/model/tracking"
	"ordertrack/internal/core/domain/services"
	"ordertrack/internal/core/ports"
)

// Tracker is the entry point transports use. It runs the order commands and
// queries and keeps any running reconciler in step with their results.
type Tracker struct {
	registry *Registry
	reader   ports.OrderReader
	builder  services.SceneBuilder
	planner  services.RoutePlanner
	logger   *slog.Logger

	createHandler  commands.CreateOrderCommandHandler
	claimHandler   commands.ClaimOrderCommandHandler
	advanceHandler commands.AdvanceStatusCommandHandler
	cancelHandler  commands.CancelOrderCommandHandler

	availableHandler queries.GetAvailableOrdersQueryHandler
	orderHandler     queries.GetOrderQueryHandler
}

// NewTracker wires the facade. The registry's reconcilers and the handlers must share one store.
func NewTracker(
	registry *Registry,
	uowFactory commands.OrderUoWFactory,
	reader ports.OrderReader,
	clock commands.Clock,
	logger *slog.Logger,
) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		registry: registry,
		reader:   reader,
		builder:  services.NewSceneBuilder(),
		planner:  services.NewRoutePlanner(),
		logger:   logger.With("component", "tracker"),

		createHandler:  commands.NewCreateOrderCommandHandler(uowFactory, clock),
		claimHandler:   commands.NewClaimOrderCommandHandler(uowFactory, clock),
		advanceHandler: commands.NewAdvanceStatusCommandHandler(uowFactory, clock),
		cancelHandler:  commands.NewCancelOrderCommandHandler(uowFactory, clock),

		availableHandler: queries.NewGetAvailableOrdersQueryHandler(reader),
		orderHandler:     queries.NewGetOrderQueryHandler(reader),
	}
}

// CreateOrder places a new order in Pending.
func (t *Tracker) CreateOrder(ctx context.Context, draft order.Draft) (*order.Order, error) {
	cmd, err := commands.NewCreateOrderCommand(kernel.NewUUID(), draft)
	if err != nil {
		return nil, err
	}
	return t.createHandler.Handle(ctx, cmd)
}

// AcceptOrder claims a delivery order for partnerID. Exactly one of several
// racing partners wins; the others get order.ErrAlreadyAssigned.
func (t *Tracker) AcceptOrder(ctx context.Context, orderID, partnerID kernel.UUID) (*order.Order, error) {
	cmd, err := commands.NewClaimOrderCommand(orderID, partnerID)
	if err != nil {
		return nil, err
	}
	o, err := t.claimHandler.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}

	t.propagate(ctx, o)
	return o, nil
}

// AdvanceStatus moves an order along the transition table on behalf of actor.
func (t *Tracker) AdvanceStatus(
	ctx context.Context,
	orderID kernel.UUID,
	actor order.Actor,
	next order.Status,
) (*order.Order, error) {
	cmd, err := commands.NewAdvanceStatusCommand(orderID, actor, next)
	if err != nil {
		return nil, err
	}
	o, err := t.advanceHandler.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}

	t.propagate(ctx, o)
	return o, nil
}

// CancelOrder cancels an order on behalf of a customer or merchant.
func (t *Tracker) CancelOrder(ctx context.Context, orderID kernel.UUID, actor order.Actor) (*order.Order, error) {
	cmd, err := commands.NewCancelOrderCommand(orderID, actor)
	if err != nil {
		return nil, err
	}
	o, err := t.cancelHandler.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}

	t.propagate(ctx, o)
	return o, nil
}

// AvailableOrders lists the orders partners may claim, newest first.
func (t *Tracker) AvailableOrders(ctx context.Context) ([]queries.OrderResponse, error) {
	return t.availableHandler.Handle(ctx, queries.NewGetAvailableOrdersQuery())
}

// GetOrder returns one order.
func (t *Tracker) GetOrder(ctx context.Context, orderID kernel.UUID) (queries.OrderResponse, error) {
	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return queries.OrderResponse{}, err
	}
	return t.orderHandler.Handle(ctx, query)
}

// GetRenderScene returns the current scene of an order for viewer. A running
// reconciler supplies positions and the route; otherwise the scene is built
// from the stored order with a straight route between the active endpoints.
func (t *Tracker) GetRenderScene(ctx context.Context, orderID kernel.UUID, viewer order.Actor) (services.Scene, error) {
	if rec, ok := t.registry.Peek(orderID); ok {
		view := rec.Snapshot()
		if view.Order != nil {
			if err := canView(view.Order, viewer); err != nil {
				return services.Scene{}, err
			}
			return t.builder.Build(services.SceneInput{
				Order:     view.Order,
				Viewer:    viewer,
				Positions: view.Positions,
				Route:     view.Route,
				Following: true,
			}), nil
		}
	}

	o, err := t.reader.Get(ctx, orderID)
	if err != nil {
		return services.Scene{}, err
	}
	if err := canView(o, viewer); err != nil {
		return services.Scene{}, err
	}

	in := services.SceneInput{Order: o, Viewer: viewer, Following: true}
	if ends, ok := t.planner.Route(o, nil, nil); ok {
		if route, routeErr := tracking.StraightRoute(ends.Source, ends.Target); routeErr == nil {
			in.Route = &route
		}
	}
	return t.builder.Build(in), nil
}

// OpenSession opens a map view of an order. With a non-nil source the
// viewer's device fixes feed the reconciler until the session is closed.
func (t *Tracker) OpenSession(
	ctx context.Context,
	orderID kernel.UUID,
	viewer order.Actor,
	source ports.LocationSource,
) (*MapSession, error) {
	if err := viewer.Role.Validate(); err != nil {
		return nil, err
	}

	rec, release, err := t.registry.Acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if view := rec.Snapshot(); view.Order != nil {
		if err = canView(view.Order, viewer); err != nil {
			release()
			return nil, err
		}
	}

	session, err := newMapSession(viewer, rec, release, source, t.logger)
	if err != nil {
		release()
		return nil, err
	}
	return session, nil
}

// OnSceneChanged streams scenes of an order to cb until the returned function
// is called. The current scene is delivered first.
func (t *Tracker) OnSceneChanged(
	ctx context.Context,
	orderID kernel.UUID,
	viewer order.Actor,
	cb func(services.Scene),
) (func(), error) {
	session, err := t.OpenSession(ctx, orderID, viewer, nil)
	if err != nil {
		return nil, err
	}

	session.OnSceneChanged(cb)
	cb(session.Scene())
	return session.Close, nil
}

// ActiveOrders returns the number of orders with a running reconciler.
func (t *Tracker) ActiveOrders() int {
	return t.registry.Len()
}

// Close stops every running reconciler.
func (t *Tracker) Close() {
	t.registry.Close()
}

func (t *Tracker) propagate(ctx context.Context, o *order.Order) {
	if rec, ok := t.registry.Peek(o.ID()); ok {
		rec.ApplyOrder(o)
		t.logger.DebugContext(ctx, "Order pushed to reconciler",
			"order_id", o.ID().String(), "status", o.Status().String())
	}
}

// canView allows the order's customer and merchant, its assigned partner, and
// any partner while the order is still claimable.
func canView(o *order.Order, viewer order.Actor) error {
	var allowed bool
	switch viewer.Role {
	case order.Customer:
		allowed = viewer.ID.IsEqual(o.CustomerID())
	case order.Merchant:
		allowed = viewer.ID.IsEqual(o.MerchantID())
	case order.Partner:
		allowed = o.IsAssignedTo(viewer.ID) || o.IsClaimable()
	}
	if !allowed {
		return ErrNotOrderParty
	}
	return nil
}
