package tracker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ordertrack/internal/core/domain/model/kernel"
	"ordertrack/internal/core/domain/model/order"
	"ordertrack/internal/core/domain/model/tracking"
	"ordertrack/internal/core/domain/services"
)

// View is a consistent read of a Reconciler: the held order, the selected
// position per role and the last good route. All values are copies.
type View struct {
	Order     *order.Order
	Positions map[order.Role]tracking.ActorPosition
	Route     *tracking.RouteSnapshot
}

// Device identifies one location source feeding a Reconciler.
type Device uint64

// Reconciler produces one position per actor of one order regardless of
// whether it comes from a live feed, the partner's own device or a simulated leg.
//
// It is the only writer of its position map. Inputs are applied in arrival
// order using the reconciler clock; device capture times are ignored so that
// skewed clocks between actors cannot stall updates.
//
// Example:
//
//	rec := NewReconciler(orderID, cfg, deps)
//	if err := rec.Start(ctx); err != nil {
//	    return err
//	}
//	defer rec.Close()
//	stop := rec.OnChange(func() { render(rec.Snapshot()) })
//	defer stop()
type Reconciler struct {
	orderID kernel.UUID
	cfg     Config
	deps    Dependencies
	planner services.RoutePlanner
	logger  *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	background sync.WaitGroup

	mu             sync.Mutex
	order          *order.Order
	positions      map[order.Role]*tracking.PositionSet
	gates          map[Device]*tracking.AccuracyGate
	nextDevice     Device
	leg            *tracking.Leg
	route          *tracking.RouteSnapshot
	routedEnds     *services.Endpoints
	routeGen       uint64
	routeRetry     bool
	listeners      map[uint64]func()
	nextListener   uint64
	releasers      []func()
	partnerFeedFor *kernel.UUID
	terminal       bool
	closed         bool
}

// NewReconciler creates a reconciler for orderID. It holds no order until Start or ApplyOrder.
func NewReconciler(orderID kernel.UUID, cfg Config, deps Dependencies) *Reconciler {
	deps = deps.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		orderID:   orderID,
		cfg:       cfg.withDefaults(),
		deps:      deps,
		planner:   services.NewRoutePlanner(),
		logger:    deps.Logger.With("component", "reconciler", "order_id", orderID.String()),
		ctx:       ctx,
		cancel:    cancel,
		positions: make(map[order.Role]*tracking.PositionSet),
		gates:     make(map[Device]*tracking.AccuracyGate),
		listeners: make(map[uint64]func()),
	}
}

// OrderID returns the reconciled order.
func (r *Reconciler) OrderID() kernel.UUID {
	return r.orderID
}

// Start loads the order, subscribes to its change feed and schedules the
// poll and simulation jobs. A feed failure is logged and polling covers it.
func (r *Reconciler) Start(ctx context.Context) error {
	o, err := r.deps.Orders.Get(ctx, r.orderID)
	if err != nil {
		return err
	}
	r.ApplyOrder(o)

	if r.deps.OrderFeed != nil {
		unsubscribe, subErr := r.deps.OrderFeed.Subscribe(r.ctx, r.orderID, r.onOrderChanged)
		if subErr != nil {
			r.logger.WarnContext(ctx, "Order feed unavailable, relying on polling", "error", subErr)
		} else {
			r.keep(unsubscribe)
		}
	}

	if r.deps.Scheduler != nil && !r.IsTerminal() {
		stop, schedErr := r.deps.Scheduler.Schedule(r, r.cfg.SimulationEnabled)
		if schedErr != nil {
			r.Close()
			return schedErr
		}
		r.keep(stop)
	}

	return nil
}

// Refresh re-reads the order from the store. Errors are returned for the
// poller to log; the held state is left as is.
func (r *Reconciler) Refresh(ctx context.Context) error {
	if r.isDone() {
		return nil
	}

	o, err := r.deps.Orders.Get(ctx, r.orderID)
	if err != nil {
		return err
	}

	r.ApplyOrder(o)
	return nil
}

// ApplyOrder merges an order update from any source. Updates older than the
// held copy are ignored. Entering OnTheWay or PickedUp starts a simulation leg;
// a final status discards all positions and releases jobs and feeds.
func (r *Reconciler) ApplyOrder(o *order.Order) {
	if o.Validate() != nil || !o.ID().IsEqual(r.orderID) {
		return
	}

	r.mu.Lock()
	if r.closed || r.terminal {
		r.mu.Unlock()
		return
	}
	prev := r.order
	if prev != nil && o.UpdatedAt().Before(prev.UpdatedAt()) {
		r.mu.Unlock()
		return
	}
	if prev != nil && prev.Status() == o.Status() && prev.HasPartner() == o.HasPartner() {
		r.order = o.Clone()
		r.mu.Unlock()
		return
	}

	r.order = o.Clone()
	now := r.deps.Clock()

	var release []func()
	if o.IsFinal() {
		release = r.terminateLocked()
	} else {
		if prev == nil || prev.Status() != o.Status() {
			r.startLegLocked(now)
		}
		r.planRouteLocked(now)
	}
	partnerID := r.claimPartnerFeedLocked()
	r.mu.Unlock()

	for _, f := range release {
		f()
	}
	if partnerID != nil {
		r.subscribePartner(*partnerID)
	}
	r.notify()
}

// AttachDevice registers a location source and returns its key. Each device
// passes its fixes through its own accuracy gate.
func (r *Reconciler) AttachDevice() Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextDevice++
	return r.nextDevice
}

// DetachDevice drops the accuracy gate of device.
func (r *Reconciler) DetachDevice(device Device) {
	r.mu.Lock()
	delete(r.gates, device)
	r.mu.Unlock()
}

// ApplyFix admits a fix reported by device for role through the device's
// accuracy gate and stores it as Live. A partner fix pauses the simulation leg.
// Returns whether the fix was admitted.
func (r *Reconciler) ApplyFix(device Device, role order.Role, fix kernel.LocationFix) bool {
	if role.Validate() != nil || fix.Validate() != nil {
		return false
	}

	r.mu.Lock()
	if r.closed || r.terminal {
		r.mu.Unlock()
		return false
	}
	verdict := r.gateLocked(device).Admit(fix)
	if !verdict.Accepted {
		r.mu.Unlock()
		return false
	}

	now := r.deps.Clock()
	r.writeLocked(role, tracking.Live, fix.Coordinate(), fix.AccuracyMeters(), verdict.LowConfidence, now)
	if role == order.Partner {
		r.pauseLegLocked(now)
	}
	r.planRouteLocked(now)
	r.mu.Unlock()

	r.notify()
	return true
}

// ReportOwnFix handles a fix from the assigned partner's own device. The
// position is shown at once as LocalOptimistic and broadcast through the sink
// without waiting. Broadcast errors are logged only. Fixes of any other
// partner are dropped before they reach a gate.
func (r *Reconciler) ReportOwnFix(device Device, partnerID kernel.UUID, fix kernel.LocationFix) bool {
	if partnerID.Validate() != nil || fix.Validate() != nil {
		return false
	}

	r.mu.Lock()
	if r.closed || r.terminal || r.order == nil || !r.order.IsAssignedTo(partnerID) {
		r.mu.Unlock()
		return false
	}
	verdict := r.gateLocked(device).Admit(fix)
	if !verdict.Accepted {
		r.mu.Unlock()
		return false
	}

	now := r.deps.Clock()
	r.writeLocked(order.Partner, tracking.LocalOptimistic, fix.Coordinate(), fix.AccuracyMeters(),
		verdict.LowConfidence, now)
	r.pauseLegLocked(now)
	r.planRouteLocked(now)
	send := r.deps.PartnerSink != nil
	if send {
		r.background.Add(1)
	}
	r.mu.Unlock()

	r.notify()
	if send {
		go r.broadcast(partnerID, fix.Coordinate())
	}
	return true
}

// ApplyPartnerBroadcast stores a position received from the partner feed as
// Live. It supersedes the optimistic value and pauses the simulation leg.
func (r *Reconciler) ApplyPartnerBroadcast(coordinate kernel.Coordinate) {
	if coordinate.Validate() != nil {
		return
	}

	r.mu.Lock()
	if r.closed || r.terminal {
		r.mu.Unlock()
		return
	}
	now := r.deps.Clock()
	r.writeLocked(order.Partner, tracking.Live, coordinate, 0, false, now)
	r.pauseLegLocked(now)
	r.planRouteLocked(now)
	r.mu.Unlock()

	r.notify()
}

// Tick advances the simulated partner along the active leg. It does nothing
// without a running leg or while a fresh live partner position exists.
func (r *Reconciler) Tick(now time.Time) {
	r.mu.Lock()
	if r.closed || r.terminal || r.leg == nil || r.leg.IsPaused() {
		r.mu.Unlock()
		return
	}
	set := r.setLocked(order.Partner)
	if set.Live != nil && set.Live.IsFresh(now, r.cfg.StalenessWindow) {
		r.mu.Unlock()
		return
	}
	next := r.leg.PositionAt(now)
	if set.Simulated != nil && set.Simulated.Coordinate.IsEqual(next) {
		r.mu.Unlock()
		return
	}

	r.writeLocked(order.Partner, tracking.Simulated, next, 0, false, now)
	r.planRouteLocked(now)
	r.mu.Unlock()

	r.notify()
}

// Snapshot returns the current view with positions selected at the reconciler clock.
func (r *Reconciler) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.deps.Clock()
	view := View{Positions: make(map[order.Role]tracking.ActorPosition, len(r.positions))}
	if r.order != nil {
		view.Order = r.order.Clone()
	}
	for role, set := range r.positions {
		if p, ok := set.Select(now, r.cfg.StalenessWindow); ok {
			view.Positions[role] = p
		}
	}
	if r.route != nil {
		route := *r.route
		view.Route = &route
	}
	return view
}

// OnChange registers cb, called after every applied change. The returned
// function removes it.
func (r *Reconciler) OnChange(cb func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}

	r.nextListener++
	id := r.nextListener
	r.listeners[id] = cb

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// IsTerminal reports whether the order reached a final status.
func (r *Reconciler) IsTerminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminal
}

// IsSimulating reports whether a simulation leg is running.
func (r *Reconciler) IsSimulating() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leg != nil && !r.leg.IsPaused()
}

// Flush waits for in-flight route computations and broadcasts.
func (r *Reconciler) Flush() {
	r.background.Wait()
}

// Close releases jobs, feeds and listeners and drops all positions.
// It is idempotent.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	release := r.releasers
	r.releasers = nil
	r.listeners = make(map[uint64]func())
	r.positions = make(map[order.Role]*tracking.PositionSet)
	r.gates = make(map[Device]*tracking.AccuracyGate)
	r.leg = nil
	r.mu.Unlock()

	r.cancel()
	for _, f := range release {
		f()
	}
	r.background.Wait()
}

func (r *Reconciler) onOrderChanged() {
	if err := r.Refresh(r.ctx); err != nil {
		r.logger.WarnContext(r.ctx, "Failed to refresh order after change notification", "error", err)
	}
}

func (r *Reconciler) isDone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed || r.terminal
}

// keep registers a release function, or runs it at once when already released.
func (r *Reconciler) keep(release func()) {
	r.mu.Lock()
	if r.closed || r.terminal {
		r.mu.Unlock()
		release()
		return
	}
	r.releasers = append(r.releasers, release)
	r.mu.Unlock()
}

func (r *Reconciler) terminateLocked() []func() {
	r.terminal = true
	r.positions = make(map[order.Role]*tracking.PositionSet)
	r.gates = make(map[Device]*tracking.AccuracyGate)
	r.leg = nil
	r.route = nil
	r.routedEnds = nil
	r.routeGen++
	release := r.releasers
	r.releasers = nil
	return release
}

func (r *Reconciler) setLocked(role order.Role) *tracking.PositionSet {
	set, ok := r.positions[role]
	if !ok {
		set = &tracking.PositionSet{}
		r.positions[role] = set
	}
	return set
}

func (r *Reconciler) gateLocked(device Device) *tracking.AccuracyGate {
	gate, ok := r.gates[device]
	if !ok {
		gate = tracking.NewAccuracyGate(r.cfg.AccuracyThresholdMeters)
		r.gates[device] = gate
	}
	return gate
}

func (r *Reconciler) selectLocked(role order.Role, now time.Time) (tracking.ActorPosition, bool) {
	set, ok := r.positions[role]
	if !ok {
		return tracking.ActorPosition{}, false
	}
	return set.Select(now, r.cfg.StalenessWindow)
}

// writeLocked stores a position for role, orienting it from the previously selected one.
func (r *Reconciler) writeLocked(
	role order.Role,
	source tracking.Source,
	coordinate kernel.Coordinate,
	accuracy float64,
	lowConfidence bool,
	now time.Time,
) {
	p := tracking.ActorPosition{
		OrderID:        r.orderID,
		Role:           role,
		Coordinate:     coordinate,
		Source:         source,
		UpdatedAt:      now,
		AccuracyMeters: accuracy,
		LowConfidence:  lowConfidence,
	}
	if prev, ok := r.selectLocked(role, now); ok {
		p.Bearing = kernel.Bearing(prev.Coordinate, coordinate, prev.Bearing)
	}

	set := r.setLocked(role)
	switch source { //nolint:exhaustive // UnknownSource is never written
	case tracking.Live:
		set.Live = &p
		set.Optimistic = nil
	case tracking.LocalOptimistic:
		set.Optimistic = &p
	case tracking.Simulated:
		set.Simulated = &p
	}
}

// startLegLocked begins a simulation leg from the latest partner position,
// or from the pickup point when none is known.
func (r *Reconciler) startLegLocked(now time.Time) {
	r.leg = nil
	if !r.cfg.SimulationEnabled {
		return
	}
	target, ok := r.planner.SimulationTarget(r.order)
	if !ok {
		return
	}

	start := r.order.PickupPoint()
	if latest, found := r.setLocked(order.Partner).Latest(); found {
		start = latest.Coordinate
	}
	leg, err := tracking.NewLeg(start, target, now, r.cfg.LegDuration)
	if err != nil {
		r.logger.Error("Failed to start simulation leg", "error", err)
		return
	}
	r.leg = &leg
	r.writeLocked(order.Partner, tracking.Simulated, leg.PositionAt(now), 0, false, now)
}

func (r *Reconciler) pauseLegLocked(now time.Time) {
	if r.leg != nil && !r.leg.IsPaused() {
		paused := r.leg.Pause(now)
		r.leg = &paused
	}
}

// claimPartnerFeedLocked returns the partner to subscribe to, at most once per order.
func (r *Reconciler) claimPartnerFeedLocked() *kernel.UUID {
	if r.deps.PartnerFeed == nil || r.terminal || r.partnerFeedFor != nil || r.order == nil {
		return nil
	}
	partnerID := r.order.PartnerID()
	if partnerID == nil {
		return nil
	}
	r.partnerFeedFor = partnerID
	return partnerID
}

func (r *Reconciler) subscribePartner(partnerID kernel.UUID) {
	unsubscribe, err := r.deps.PartnerFeed.Subscribe(r.ctx, partnerID, r.ApplyPartnerBroadcast)
	if err != nil {
		r.logger.WarnContext(r.ctx, "Partner location feed unavailable", "partner_id", partnerID.String(), "error", err)
		r.mu.Lock()
		r.partnerFeedFor = nil
		r.mu.Unlock()
		return
	}
	r.keep(unsubscribe)
}

// planRouteLocked starts a route computation when the active endpoints moved
// more than the drift distance, or when the previous computation failed.
func (r *Reconciler) planRouteLocked(now time.Time) {
	if r.order == nil {
		return
	}

	var partner, customer *kernel.Coordinate
	if p, ok := r.selectLocked(order.Partner, now); ok {
		c := p.Coordinate
		partner = &c
	}
	if p, ok := r.selectLocked(order.Customer, now); ok {
		c := p.Coordinate
		customer = &c
	}
	ends, ok := r.planner.Route(r.order, partner, customer)
	if !ok {
		return
	}
	if r.routedEnds != nil && !r.routeRetry && !drifted(*r.routedEnds, ends, r.cfg.RouteDriftMeters) {
		return
	}

	r.routedEnds = &ends
	r.routeRetry = false
	r.routeGen++

	if r.deps.Routes == nil {
		route, err := tracking.StraightRoute(ends.Source, ends.Target)
		if err == nil {
			r.route = &route
		}
		return
	}

	r.background.Add(1)
	go r.computeRoute(ends, r.routeGen)
}

// computeRoute runs off the lock. A failure keeps the previous route and marks
// it for retry on the next event; a result for superseded endpoints is dropped.
func (r *Reconciler) computeRoute(ends services.Endpoints, gen uint64) {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.RouteTimeout)
	route, err := r.deps.Routes.Route(ctx, ends.Source, ends.Target)
	cancel()

	r.mu.Lock()
	current := !r.closed && !r.terminal && gen == r.routeGen
	updated := false
	if current && err != nil {
		r.routeRetry = true
	}
	if current && err == nil {
		r.route = &route
		updated = true
	}
	r.mu.Unlock()
	r.background.Done()

	if current && err != nil {
		r.logger.WarnContext(r.ctx, "Route computation failed, keeping previous route", "error", err)
	}
	if updated {
		r.notify()
	}
}

func (r *Reconciler) broadcast(partnerID kernel.UUID, coordinate kernel.Coordinate) {
	defer r.background.Done()
	if err := r.deps.PartnerSink.Broadcast(r.ctx, partnerID, coordinate); err != nil {
		r.logger.WarnContext(r.ctx, "Partner location broadcast failed",
			"partner_id", partnerID.String(), "error", err)
	}
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	callbacks := make([]func(), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, r.listeners[id])
	}
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func drifted(prev, next services.Endpoints, meters float64) bool {
	return kernel.Distance(prev.Source, next.Source) > meters ||
		kernel.Distance(prev.Target, next.Target) > meters
}

var _ Schedulable = (*Reconciler)(nil)
