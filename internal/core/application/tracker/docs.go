// Package tracker reconciles the live state of active orders and serves
// renderable scenes to map views.
//
// The package includes:
//   - Reconciler: the single writer of actor positions for one order. It merges
//     order updates (poll or push), device fixes, partner broadcasts and
//     simulation ticks, and keeps the route snapshot current.
//   - Registry: shares one Reconciler per order between views, reference counted.
//   - MapSession: one map view; owns its camera latch and device watch.
//   - Tracker: the facade used by transports; state machine entry points plus scenes.
//
// Every input is an event applied under the reconciler's lock, last arrival wins.
// Listeners are called after the lock is released. Closing a session releases
// its watch and its registry reference; the last release closes the reconciler,
// which stops its scheduled jobs and unsubscribes every feed.
package tracker
