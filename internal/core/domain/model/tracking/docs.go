// Package tracking holds the value objects of live order tracking:
// positions per actor, their sources, the accuracy gate applied to device
// fixes, simulated legs and cached routes.
//
// Nothing here is shared mutable state. The application layer reconciler owns
// the mutable position map and uses these types to compute its contents.
package tracking
