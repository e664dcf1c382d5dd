// Package guard holds small construction-time helpers shared by the domain
// model. ConstructorGuard lets value objects detect zero values that were
// never passed through their constructor.
package guard
