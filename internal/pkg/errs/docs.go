// Package errs provides the shared error taxonomy of the order tracking service.
//
// Every error type follows the same shape:
//   - a sentinel variable (ErrValueIsRequired, ErrConflict, ...)
//   - a struct carrying details, with New...Error and New...ErrorWithCause constructors
//   - Error() for the message and Unwrap() returning the sentinel
//
// Callers classify failures with errors.Is against the sentinels and with
// errors.As when they need the details. ConflictError is used for
// compare-and-swap writes that lost a race against another writer.
package errs
