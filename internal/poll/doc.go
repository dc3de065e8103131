// Package poll follows long-running server operations until they finish.
//
// # Lifecycle
//
// Poll returns a Handle right away and drives it from a background
// goroutine:
//
//	Pending ──> Polling ──┬──> Resolved   check accepted a response
//	              ↑   │   ├──> Rejected   a GET failed, or ctx was cancelled
//	              └───┘   └──> Cancelled  Handle.Cancel was called
//	          check false,
//	          wait interval
//
// At most one GET is outstanding per handle. The next cycle starts only
// after the previous GET settled and the interval (one second unless
// configured) elapsed, so cycles are strictly sequential.
//
// Delays come from a backoff.BackOff created per poll. WithInterval keeps it
// constant; WithBackOff plugs in any other policy. When that policy returns
// backoff.Stop the handle is rejected with ErrGaveUp.
//
// # Cancellation
//
// Handle.Cancel sets a flag that is checked at the top of every cycle and
// again when a GET comes back. It never interrupts a GET in flight. Once the
// flag is seen the goroutine exits without settling the handle: Done is never
// closed and Wait only returns through its own context. Callers treat this
// as "no further notification", not as an error.
//
// # Usage Example
//
//	h := poll.New(client).Poll(ctx, "clients/C.1/flows/F:1", nil, nil)
//	defer h.Cancel()
//	resp, err := h.Wait(ctx)
package poll
