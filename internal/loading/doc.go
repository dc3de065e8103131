// Package loading keeps track of requests that are in flight so a loading
// indicator can be shown while any of them is outstanding.
//
// Every dispatched API call takes a Token from an Indicator right before it
// is sent and hands it back exactly once when the call settles, whatever the
// outcome:
//
//	token := indicator.Start()
//	defer indicator.Stop(token)
//
// Registry is the concrete Indicator. It is safe for concurrent use and
// exposes a Snapshot for renderers, which poll it on their own cadence much
// like a UI polls a shared store. Stopping a token twice, or stopping a token
// the registry never issued, is a no-op, so one caller cannot release another
// caller's token by accident.
package loading
