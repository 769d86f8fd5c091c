// Package health keeps a live picture of whether the flashcard service and the
// status service are reachable.
//
// A Poller probes both services concurrently once per interval and publishes the
// pair as a Snapshot. Consumers read Snapshot() or Subscribe to changes. Stopping
// a Handle guarantees no later writes, so probes still in flight at Stop time
// are dropped when they return.
package health
