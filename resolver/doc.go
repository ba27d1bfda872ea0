// Package resolver coordinates scoped client identifier resolution.
//
// A Service owns the map of in-flight resolutions keyed by scope. The first
// caller for a scope starts a resolution; callers arriving while it is pending are
// queued and receive the same result, in registration order. A resolution first
// waits until the shared token store no longer holds the retrieving marker (which
// may have been written by another process sharing the store), then decides from
// the stored token whether to answer from cache or to ask the identity service,
// and finally records the outcome in the store with the TTL for that outcome.
package resolver
