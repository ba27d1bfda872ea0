// Package token models the single value kept in the client identifier store.
//
// A stored value is either one of a small set of reserved sentinels describing
// the state of the last resolution (in flight, opted out, not found, failed) or an
// opaque security token issued by the identity service and replayed on the next
// request. Parse turns the raw stored string into a closed Token value so callers
// can switch over Kind exhaustively.
package token
