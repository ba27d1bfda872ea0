// Package store persists the client identifier token.
//
// Store wraps a Backend (any key-value store with expiry) and exposes the token as
// a typed token.Token. MemoryBackend keeps entries in-process; JarBackend keeps them
// as cookies of one origin in an http.CookieJar, which can be made durable and
// shared between processes with transport.FileJar.
package store
