// Package mock provides an in-memory identity assignment service that
// facilitates testing of client identifier resolution.
//
// The service issues signed security tokens, derives stable client identifiers
// from them per scope, and can be configured to redirect to its alternate
// endpoint, report opt-outs or missing identifiers, or fail.
package mock
