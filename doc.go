// Package cid wires a scoped client id service from configuration.
//
// A service resolves, per origin scope, the identifier assigned to the current
// device by a remote identity service. It keeps a single security token in a
// token store (in memory, or a cookie jar persisted through afs), lets only one
// resolution talk to the network at a time and shares each outcome with every
// caller waiting on the same scope.
//
// Example:
//
//	svc, _ := cid.New(ctx, &cid.Options{StoreURL: "/tmp/cid.jar"})
//	result, err := svc.ResolveContext(ctx, "publisher-scope", apiKey)
//
// Options can be read from YAML with LoadOptions, and the API key may be kept
// in an encrypted scy secret.
package cid
