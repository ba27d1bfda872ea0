// Package transport implements the timed JSON request executor used to talk to
// the identity assignment service.
//
// A Fetcher posts a Request, races the transport against a hard timeout and
// delivers exactly one outcome per call: a decoded Response or one of the errors
// declared in this package. A response carrying an alternateUrl is re-posted once
// to that endpoint. Cookies can be attached to every call with WithCookieJar;
// FileJar provides a jar that survives restarts and is shared between processes.
package transport
