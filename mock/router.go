package mock

import (
	"net/http"
)

const (
	// Path is the primary client id endpoint path.
	Path = "/v1/publisher:getClientId"
	// AlternatePath is the endpoint path the primary endpoint redirects to.
	AlternatePath = "/alternate/v1/publisher:getClientId"
)

// Handler routes HTTP requests to the mock identity service endpoints.
type Handler struct {
	Service *IdentityService
}

// ServeHTTP dispatches incoming HTTP requests based on URL path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case Path:
		h.Service.serveClientID(w, r, true)
	case AlternatePath:
		h.Service.serveClientID(w, r, false)
	default:
		http.NotFound(w, r)
	}
}
