package cid

import (
	"context"
	"sync"

	"github.com/viant/cid/resolver"
)

// Listener is notified once a service is published.
type Listener func(service *resolver.Service)

// Registry hands a published service to listeners registered before or after publication.
type Registry struct {
	mu        sync.Mutex
	service   *resolver.Service
	listeners []Listener
}

// OnLoad registers listener; it runs immediately when a service is already published.
func (r *Registry) OnLoad(listener Listener) {
	r.mu.Lock()
	service := r.service
	if service == nil {
		r.listeners = append(r.listeners, listener)
	}
	r.mu.Unlock()
	if service != nil {
		listener(service)
	}
}

// Publish makes service available and notifies pending listeners in registration order.
func (r *Registry) Publish(service *resolver.Service) {
	r.mu.Lock()
	r.service = service
	pending := r.listeners
	r.listeners = nil
	r.mu.Unlock()
	for _, listener := range pending {
		listener(service)
	}
}

// Service returns the published service, if any.
func (r *Registry) Service() (*resolver.Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.service, r.service != nil
}

// Default is the process wide registry.
var Default = &Registry{}

// OnLoad registers listener with the Default registry.
func OnLoad(listener Listener) {
	Default.OnLoad(listener)
}

// Load creates a service and publishes it to the Default registry.
func Load(ctx context.Context, options *Options) (*resolver.Service, error) {
	service, err := New(ctx, options)
	if err != nil {
		return nil, err
	}
	Default.Publish(service)
	return service, nil
}
