// Package responder builds and answers mDNS query-answers for a set of
// locally registered services.
package responder

import (
	"fmt"
	"sync"
)

// Registry holds the services a Responder answers for, keyed by instance
// name. Reads (serving queries) vastly outnumber writes (registration), so
// it is backed by a sync.RWMutex rather than a plain Mutex.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Service
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]*Service),
	}
}

// Register adds a service. It returns an error if a service with the same
// InstanceName is already registered.
func (r *Registry) Register(service *Service) error {
	if service == nil {
		return fmt.Errorf("cannot register nil service")
	}
	if service.InstanceName == "" {
		return fmt.Errorf("service InstanceName cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[service.InstanceName]; exists {
		return fmt.Errorf("service with InstanceName %q already registered", service.InstanceName)
	}
	r.services[service.InstanceName] = service
	return nil
}

// Get retrieves a service by instance name.
func (r *Registry) Get(instanceName string) (*Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	service, exists := r.services[instanceName]
	return service, exists
}

// Remove removes a service from the registry.
func (r *Registry) Remove(instanceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[instanceName]; !exists {
		return fmt.Errorf("service with InstanceName %q not found", instanceName)
	}
	delete(r.services, instanceName)
	return nil
}

// List returns every registered instance name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	return names
}

// ByServiceType returns every service registered under the given service
// type (e.g. "_http._tcp.local.").
func (r *Registry) ByServiceType(serviceType string) []*Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Service
	for _, s := range r.services {
		if s.ServiceType == serviceType {
			out = append(out, s)
		}
	}
	return out
}

// ListServiceTypes returns every unique registered service type, answering
// the RFC 6763 §9 enumeration query.
func (r *Registry) ListServiceTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	types := make([]string, 0, len(r.services))
	for _, service := range r.services {
		if !seen[service.ServiceType] {
			seen[service.ServiceType] = true
			types = append(types, service.ServiceType)
		}
	}
	return types
}

// Service is one registered mDNS service instance.
type Service struct {
	InstanceName string // e.g. "My Printer._http._tcp.local."
	ServiceType  string // e.g. "_http._tcp.local."
	Hostname     string // e.g. "host.local."
	Port         uint16
	IPv4         []byte
	IPv6         []byte
	TXT          map[string]string
}
