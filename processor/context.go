package processor

import (
	"maps"
	"sync"

	"github.com/c360/flowtest/property"
	"github.com/c360/flowtest/service"
)

// Context is the process context the harness passes to the trigger entry
// point and the contextual lifecycle phases. It carries the component's
// configured properties, annotation data, relationship availability, and
// access to the auxiliary-service registry. Safe for concurrent reads from
// worker tasks.
type Context struct {
	services *service.Registry

	mu             sync.Mutex
	properties     map[string]string
	annotationData string
	unavailable    map[string]struct{}
}

// NewContext creates a process context bound to the given service registry.
func NewContext(services *service.Registry) *Context {
	return &Context{
		services:    services,
		properties:  make(map[string]string),
		unavailable: make(map[string]struct{}),
	}
}

// SetProperty stores a component property value.
func (c *Context) SetProperty(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.properties[name] = value
}

// RemoveProperty deletes a component property and reports whether it was set.
func (c *Context) RemoveProperty(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.properties[name]
	delete(c.properties, name)
	return ok
}

// Property returns the configured value for a property name.
func (c *Context) Property(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.properties[name]
	return value, ok
}

// Properties returns a copy of all configured property values.
func (c *Context) Properties() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]string, len(c.properties))
	maps.Copy(result, c.properties)
	return result
}

// SetAnnotationData stores free-text annotation data for the component.
func (c *Context) SetAnnotationData(data string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.annotationData = data
}

// AnnotationData returns the stored annotation data.
func (c *Context) AnnotationData() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.annotationData
}

// ControllerService returns the auxiliary service registered under the given
// identifier. Unknown identifiers are a hard failure.
func (c *Context) ControllerService(identifier string) (service.Service, error) {
	return c.services.Service(identifier)
}

// IsControllerServiceEnabled reports whether a known service is enabled.
func (c *Context) IsControllerServiceEnabled(identifier string) (bool, error) {
	return c.services.IsEnabled(identifier)
}

// SetRelationshipUnavailable marks a relationship as having no available
// destination, for components that check downstream availability.
func (c *Context) SetRelationshipUnavailable(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable[name] = struct{}{}
}

// SetRelationshipAvailable clears the unavailable mark for a relationship.
func (c *Context) SetRelationshipAvailable(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unavailable, name)
}

// IsRelationshipAvailable reports whether a relationship has an available
// destination. Relationships are available unless marked otherwise.
func (c *Context) IsRelationshipAvailable(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, unavailable := c.unavailable[name]
	return !unavailable
}

var _ property.ValidationContext = (*Context)(nil)
