// Package service manages auxiliary services: shared, independently
// lifecycle-managed dependencies a component can use. The Registry owns every
// registration and enforces the Added → Enabled ⇄ Disabled → Removed state
// machine, firing lifecycle hooks exactly once per transition.
package service

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/lifecycle"
	"github.com/c360/flowtest/property"
)

// InitializationContext is handed to a service's initialization hook when it
// is added to the harness.
type InitializationContext struct {
	Identifier string
	Logger     *slog.Logger
}

// Service is the contract every auxiliary service implements.
type Service interface {
	// Initialize is called once when the service is added.
	Initialize(ctx InitializationContext) error
	// PropertyDescriptor resolves a property name to its descriptor.
	PropertyDescriptor(name string) (property.Descriptor, bool)
	// Validate checks the service's current configuration.
	Validate(vctx property.ValidationContext) []property.ValidationResult
}

// Lifecycle capability interfaces. A service implements whichever transitions
// it cares about; BindLifecycle probes them in a fixed order.
type (
	// AddedHandler fires when the service is added to the harness
	AddedHandler interface {
		OnAdded() error
	}
	// EnabledHandler fires when the service is enabled, with the
	// configuration view built from its current properties
	EnabledHandler interface {
		OnEnabled(ctx *ConfigurationContext) error
	}
	// DisabledHandler fires when the service is disabled
	DisabledHandler interface {
		OnDisabled() error
	}
	// RemovedHandler fires when the service is removed
	RemovedHandler interface {
		OnRemoved() error
	}
)

// BindLifecycle builds the phase table for a service: capability interfaces
// first, in declaration order, then any hooks the service binds itself via
// lifecycle.Binder. The resulting order is stable for a given service type.
func BindLifecycle(identifier string, svc Service) *lifecycle.Bindings {
	b := lifecycle.NewBindings(identifier)

	if h, ok := svc.(AddedHandler); ok {
		b.Bind(lifecycle.PhaseAdded, func(_ ...any) error { return h.OnAdded() })
	}
	if h, ok := svc.(EnabledHandler); ok {
		b.Bind(lifecycle.PhaseEnabled, func(args ...any) error {
			cfg, err := configurationArg(args)
			if err != nil {
				return err
			}
			return h.OnEnabled(cfg)
		})
	}
	if h, ok := svc.(DisabledHandler); ok {
		b.Bind(lifecycle.PhaseDisabled, func(_ ...any) error { return h.OnDisabled() })
	}
	if h, ok := svc.(RemovedHandler); ok {
		b.Bind(lifecycle.PhaseRemoved, func(_ ...any) error { return h.OnRemoved() })
	}
	if binder, ok := svc.(lifecycle.Binder); ok {
		binder.BindLifecycle(b)
	}

	return b
}

// configurationArg extracts the configuration view the Enabled phase carries.
// Hooks reached through Invoke with a missing or mistyped argument report a
// configuration error instead of panicking.
func configurationArg(args []any) (*ConfigurationContext, error) {
	if len(args) == 0 {
		return nil, errors.WrapConfig(
			fmt.Errorf("%w: enabled phase invoked without a configuration view", errors.ErrInvalidConfig),
			"Service", "BindLifecycle", "argument check")
	}
	cfg, ok := args[0].(*ConfigurationContext)
	if !ok {
		return nil, errors.WrapConfig(
			fmt.Errorf("%w: enabled phase argument is %T, not a configuration view", errors.ErrInvalidConfig, args[0]),
			"Service", "BindLifecycle", "argument check")
	}
	return cfg, nil
}

// ConfigurationContext is the read-only view of a service's configuration at
// the moment it was enabled. Property lookups fall back to descriptor defaults.
type ConfigurationContext struct {
	identifier    string
	properties    map[string]string
	descriptorFor func(name string) (property.Descriptor, bool)
}

// Identifier returns the service's registration identifier.
func (c *ConfigurationContext) Identifier() string {
	return c.identifier
}

// Property returns the configured value for a property name, falling back to
// the descriptor's default when the property was never set.
func (c *ConfigurationContext) Property(name string) (string, bool) {
	if value, ok := c.properties[name]; ok {
		return value, true
	}
	if d, ok := c.descriptorFor(name); ok && d.DefaultValue != "" {
		return d.DefaultValue, true
	}
	return "", false
}

// Properties returns a copy of all explicitly configured property values.
func (c *ConfigurationContext) Properties() map[string]string {
	result := make(map[string]string, len(c.properties))
	maps.Copy(result, c.properties)
	return result
}

var _ property.ValidationContext = (*ConfigurationContext)(nil)
