package service

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/lifecycle"
	"github.com/c360/flowtest/property"
)

// registration is one service's state inside the Registry: the instance, its
// resolved properties, the enabled flag, and its lifecycle hook table.
type registration struct {
	identifier     string
	service        Service
	enabled        bool
	properties     map[string]string
	annotationData string
	bindings       *lifecycle.Bindings
}

func (r *registration) configurationContext() *ConfigurationContext {
	props := make(map[string]string, len(r.properties))
	maps.Copy(props, r.properties)

	return &ConfigurationContext{
		identifier:    r.identifier,
		properties:    props,
		descriptorFor: r.service.PropertyDescriptor,
	}
}

// Registry tracks every auxiliary service added to the harness and enforces
// legal state transitions. Transitions are serialized under the registry
// lock; lifecycle hooks fire while the lock is held, so hooks must not call
// back into the registry.
type Registry struct {
	mu            sync.Mutex
	registrations map[string]*registration
	logger        *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		registrations: make(map[string]*registration),
		logger:        logger,
	}
}

// Add registers a service under a unique identifier: initializes it, resolves
// every supplied property name to a descriptor, fires the Added phase, and
// stores the registration in the Disabled state.
func (r *Registry) Add(identifier string, svc Service, properties map[string]string) error {
	if identifier == "" {
		return errors.WrapConfig(errors.ErrInvalidConfig, "Registry", "Add", "identifier validation")
	}
	if svc == nil {
		return errors.WrapConfig(errors.ErrInvalidConfig, "Registry", "Add", "service validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registrations[identifier]; exists {
		msg := fmt.Errorf("%w: %q", errors.ErrDuplicateService, identifier)
		return errors.WrapConfig(msg, "Registry", "Add", "duplicate identifier check")
	}

	initCtx := InitializationContext{
		Identifier: identifier,
		Logger:     r.logger.With("service", identifier),
	}
	if err := svc.Initialize(initCtx); err != nil {
		return errors.Wrap(err, "Registry", "Add", "service initialization")
	}

	resolvedProps := make(map[string]string, len(properties))
	for name, value := range properties {
		descriptor, ok := svc.PropertyDescriptor(name)
		if !ok {
			msg := fmt.Errorf("%w: %q for service %q", errors.ErrUnknownProperty, name, identifier)
			return errors.WrapConfig(msg, "Registry", "Add", "property resolution")
		}
		resolvedProps[descriptor.Name] = value
	}

	reg := &registration{
		identifier: identifier,
		service:    svc,
		properties: resolvedProps,
		bindings:   BindLifecycle(identifier, svc),
	}

	if err := reg.bindings.Invoke(lifecycle.PhaseAdded); err != nil {
		return errors.Wrap(err, "Registry", "Add", "added phase")
	}

	r.registrations[identifier] = reg
	r.logger.Debug("service added", "service", identifier)
	return nil
}

// Enable fires the Enabled phase with a configuration view built from the
// service's current properties. A hook failure aborts the enable and the
// service stays Disabled.
func (r *Registry) Enable(identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "Enable")
	if err != nil {
		return err
	}
	if reg.enabled {
		msg := fmt.Errorf("%w: %q cannot be enabled twice", errors.ErrServiceEnabled, identifier)
		return errors.WrapState(msg, "Registry", "Enable", "state check")
	}

	if err := reg.bindings.Invoke(lifecycle.PhaseEnabled, reg.configurationContext()); err != nil {
		return errors.Wrap(err, "Registry", "Enable", "enabled phase")
	}

	reg.enabled = true
	r.logger.Debug("service enabled", "service", identifier)
	return nil
}

// Disable fires the Disabled phase. The flag always ends Disabled, matching
// the idempotence expectation of the already-disabled path, but a hook error
// is still surfaced as a hard failure.
func (r *Registry) Disable(identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "Disable")
	if err != nil {
		return err
	}
	if !reg.enabled {
		msg := fmt.Errorf("%w: %q cannot be disabled twice", errors.ErrServiceDisabled, identifier)
		return errors.WrapState(msg, "Registry", "Disable", "state check")
	}

	invokeErr := reg.bindings.Invoke(lifecycle.PhaseDisabled)
	reg.enabled = false

	if invokeErr != nil {
		return errors.Wrap(invokeErr, "Registry", "Disable", "disabled phase")
	}
	r.logger.Debug("service disabled", "service", identifier)
	return nil
}

// Remove deletes a registration. The service must already be Disabled; the
// Removed phase fires exactly once before deletion.
func (r *Registry) Remove(identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "Remove")
	if err != nil {
		return err
	}
	if reg.enabled {
		msg := fmt.Errorf("%w: %q must be disabled before removal", errors.ErrServiceEnabled, identifier)
		return errors.WrapState(msg, "Registry", "Remove", "state check")
	}

	if err := reg.bindings.Invoke(lifecycle.PhaseRemoved); err != nil {
		return errors.Wrap(err, "Registry", "Remove", "removed phase")
	}

	delete(r.registrations, identifier)
	r.logger.Debug("service removed", "service", identifier)
	return nil
}

// SetProperty validates and stores a property value. The service must be
// Disabled. An unknown property name yields an invalid ValidationResult
// rather than an error; a known name is validated against its descriptor and
// stored regardless of the validation outcome, mirroring how operators adjust
// configuration before re-validating.
func (r *Registry) SetProperty(identifier, name, value string) (property.ValidationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.mutableRegistration(identifier, "SetProperty")
	if err != nil {
		return property.ValidationResult{}, err
	}

	descriptor, ok := reg.service.PropertyDescriptor(name)
	if !ok {
		return property.ValidationResult{
			Subject:     "Invalid property",
			Input:       name,
			Explanation: fmt.Sprintf("%s is not a known property for service %q", name, identifier),
		}, nil
	}

	result := descriptor.Validate(value, reg.configurationContext())
	reg.properties[descriptor.Name] = value
	return result, nil
}

// SetAnnotationData stores free-text annotation data. Disabled state required.
func (r *Registry) SetAnnotationData(identifier, data string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.mutableRegistration(identifier, "SetAnnotationData")
	if err != nil {
		return err
	}
	reg.annotationData = data
	return nil
}

// IsEnabled reports whether a known service is enabled.
func (r *Registry) IsEnabled(identifier string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "IsEnabled")
	if err != nil {
		return false, err
	}
	return reg.enabled, nil
}

// Service returns the registered service instance for an identifier.
func (r *Registry) Service(identifier string) (Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "Service")
	if err != nil {
		return nil, err
	}
	return reg.service, nil
}

// Properties returns a copy of the explicitly configured property values.
func (r *Registry) Properties(identifier string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "Properties")
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(reg.properties))
	maps.Copy(result, reg.properties)
	return result, nil
}

// AnnotationData returns the stored annotation data.
func (r *Registry) AnnotationData(identifier string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "AnnotationData")
	if err != nil {
		return "", err
	}
	return reg.annotationData, nil
}

// Validate runs the service's validate operation against its current
// configuration view and returns the results.
func (r *Registry) Validate(identifier string) ([]property.ValidationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.lookup(identifier, "Validate")
	if err != nil {
		return nil, err
	}
	return reg.service.Validate(reg.configurationContext()), nil
}

// Identifiers returns the identifiers of every current registration.
func (r *Registry) Identifiers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]string, 0, len(r.registrations))
	for id := range r.registrations {
		result = append(result, id)
	}
	return result
}

func (r *Registry) lookup(identifier, method string) (*registration, error) {
	reg, exists := r.registrations[identifier]
	if !exists {
		msg := fmt.Errorf("%w: %q", errors.ErrUnknownService, identifier)
		return nil, errors.WrapConfig(msg, "Registry", method, "identifier lookup")
	}
	return reg, nil
}

func (r *Registry) mutableRegistration(identifier, method string) (*registration, error) {
	reg, err := r.lookup(identifier, method)
	if err != nil {
		return nil, err
	}
	if reg.enabled {
		msg := fmt.Errorf("%w: %q cannot be modified while enabled", errors.ErrServiceEnabled, identifier)
		return nil, errors.WrapState(msg, "Registry", method, "mutability check")
	}
	return reg, nil
}
