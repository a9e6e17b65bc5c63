// Package testutil provides configurable mock components and services for
// harness tests: func-field mocks with call counts for verification, and a
// pass-through processor that routes every queued flow file to "success".
package testutil

import (
	"context"
	"sync"

	"github.com/c360/flowtest/flowfile"
	"github.com/c360/flowtest/processor"
	"github.com/c360/flowtest/property"
	"github.com/c360/flowtest/service"
	"github.com/c360/flowtest/session"
)

// RelSuccess is the conventional success relationship used by the mocks.
var RelSuccess = flowfile.Relationship{Name: "success", Description: "processed flow files"}

// MockProcessor is a configurable component for harness tests. Behavior is
// overridden through func fields; call counts track lifecycle firings.
type MockProcessor struct {
	mu sync.Mutex

	InitializeFunc func(ctx processor.InitializationContext) error
	TriggerFunc    func(ctx context.Context, pc *processor.Context, sessions session.Provider) error

	OnAddedFunc       func() error
	OnScheduledFunc   func(pc *processor.Context) error
	OnUnscheduledFunc func(pc *processor.Context) error
	OnStoppedFunc     func() error
	OnShutdownFunc    func() error

	InitializeCalls  int
	TriggerCalls     int
	AddedCalls       int
	ScheduledCalls   int
	UnscheduledCalls int
	StoppedCalls     int
	ShutdownCalls    int
}

// NewMockProcessor creates a mock whose trigger is a no-op.
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{}
}

// NewPassthroughProcessor creates a mock that drains the input queue and
// transfers every flow file unchanged to the success relationship.
func NewPassthroughProcessor() *MockProcessor {
	return &MockProcessor{
		TriggerFunc: func(_ context.Context, _ *processor.Context, sessions session.Provider) error {
			s := sessions.CreateSession()
			for ff := s.Get(); ff != nil; ff = s.Get() {
				if err := s.Transfer(ff, RelSuccess); err != nil {
					return err
				}
			}
			return s.Commit()
		},
	}
}

// Initialize implements processor.Processor.
func (m *MockProcessor) Initialize(ctx processor.InitializationContext) error {
	m.mu.Lock()
	m.InitializeCalls++
	fn := m.InitializeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// OnTrigger implements processor.Processor.
func (m *MockProcessor) OnTrigger(ctx context.Context, pc *processor.Context, sessions session.Provider) error {
	m.mu.Lock()
	m.TriggerCalls++
	fn := m.TriggerFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, pc, sessions)
	}
	return nil
}

// OnAdded implements processor.AddedHandler.
func (m *MockProcessor) OnAdded() error {
	m.mu.Lock()
	m.AddedCalls++
	fn := m.OnAddedFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// OnScheduled implements processor.ScheduledHandler.
func (m *MockProcessor) OnScheduled(pc *processor.Context) error {
	m.mu.Lock()
	m.ScheduledCalls++
	fn := m.OnScheduledFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(pc)
	}
	return nil
}

// OnUnscheduled implements processor.UnscheduledHandler.
func (m *MockProcessor) OnUnscheduled(pc *processor.Context) error {
	m.mu.Lock()
	m.UnscheduledCalls++
	fn := m.OnUnscheduledFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(pc)
	}
	return nil
}

// OnStopped implements processor.StoppedHandler.
func (m *MockProcessor) OnStopped() error {
	m.mu.Lock()
	m.StoppedCalls++
	fn := m.OnStoppedFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// OnShutdown implements processor.ShutdownHandler.
func (m *MockProcessor) OnShutdown() error {
	m.mu.Lock()
	m.ShutdownCalls++
	fn := m.OnShutdownFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// Counts returns a snapshot of all call counters.
func (m *MockProcessor) Counts() (trigger, scheduled, unscheduled, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TriggerCalls, m.ScheduledCalls, m.UnscheduledCalls, m.StoppedCalls
}

// SerialMockProcessor is a MockProcessor that declares the serial-trigger
// constraint.
type SerialMockProcessor struct {
	MockProcessor
}

// NewSerialMockProcessor creates a serially triggered mock.
func NewSerialMockProcessor() *SerialMockProcessor {
	return &SerialMockProcessor{}
}

// TriggerSerially marks the processor as one-invocation-at-a-time.
func (m *SerialMockProcessor) TriggerSerially() {}

// MockService is a configurable auxiliary service for registry tests.
type MockService struct {
	mu sync.Mutex

	InitializeFunc func(ctx service.InitializationContext) error
	ValidateFunc   func(vctx property.ValidationContext) []property.ValidationResult

	OnAddedFunc    func() error
	OnEnabledFunc  func(ctx *service.ConfigurationContext) error
	OnDisabledFunc func() error
	OnRemovedFunc  func() error

	// Descriptors is the service's property set, keyed by property name.
	Descriptors map[string]property.Descriptor

	InitializeCalls int
	AddedCalls      int
	EnabledCalls    int
	DisabledCalls   int
	RemovedCalls    int

	// LastConfiguration is the view passed to the most recent OnEnabled.
	LastConfiguration *service.ConfigurationContext
}

// NewMockService creates a mock service with the given property descriptors.
func NewMockService(descriptors ...property.Descriptor) *MockService {
	byName := make(map[string]property.Descriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}
	return &MockService{Descriptors: byName}
}

// Initialize implements service.Service.
func (m *MockService) Initialize(ctx service.InitializationContext) error {
	m.mu.Lock()
	m.InitializeCalls++
	fn := m.InitializeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// PropertyDescriptor implements service.Service.
func (m *MockService) PropertyDescriptor(name string) (property.Descriptor, bool) {
	d, ok := m.Descriptors[name]
	return d, ok
}

// Validate implements service.Service. By default every configured property
// is validated against its descriptor.
func (m *MockService) Validate(vctx property.ValidationContext) []property.ValidationResult {
	m.mu.Lock()
	fn := m.ValidateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(vctx)
	}

	var results []property.ValidationResult
	for _, d := range m.Descriptors {
		value, _ := vctx.Property(d.Name)
		results = append(results, d.Validate(value, vctx))
	}
	return results
}

// OnAdded implements service.AddedHandler.
func (m *MockService) OnAdded() error {
	m.mu.Lock()
	m.AddedCalls++
	fn := m.OnAddedFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// OnEnabled implements service.EnabledHandler.
func (m *MockService) OnEnabled(ctx *service.ConfigurationContext) error {
	m.mu.Lock()
	m.EnabledCalls++
	m.LastConfiguration = ctx
	fn := m.OnEnabledFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// OnDisabled implements service.DisabledHandler.
func (m *MockService) OnDisabled() error {
	m.mu.Lock()
	m.DisabledCalls++
	fn := m.OnDisabledFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// OnRemoved implements service.RemovedHandler.
func (m *MockService) OnRemoved() error {
	m.mu.Lock()
	m.RemovedCalls++
	fn := m.OnRemovedFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}
