// Package processor defines the contract for the unit of stream-processing
// logic under test: the trigger entry point, the optional lifecycle capability
// interfaces, and the process context the harness passes into both.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/lifecycle"
	"github.com/c360/flowtest/session"
)

// InitializationContext is handed to the component's initialization hook once,
// when the harness is constructed.
type InitializationContext struct {
	Identifier string
	Logger     *slog.Logger
}

// Processor is the unit of stream-processing logic under test. OnTrigger is
// one invocation of the core processing entry point: it obtains sessions from
// the provider, pulls flow files from the shared queue, and routes them to
// relationships.
type Processor interface {
	Initialize(ctx InitializationContext) error
	OnTrigger(ctx context.Context, pc *Context, sessions session.Provider) error
}

// SerialTrigger marks a processor that must be triggered one invocation at a
// time. The harness detects the marker at construction and pins the thread
// count to 1.
type SerialTrigger interface {
	Processor
	TriggerSerially()
}

// Lifecycle capability interfaces. A processor implements whichever phases it
// cares about; BindLifecycle probes them in a fixed order.
type (
	// AddedHandler fires once when the harness is constructed
	AddedHandler interface {
		OnAdded() error
	}
	// ScheduledHandler fires before the trigger iterations of a run
	ScheduledHandler interface {
		OnScheduled(pc *Context) error
	}
	// UnscheduledHandler fires once the first iteration of a run finishes
	UnscheduledHandler interface {
		OnUnscheduled(pc *Context) error
	}
	// StoppedHandler fires after a run when stop-on-finish is set
	StoppedHandler interface {
		OnStopped() error
	}
	// ShutdownHandler fires on the harness's explicit Shutdown call
	ShutdownHandler interface {
		OnShutdown() error
	}
)

// BindLifecycle builds the phase table for a processor: capability interfaces
// first, in declaration order, then any hooks the processor binds itself via
// lifecycle.Binder. The order is deterministic and stable for a given type.
func BindLifecycle(p Processor) *lifecycle.Bindings {
	b := lifecycle.NewBindings(fmt.Sprintf("%T", p))

	if h, ok := p.(AddedHandler); ok {
		b.Bind(lifecycle.PhaseAdded, func(_ ...any) error { return h.OnAdded() })
	}
	if h, ok := p.(ScheduledHandler); ok {
		b.Bind(lifecycle.PhaseScheduled, func(args ...any) error {
			pc, err := contextArg(args)
			if err != nil {
				return err
			}
			return h.OnScheduled(pc)
		})
	}
	if h, ok := p.(UnscheduledHandler); ok {
		b.Bind(lifecycle.PhaseUnscheduled, func(args ...any) error {
			pc, err := contextArg(args)
			if err != nil {
				return err
			}
			return h.OnUnscheduled(pc)
		})
	}
	if h, ok := p.(StoppedHandler); ok {
		b.Bind(lifecycle.PhaseStopped, func(_ ...any) error { return h.OnStopped() })
	}
	if h, ok := p.(ShutdownHandler); ok {
		b.Bind(lifecycle.PhaseShutdown, func(_ ...any) error { return h.OnShutdown() })
	}
	if binder, ok := p.(lifecycle.Binder); ok {
		binder.BindLifecycle(b)
	}

	return b
}

// contextArg extracts the process context a contextual phase carries. Hooks
// reached through Invoke with a missing or mistyped argument report a
// configuration error instead of panicking.
func contextArg(args []any) (*Context, error) {
	if len(args) == 0 {
		return nil, errors.WrapConfig(
			fmt.Errorf("%w: contextual phase invoked without a process context", errors.ErrInvalidConfig),
			"Processor", "BindLifecycle", "argument check")
	}
	pc, ok := args[0].(*Context)
	if !ok {
		return nil, errors.WrapConfig(
			fmt.Errorf("%w: contextual phase argument is %T, not a process context", errors.ErrInvalidConfig, args[0]),
			"Processor", "BindLifecycle", "argument check")
	}
	return pc, nil
}

// IsSerialTrigger reports whether a processor declares the serial constraint.
func IsSerialTrigger(p Processor) bool {
	_, ok := p.(SerialTrigger)
	return ok
}
