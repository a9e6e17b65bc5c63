// Package lifecycle provides the phase tags and hook dispatch used to drive
// components and auxiliary services through their lifecycle contracts.
//
// Dispatch is built at registration time: each target gets a Bindings table
// mapping phases to an ordered list of hooks. Hooks are bound by probing the
// target's capability interfaces in a fixed order, optionally followed by the
// target's own Binder registration. There is no runtime introspection, and the
// hook order for a given target is stable across repeated invocations.
package lifecycle

import (
	"fmt"

	"github.com/c360/flowtest/errors"
)

// Phase is a named point in the component or service lifecycle at which
// registered hooks fire.
type Phase string

// Component phases
const (
	PhaseAdded       Phase = "added"
	PhaseScheduled   Phase = "scheduled"
	PhaseUnscheduled Phase = "unscheduled"
	PhaseStopped     Phase = "stopped"
	PhaseShutdown    Phase = "shutdown"
)

// Service phases (PhaseAdded is shared)
const (
	PhaseEnabled  Phase = "enabled"
	PhaseDisabled Phase = "disabled"
	PhaseRemoved  Phase = "removed"
)

// String returns the phase tag name.
func (p Phase) String() string {
	return string(p)
}

// Hook is one callable bound to a phase. The invoker passes the full argument
// list for the phase; adapters consume the subset their underlying method
// declares, so no-argument methods bind just as well as contextual ones.
type Hook func(args ...any) error

// Binder is implemented by targets that register hooks explicitly, beyond
// what their capability interfaces declare.
type Binder interface {
	BindLifecycle(b *Bindings)
}

// Bindings holds the ordered phase-to-hook table for one target. A Bindings
// is built once when the target is registered and is read-only afterwards;
// Invoke is driven from a single goroutine by the harness.
type Bindings struct {
	target string
	hooks  map[Phase][]Hook
}

// NewBindings creates an empty hook table for the named target.
func NewBindings(target string) *Bindings {
	return &Bindings{
		target: target,
		hooks:  make(map[Phase][]Hook),
	}
}

// Target returns the name the bindings were built for.
func (b *Bindings) Target() string {
	return b.target
}

// Bind appends a hook for the given phase. Hooks fire in bind order.
func (b *Bindings) Bind(phase Phase, hook Hook) {
	if hook == nil {
		return
	}
	b.hooks[phase] = append(b.hooks[phase], hook)
}

// HookCount returns the number of hooks bound to a phase.
func (b *Bindings) HookCount(phase Phase) int {
	return len(b.hooks[phase])
}

// Invoke fires every hook bound to the phase, in bind order, with the given
// arguments. Invocation stops at the first hook error; the error surfaces as
// a lifecycle invocation failure carrying the phase and the original cause.
// A phase with no bound hooks is a successful no-op.
func (b *Bindings) Invoke(phase Phase, args ...any) error {
	for _, hook := range b.hooks[phase] {
		if err := hook(args...); err != nil {
			return errors.WrapLifecycle(err, b.target, "Invoke", fmt.Sprintf("%s phase", phase))
		}
	}
	return nil
}
