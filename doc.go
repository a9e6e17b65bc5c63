// Package flowtest is a test-execution harness for stream-processing
// components. It drives a component through its full lifecycle contract
// against in-memory stand-ins for the production runtime, so component logic
// can be exercised in ordinary Go tests without a running data flow.
//
// # Architecture
//
// The harness is layered around one façade:
//
//   - harness: the Runner façade and the concurrent invocation engine.
//     A run fires the Scheduled phase, submits N trigger tasks to a worker
//     pool, fires Unscheduled after the first completed attempt, and fires
//     Stopped on finish.
//   - processor: the component contract. OnTrigger is the processing entry
//     point; optional capability interfaces opt into lifecycle phases.
//   - session: the transactional unit-of-work model. Sessions pull flow
//     files from the shared queue, route them to relationships, and record
//     provenance; commit enforces complete accounting.
//   - flowfile: the immutable unit-of-work carrier (id, attributes, content)
//     and the shared input queue.
//   - service: auxiliary services with an Added → Enabled ⇄ Disabled →
//     Removed state machine and per-transition hooks.
//   - property: property descriptors, allowable values, and validation.
//   - lifecycle: the phase/hook tables both components and services bind to.
//   - metric: prometheus instrumentation for triggers, runs, and failures.
//   - testutil: configurable mock components and services.
//
// # Usage
//
//	r, err := harness.New(myProcessor)
//	if err != nil { ... }
//	r.EnqueueBytes([]byte("payload"), map[string]string{"filename": "in.txt"})
//	if err := r.Run(1); err != nil { ... }
//	r.AssertAllTransferred(t, "success", 1)
package flowtest
