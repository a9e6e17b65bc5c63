// Package harness provides the test-execution harness for a stream-processing
// component: the Runner façade tests interact with, and the concurrent
// invocation engine that drives the component through its lifecycle contract
// (initialize → schedule → trigger × N → unschedule → stop) against an
// in-memory queue and session model.
package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/flowfile"
	"github.com/c360/flowtest/lifecycle"
	"github.com/c360/flowtest/metric"
	"github.com/c360/flowtest/processor"
	"github.com/c360/flowtest/property"
	"github.com/c360/flowtest/service"
	"github.com/c360/flowtest/session"
)

// Runner drives one component through repeated runs against in-memory
// equivalents of the real runtime: a shared input queue, a tracking session
// factory, and an auxiliary-service registry. A Runner supports strictly
// sequential run calls; concurrent runs on the same instance are not
// supported.
type Runner struct {
	proc       processor.Processor
	identifier string
	bindings   *lifecycle.Bindings
	pctx       *processor.Context
	shared     *session.SharedState
	sessions   *session.Factory
	services   *service.Registry
	logger     *slog.Logger
	metrics    *metric.Metrics
	serial     bool

	invocations atomic.Int64

	runMu sync.Mutex

	mu      sync.Mutex
	threads int
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithLogger sets the logger the runner and its service registry log through.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics wires the harness core metrics so the engine records trigger
// counts, durations, and lifecycle failures.
func WithMetrics(registry *metric.Registry) Option {
	return func(r *Runner) {
		if registry != nil {
			r.metrics = registry.CoreMetrics()
		}
	}
}

// New creates a runner for the given component: builds the shared state and
// session factory, initializes the component, fires the Added phase, and
// detects the serial-trigger constraint.
func New(proc processor.Processor, opts ...Option) (*Runner, error) {
	if proc == nil {
		return nil, errors.WrapConfig(errors.ErrInvalidConfig, "Runner", "New", "processor validation")
	}

	r := &Runner{
		proc:       proc,
		identifier: uuid.NewString(),
		shared:     session.NewSharedState(),
		logger:     slog.Default(),
		serial:     processor.IsSerialTrigger(proc),
		threads:    1,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.sessions = session.NewFactory(r.shared)
	r.services = service.NewRegistry(r.logger)
	r.pctx = processor.NewContext(r.services)

	initCtx := processor.InitializationContext{
		Identifier: r.identifier,
		Logger:     r.logger.With("processor", fmt.Sprintf("%T", proc)),
	}
	if err := proc.Initialize(initCtx); err != nil {
		return nil, errors.Wrap(err, "Runner", "New", "processor initialization")
	}

	r.bindings = processor.BindLifecycle(proc)
	if err := r.bindings.Invoke(lifecycle.PhaseAdded); err != nil {
		r.observeLifecycleFailure(lifecycle.PhaseAdded)
		return nil, errors.Wrap(err, "Runner", "New", "added phase")
	}

	return r, nil
}

// Processor returns the component under test.
func (r *Runner) Processor() processor.Processor {
	return r.proc
}

// Context returns the process context passed to the component.
func (r *Runner) Context() *processor.Context {
	return r.pctx
}

// SessionProvider returns the provider handed to the trigger entry point.
func (r *Runner) SessionProvider() session.Provider {
	return r.sessions
}

// SetThreadCount configures the worker pool size for subsequent runs. Raising
// it above 1 for a serially triggered component is a configuration error
// reported immediately.
func (r *Runner) SetThreadCount(threads int) error {
	if threads < 1 {
		msg := fmt.Errorf("%w: got %d", errors.ErrInvalidThreads, threads)
		return errors.WrapConfig(msg, "Runner", "SetThreadCount", "thread count validation")
	}
	if threads > 1 && r.serial {
		msg := fmt.Errorf("%w: thread count must stay at 1", errors.ErrSerialOnly)
		return errors.WrapConfig(msg, "Runner", "SetThreadCount", "serial constraint check")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads = threads
	return nil
}

// ThreadCount returns the configured worker pool size.
func (r *Runner) ThreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threads
}

// Invocations returns the total number of completed trigger attempts,
// successful or failed, across all runs of this harness instance.
func (r *Runner) Invocations() int64 {
	return r.invocations.Load()
}

// Enqueue places already materialized flow files onto the shared input queue.
func (r *Runner) Enqueue(flowFiles ...*flowfile.FlowFile) {
	for _, ff := range flowFiles {
		r.shared.Queue().Offer(ff)
	}
	r.observeQueueDepth()
}

// EnqueueBytes materializes a flow file from raw bytes and attributes and
// places it on the input queue.
func (r *Runner) EnqueueBytes(data []byte, attributes map[string]string) *flowfile.FlowFile {
	ff := flowfile.New(r.shared.NextID()).
		WithContent(data).
		WithAttributes(attributes)
	r.Enqueue(ff)
	return ff
}

// EnqueueReader materializes a flow file from a stream and attributes and
// places it on the input queue.
func (r *Runner) EnqueueReader(reader io.Reader, attributes map[string]string) (*flowfile.FlowFile, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Runner", "EnqueueReader", "read content")
	}
	return r.EnqueueBytes(data, attributes), nil
}

// EnqueueFile reads a file's content into a flow file. The filename attribute
// defaults to the path's base name when the caller didn't set it.
func (r *Runner) EnqueueFile(path string, attributes map[string]string) (*flowfile.FlowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Runner", "EnqueueFile", "read file")
	}

	merged := make(map[string]string, len(attributes)+1)
	for k, v := range attributes {
		merged[k] = v
	}
	if _, ok := merged[flowfile.CoreAttributeFilename]; !ok {
		merged[flowfile.CoreAttributeFilename] = filepath.Base(path)
	}
	return r.EnqueueBytes(data, merged), nil
}

// QueueSize returns the number of flow files waiting on the input queue.
func (r *Runner) QueueSize() int {
	return r.shared.Queue().Size()
}

// IsQueueEmpty reports whether the input queue is empty.
func (r *Runner) IsQueueEmpty() bool {
	return r.shared.Queue().IsEmpty()
}

// FlowFilesFor aggregates the flow files every session transferred to the
// named relationship, ordered by flow file id (creation order). Unseen
// relationships yield an empty slice.
func (r *Runner) FlowFilesFor(relationship string) []*flowfile.FlowFile {
	var result []*flowfile.FlowFile
	for _, s := range r.sessions.CreatedSessions() {
		result = append(result, s.FlowFilesFor(relationship)...)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID() < result[j].ID()
	})
	return result
}

// TransferCount returns the number of flow files transferred to the named
// relationship across all sessions. Unseen relationships count 0.
func (r *Runner) TransferCount(relationship string) int {
	count := 0
	for _, s := range r.sessions.CreatedSessions() {
		count += len(s.FlowFilesFor(relationship))
	}
	return count
}

// RemovedCount returns the number of flow files removed across all sessions.
func (r *Runner) RemovedCount() int {
	count := 0
	for _, s := range r.sessions.CreatedSessions() {
		count += s.RemovedCount()
	}
	return count
}

// CounterValue returns a named counter accumulated by sessions during runs.
func (r *Runner) CounterValue(name string) (int64, bool) {
	return r.shared.CounterValue(name)
}

// ProvenanceEvents returns every provenance event recorded so far.
func (r *Runner) ProvenanceEvents() []session.Event {
	return r.shared.Provenance().Events()
}

// ClearTransferState forgets all transfers recorded so far, so assertions for
// a follow-up run start from a clean slate.
func (r *Runner) ClearTransferState() {
	for _, s := range r.sessions.CreatedSessions() {
		s.ClearTransferState()
	}
}

// Services returns the auxiliary-service registry. The runner holds the only
// copy; façade helpers below delegate to it.
func (r *Runner) Services() *service.Registry {
	return r.services
}

// AddService registers an auxiliary service under a unique identifier.
func (r *Runner) AddService(identifier string, svc service.Service, properties map[string]string) error {
	return r.services.Add(identifier, svc, properties)
}

// EnableService enables a previously added service.
func (r *Runner) EnableService(identifier string) error {
	return r.services.Enable(identifier)
}

// DisableService disables an enabled service.
func (r *Runner) DisableService(identifier string) error {
	return r.services.Disable(identifier)
}

// RemoveService removes a disabled service.
func (r *Runner) RemoveService(identifier string) error {
	return r.services.Remove(identifier)
}

// SetServiceProperty validates and stores a service property value.
func (r *Runner) SetServiceProperty(identifier, name, value string) (property.ValidationResult, error) {
	return r.services.SetProperty(identifier, name, value)
}

// SetServiceAnnotationData stores annotation data on a disabled service.
func (r *Runner) SetServiceAnnotationData(identifier, data string) error {
	return r.services.SetAnnotationData(identifier, data)
}

// IsServiceEnabled reports whether a known service is enabled.
func (r *Runner) IsServiceEnabled(identifier string) (bool, error) {
	return r.services.IsEnabled(identifier)
}

// GetService returns the service registered under the identifier.
func (r *Runner) GetService(identifier string) (service.Service, error) {
	return r.services.Service(identifier)
}

func (r *Runner) observeLifecycleFailure(phase lifecycle.Phase) {
	if r.metrics != nil {
		r.metrics.ObserveLifecycleFailure(phase.String())
	}
}

func (r *Runner) observeQueueDepth() {
	if r.metrics != nil {
		r.metrics.QueueDepth.Set(float64(r.shared.Queue().Size()))
	}
}
