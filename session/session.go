// Package session provides the transactional view over the shared queue and
// content state for one trigger attempt. Components obtain sessions from a
// Provider; the harness queries every created session afterwards to aggregate
// transfer counts, removed counts, and provenance.
//
// All types in this package own their thread-safety: sessions may be used by
// concurrent worker tasks while the harness blocks awaiting their results.
package session

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/flowfile"
)

// SharedState is the per-harness state every session operates against: the
// id generator, the input queue, named counters, and the provenance log.
type SharedState struct {
	idGen      atomic.Uint64
	queue      *flowfile.Queue
	provenance *Provenance

	mu       sync.Mutex
	counters map[string]int64
}

// NewSharedState creates shared state with an empty queue and counters.
func NewSharedState() *SharedState {
	return &SharedState{
		queue:      flowfile.NewQueue(),
		provenance: NewProvenance(),
		counters:   make(map[string]int64),
	}
}

// Queue returns the shared input queue.
func (s *SharedState) Queue() *flowfile.Queue {
	return s.queue
}

// Provenance returns the shared provenance log.
func (s *SharedState) Provenance() *Provenance {
	return s.provenance
}

// NextID returns the next flow file id. Ids are monotonic per harness.
func (s *SharedState) NextID() uint64 {
	return s.idGen.Add(1)
}

// AdjustCounter adds delta to a named counter, creating it when absent.
func (s *SharedState) AdjustCounter(name string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += delta
}

// CounterValue returns a named counter's value and whether it exists.
func (s *SharedState) CounterValue(name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.counters[name]
	return value, ok
}

// Provider hands out sessions bound to the shared harness state. The trigger
// entry point receives a Provider rather than a concrete factory so components
// stay decoupled from session tracking.
type Provider interface {
	CreateSession() *Session
}

// Factory creates sessions and remembers every session it created so the
// harness can aggregate queries across a whole run.
type Factory struct {
	shared *SharedState

	mu      sync.Mutex
	created []*Session
}

// NewFactory creates a factory bound to the given shared state.
func NewFactory(shared *SharedState) *Factory {
	return &Factory{shared: shared}
}

// CreateSession creates and tracks a new session.
func (f *Factory) CreateSession() *Session {
	s := &Session{
		shared:      f.shared,
		known:       make(map[uint64]struct{}),
		transferred: make(map[string][]*flowfile.FlowFile),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, s)
	return s
}

// CreatedSessions returns a copy of every session created so far.
func (f *Factory) CreatedSessions() []*Session {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]*Session, len(f.created))
	copy(result, f.created)
	return result
}

// Session is a transactional view for one trigger attempt. Every flow file a
// session hands out must be transferred or removed before Commit.
type Session struct {
	shared *SharedState

	mu          sync.Mutex
	pulled      []*flowfile.FlowFile
	known       map[uint64]struct{}
	open        int
	transferred map[string][]*flowfile.FlowFile
	removed     int
	committed   bool
}

// Create makes a new empty flow file owned by this session.
func (s *Session) Create() *flowfile.FlowFile {
	ff := flowfile.New(s.shared.NextID())

	s.mu.Lock()
	s.known[ff.ID()] = struct{}{}
	s.open++
	s.mu.Unlock()

	s.shared.Provenance().Record(EventCreate, ff.ID(), "")
	return ff
}

// Get pulls the next flow file from the shared input queue, or nil when the
// queue is empty.
func (s *Session) Get() *flowfile.FlowFile {
	ff := s.shared.Queue().Poll()
	if ff == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulled = append(s.pulled, ff)
	s.known[ff.ID()] = struct{}{}
	s.open++
	return ff
}

// ImportFrom replaces the flow file's content with everything read from r and
// returns the updated flow file.
func (s *Session) ImportFrom(r io.Reader, ff *flowfile.FlowFile) (*flowfile.FlowFile, error) {
	if err := s.checkKnown(ff, "ImportFrom"); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "Session", "ImportFrom", "read content")
	}
	return ff.WithContent(data), nil
}

// Write replaces the flow file's content and returns the updated flow file.
func (s *Session) Write(ff *flowfile.FlowFile, data []byte) (*flowfile.FlowFile, error) {
	if err := s.checkKnown(ff, "Write"); err != nil {
		return nil, err
	}
	return ff.WithContent(data), nil
}

// PutAttribute sets one attribute and returns the updated flow file.
func (s *Session) PutAttribute(ff *flowfile.FlowFile, name, value string) (*flowfile.FlowFile, error) {
	return s.PutAllAttributes(ff, map[string]string{name: value})
}

// PutAllAttributes merges the given attributes and returns the updated flow file.
func (s *Session) PutAllAttributes(ff *flowfile.FlowFile, attrs map[string]string) (*flowfile.FlowFile, error) {
	if err := s.checkKnown(ff, "PutAllAttributes"); err != nil {
		return nil, err
	}
	return ff.WithAttributes(attrs), nil
}

// Transfer routes the flow file to the named relationship. The latest version
// passed here is what relationship queries return.
func (s *Session) Transfer(ff *flowfile.FlowFile, rel flowfile.Relationship) error {
	if err := s.checkKnown(ff, "Transfer"); err != nil {
		return err
	}
	if rel.Name == "" {
		return errors.WrapConfig(
			fmt.Errorf("relationship name is empty"), "Session", "Transfer", "relationship validation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferred[rel.Name] = append(s.transferred[rel.Name], ff)
	s.open--

	s.shared.Provenance().Record(EventSend, ff.ID(), rel.Name)
	return nil
}

// Remove drops the flow file from the flow.
func (s *Session) Remove(ff *flowfile.FlowFile) error {
	if err := s.checkKnown(ff, "Remove"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed++
	s.open--

	s.shared.Provenance().Record(EventDrop, ff.ID(), "")
	return nil
}

// AdjustCounter adds delta to a named counter on the shared state.
func (s *Session) AdjustCounter(name string, delta int64) {
	s.shared.AdjustCounter(name, delta)
}

// Commit finalizes the session. Every flow file the session handed out must
// have been transferred or removed; otherwise Commit fails and the session
// stays open.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open > 0 {
		return errors.WrapState(
			fmt.Errorf("%d flow file(s) not transferred or removed", s.open),
			"Session", "Commit", "accounting check")
	}

	s.committed = true
	return nil
}

// Rollback discards the session's work and returns every pulled flow file to
// the shared queue in its original form.
func (s *Session) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ff := range s.pulled {
		s.shared.Queue().Offer(ff)
	}
	s.pulled = nil
	s.transferred = make(map[string][]*flowfile.FlowFile)
	s.known = make(map[uint64]struct{})
	s.open = 0
	s.removed = 0
	s.committed = false
}

// Committed reports whether Commit has succeeded on this session.
func (s *Session) Committed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// FlowFilesFor returns the flow files this session transferred to the named
// relationship, in transfer order. An unseen relationship yields nil.
func (s *Session) FlowFilesFor(relationship string) []*flowfile.FlowFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := s.transferred[relationship]
	result := make([]*flowfile.FlowFile, len(files))
	copy(result, files)
	return result
}

// TransferredRelationships returns the names of relationships this session
// transferred at least one flow file to.
func (s *Session) TransferredRelationships() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]int, len(s.transferred))
	for name, files := range s.transferred {
		result[name] = len(files)
	}
	return result
}

// RemovedCount returns the number of flow files removed by this session.
func (s *Session) RemovedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

// ClearTransferState forgets everything transferred so far, so that a harness
// can run the same component again with fresh assertions.
func (s *Session) ClearTransferState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferred = make(map[string][]*flowfile.FlowFile)
}

func (s *Session) checkKnown(ff *flowfile.FlowFile, method string) error {
	if ff == nil {
		return errors.WrapConfig(fmt.Errorf("flow file is nil"), "Session", method, "flow file validation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.known[ff.ID()]; !ok {
		return errors.WrapState(
			fmt.Errorf("flow file %d is not known to this session", ff.ID()),
			"Session", method, "ownership check")
	}
	return nil
}
