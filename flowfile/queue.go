package flowfile

import "sync"

// Queue is the shared in-memory input queue for one harness instance.
// It is safe for concurrent use from multiple worker tasks; ordering is FIFO.
type Queue struct {
	mu    sync.Mutex
	items []*FlowFile
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Offer appends a flow file to the tail of the queue.
func (q *Queue) Offer(ff *FlowFile) {
	if ff == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, ff)
}

// Poll removes and returns the head of the queue, or nil when empty.
func (q *Queue) Poll() *FlowFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head
}

// Size returns the number of queued flow files.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether the queue holds no flow files.
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}
