// ABOUTME: Bounded FIFO queue for frames sent while the transport is disconnected.
// ABOUTME: Drops silently when full, trading delivery guarantees for memory safety.
package realtime

import "sync"

// DefaultQueueCapacity bounds how many outbound frames buffer during a
// disconnection.
const DefaultQueueCapacity = 100

// sendQueue is a bounded FIFO of frames awaiting reconnection. Only the
// transport client touches it.
type sendQueue struct {
	mu       sync.Mutex
	frames   []Frame
	capacity int
}

func newSendQueue(capacity int) *sendQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &sendQueue{capacity: capacity}
}

// push enqueues a frame. Returns false when the queue is full and the frame
// was dropped.
func (q *sendQueue) push(f Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) >= q.capacity {
		return false
	}
	q.frames = append(q.frames, f)
	return true
}

// requeue puts drained-but-unsent frames back at the front of the queue,
// ahead of anything pushed since the drain. Frames beyond capacity are
// dropped from the newest end, matching push's drop-new policy.
func (q *sendQueue) requeue(frames []Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(frames) == 0 {
		return
	}
	merged := append(append([]Frame{}, frames...), q.frames...)
	if len(merged) > q.capacity {
		merged = merged[:q.capacity]
	}
	q.frames = merged
}

// drain removes and returns all queued frames in submission order.
func (q *sendQueue) drain() []Frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.frames
	q.frames = nil
	return out
}

// len returns the number of queued frames.
func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
