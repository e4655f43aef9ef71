package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMaxEvents is the default ring capacity of a Queue.
const DefaultMaxEvents = 20

var (
	// ErrOutOfMemory is returned by Push when the arena has no free block.
	ErrOutOfMemory = errors.New("out of memory for new events")
	// ErrTooLarge is returned by Push when the payload exceeds BlockSize.
	ErrTooLarge = errors.New("event payload exceeds block size")
	// ErrInactive is returned by Push after the queue has been deactivated.
	ErrInactive = errors.New("event queue is inactive")
)

// Kind identifies the payload carried by an Event.
type Kind uint8

const (
	KindVideo Kind = iota
	KindAudio
	KindVibrate
	KindSync
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindVibrate:
		return "vibrate"
	case KindSync:
		return "sync"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is a queued unit of gamepad traffic. The consumer that pulled it owns
// the payload until Release is called.
type Event struct {
	Kind  Kind
	block *Block
	size  int
	arena *Arena
}

// Data returns the payload. It returns nil once the event has been released.
// The slice aliases the arena block, so it is valid only until Release; copy
// it to keep the bytes longer.
func (e *Event) Data() []byte {
	if e == nil || e.block == nil {
		return nil
	}
	return e.block.buf[:e.size]
}

// Len returns the payload length in bytes.
func (e *Event) Len() int { return e.size }

// Release returns the payload block to the arena. The event no longer refers
// to the block afterwards, so releasing twice is a no-op.
func (e *Event) Release() {
	if e == nil || e.block == nil {
		return
	}
	b := e.block
	e.block = nil
	e.size = 0
	// Cannot fail: b came from e.arena and e no longer holds it, so it goes
	// back exactly once.
	_ = e.arena.Release(b)
}

// Stats is a snapshot of queue counters.
type Stats struct {
	Produced uint64
	Consumed uint64
	Evicted  uint64
	Dropped  uint64
}

// Queue is a bounded multi-producer single-consumer ring of events. When full,
// the oldest unread event is evicted in favour of the new one.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	slots    []*Event
	produced uint64
	consumed uint64
	evicted  uint64
	dropped  uint64
	active   bool
	arena    *Arena
	logger   *slog.Logger
}

// NewQueue creates an active queue of maxEvents slots with its own arena of
// 2*maxEvents blocks.
func NewQueue(maxEvents int, logger *slog.Logger) *Queue {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return NewQueueWithArena(maxEvents, NewArena(2*maxEvents), logger)
}

// NewQueueWithArena creates an active queue drawing payload blocks from arena.
func NewQueueWithArena(maxEvents int, arena *Arena, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		slots:  make([]*Event, maxEvents),
		active: true,
		arena:  arena,
		logger: logger,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Arena returns the arena backing the queue.
func (q *Queue) Arena() *Arena { return q.arena }

// Capacity returns the number of ring slots.
func (q *Queue) Capacity() int { return len(q.slots) }

// Push copies data into an arena block and appends it to the ring.
func (q *Queue) Push(kind Kind, data []byte) error {
	if len(data) > BlockSize {
		q.logger.Error("failed to push event", "kind", kind, "size", len(data), "max", BlockSize)
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, len(data), BlockSize)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active {
		return ErrInactive
	}

	max := uint64(len(q.slots))
	if q.produced == q.consumed+max {
		idx := q.consumed % max
		q.slots[idx].Release()
		q.slots[idx] = nil
		q.consumed++
		q.evicted++
		q.logger.Debug("skipped event to prevent rollover", "produced", q.produced, "consumed", q.consumed)
	}

	b, ok := q.arena.Checkout()
	if !ok {
		q.dropped++
		q.logger.Warn("out of memory for new events", "kind", kind, "dropped", q.dropped)
		return ErrOutOfMemory
	}
	n := copy(b.buf, data)

	q.slots[q.produced%max] = &Event{Kind: kind, block: b, size: n, arena: q.arena}
	q.produced++
	q.cond.Broadcast()
	return nil
}

// Pull returns the oldest unread event. With blocking set it waits until an
// event is available or the queue is deactivated. ok is false when nothing
// was returned.
func (q *Queue) Pull(blocking bool) (*Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if blocking {
		for q.active && q.produced == q.consumed {
			q.cond.Wait()
		}
	}
	return q.takeLocked()
}

// PullContext blocks like Pull(true) but also returns when ctx is done.
func (q *Queue) PullContext(ctx context.Context) (*Event, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.active && q.produced == q.consumed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if ctx.Err() != nil {
		return nil, false
	}
	return q.takeLocked()
}

func (q *Queue) takeLocked() (*Event, bool) {
	if !q.active || q.consumed >= q.produced {
		return nil, false
	}
	idx := q.consumed % uint64(len(q.slots))
	ev := q.slots[idx]
	q.slots[idx] = nil
	q.consumed++
	return ev, true
}

// Deactivate stops delivery and wakes every waiter. Unread events are released.
func (q *Queue) Deactivate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.active {
		return
	}
	q.active = false
	for i, ev := range q.slots {
		ev.Release()
		q.slots[i] = nil
	}
	q.cond.Broadcast()
}

// Active reports whether the queue still delivers events.
func (q *Queue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Produced: q.produced, Consumed: q.consumed, Evicted: q.evicted, Dropped: q.dropped}
}
