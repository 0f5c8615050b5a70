package splat

// Backlog bounds.
const (
	minBacklog      = 256
	backlogPerSplat = 12
	uncappedBacklog = 8192
)

// MaxBacklog returns the retained queue bound for a per-frame cap (0 = uncapped).
func MaxBacklog(perFrame int) int {
	if perFrame <= 0 {
		return uncappedBacklog
	}
	return max(minBacklog, perFrame*backlogPerSplat)
}

// Queue buffers expanded splats between frames.
// When the backlog exceeds MaxBacklog the oldest entries are dropped,
// so memory and latency stay bounded whatever the producer rate.
type Queue struct {
	items    []Splat
	head     int
	symmetry Symmetry
	perFrame int
	dropped  uint64
}

// NewQueue creates a queue with the given symmetry and per-frame cap.
func NewQueue(symmetry Symmetry, perFrame int) *Queue {
	return &Queue{symmetry: symmetry, perFrame: max(perFrame, 0)}
}

// Configure updates symmetry and cap. Already-queued splats keep their expansion.
func (q *Queue) Configure(symmetry Symmetry, perFrame int) {
	q.symmetry = symmetry
	q.perFrame = max(perFrame, 0)
	q.trim()
}

// Len returns the number of retained expanded splats.
func (q *Queue) Len() int {
	return len(q.items) - q.head
}

// Dropped returns how many splats were discarded by backpressure.
func (q *Queue) Dropped() uint64 {
	return q.dropped
}

// Push expands s by the queue's symmetry and enqueues the copies.
func (q *Queue) Push(s Splat) {
	q.items = Expand(q.items, s, q.symmetry)
	q.trim()
}

// PushAll enqueues several raw splats.
func (q *Queue) PushAll(list []Splat) {
	for _, s := range list {
		q.items = Expand(q.items, s, q.symmetry)
	}
	q.trim()
}

// Drain drops excess backlog, then removes and returns up to the per-frame
// cap from the front. The returned slice is only valid until the next call
// that mutates the queue.
func (q *Queue) Drain(dst []Splat) []Splat {
	q.trim()
	n := q.Len()
	if q.perFrame > 0 {
		n = min(n, q.perFrame)
	}
	dst = append(dst, q.items[q.head:q.head+n]...)
	q.head += n
	q.compact()
	return dst
}

// Clear discards everything queued.
func (q *Queue) Clear() {
	q.items = q.items[:0]
	q.head = 0
}

// trim discards the oldest entries above the backlog bound.
func (q *Queue) trim() {
	limit := MaxBacklog(q.perFrame)
	if excess := q.Len() - limit; excess > 0 {
		q.head += excess
		q.dropped += uint64(excess)
	}
	q.compact()
}

// compact reclaims the consumed prefix once it dominates the slice.
func (q *Queue) compact() {
	if q.head == 0 {
		return
	}
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head >= len(q.items)/2 {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
}
