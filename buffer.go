package cesil

import "context"

const defaultReadBufferSize = 1 << 10 // 1024 runes

// pushbackBuffer reads from an InputAdapter into a growable []rune and lets
// the caller push unread characters back onto the front of the unconsumed
// region. It retains everything back to the last Commit so a caller such as
// the row-ending detector or header discovery can rewind across refills;
// Commit discards everything before the read cursor once it is known the
// reader will never need to re-see it.
type pushbackBuffer struct {
	pool *CharPool
	data []rune
	r    int // next unread index
	w    int // end of valid data
}

func newPushbackBuffer(pool *CharPool, hint int) *pushbackBuffer {
	size := hint
	if size <= 0 {
		size = defaultReadBufferSize
	}
	return &pushbackBuffer{
		pool: pool,
		data: pool.Rent(size),
	}
}

// Next returns the next character and true, or (0, false) if the buffer is
// exhausted and needs a Refill.
func (b *pushbackBuffer) Next() (rune, bool) {
	if b.r >= b.w {
		return 0, false
	}
	r := b.data[b.r]
	b.r++
	return r, true
}

// PushBack rewinds the read cursor by n characters, so the next n calls to
// Next re-observe characters already consumed since the last Commit.
func (b *pushbackBuffer) PushBack(n int) {
	b.r -= n
	if b.r < 0 {
		b.r = 0
	}
}

// Pending reports how many unconsumed characters remain buffered.
func (b *pushbackBuffer) Pending() int { return b.w - b.r }

// Commit discards every character before the current read cursor,
// compacting the retained region to start at offset 0. Call it once the
// reader can prove it will never push back past the current cursor again
// (after a record has been fully delivered to the caller).
func (b *pushbackBuffer) Commit() {
	if b.r == 0 {
		return
	}
	n := copy(b.data, b.data[b.r:b.w])
	b.w = n
	b.r = 0
}

// Refill pulls more data from adapter, growing the backing array via the
// pool if it is already full. It calls the adapter once and returns the
// number of characters added with the adapter's error: 0 with a nil error
// means the adapter asked to be retried (Refill does not retry; callers
// loop and call it again), and io.EOF is returned to the caller, not
// swallowed.
func (b *pushbackBuffer) Refill(ctx context.Context, adapter InputAdapter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if b.w == len(b.data) {
		grown := b.pool.Grow(b.data, len(b.data)*2)
		if grown == nil {
			return 0, &PoolError{Requested: len(b.data) * 2, Max: b.pool.MaxSize()}
		}
		b.data = grown
		b.data = b.data[:cap(b.data)]
	} else {
		// ensure data has room to index up to cap without reslicing
		// surprises; data's length always tracks its capacity between
		// Commit/Refill cycles.
		if len(b.data) != cap(b.data) {
			b.data = b.data[:cap(b.data)]
		}
	}
	n, err := adapter.ReadInto(ctx, b.data[b.w:])
	b.w += n
	if err := ctx.Err(); err != nil {
		return n, err
	}
	return n, err
}

// Release returns the backing array to the pool. The buffer must not be
// used afterward.
func (b *pushbackBuffer) Release() {
	b.pool.Release(b.data)
	b.data = nil
}
