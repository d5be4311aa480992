package cesil

import (
	"context"
	"io"
)

// Reader drives the pushback buffer, row-ending detector, header reader,
// and record scanner together to produce typed rows of R. A Reader is not
// safe for concurrent use.
type Reader[R any] struct {
	opts    *Options
	table   *transitionTable
	pool    *CharPool
	guard   pin
	adapter InputAdapter
	buf     *pushbackBuffer
	closer  io.Closer

	constructor     *RowConstructor[R]
	declaredColumns map[string]struct{}
	columnsByName   map[string]ColumnReader[R]
	columns         []ColumnReader[R]
	mode            ConstructionMode
	provider        InstanceProvider[R]

	resolved        RowEnding
	headerSetup     bool
	pendingRecord   *record
	pendingComments []string
	rowNumber       int
	callerCtx       any

	poison poisonState
}

// NewReader builds a Reader for row type R, reading from src under opts.
// columns describes every declared column; their Index() values are used
// verbatim when no header row is consumed (ReadHeaderNever, or
// ReadHeaderDetect when the first record matches no declared name), and
// are instead resolved by name against the header row otherwise.
func NewReader[R any](src io.Reader, opts *Options, mode ConstructionMode, provider InstanceProvider[R], columns []ColumnReader[R], callerCtx any) *Reader[R] {
	pool := NewCharPool(0)
	rd := &Reader[R]{
		opts:            opts,
		table:           opts.table,
		pool:            pool,
		adapter:         newReaderAdapter(src, opts.ReadBufferSizeHint()),
		buf:             newPushbackBuffer(pool, opts.ReadBufferSizeHint()),
		columns:         columns,
		mode:            mode,
		provider:        provider,
		declaredColumns: make(map[string]struct{}, len(columns)),
		columnsByName:   make(map[string]ColumnReader[R], len(columns)),
		callerCtx:       callerCtx,
	}
	if c, ok := src.(io.Closer); ok {
		rd.closer = c
	}
	for _, c := range columns {
		rd.declaredColumns[c.Name()] = struct{}{}
		rd.columnsByName[c.Name()] = c
	}
	rd.constructor = NewRowConstructor(mode, provider, columns)
	return rd
}

func (rd *Reader[R]) newReadContext() *ReadContext {
	return &ReadContext{RowNumber: rd.rowNumber, Caller: rd.callerCtx}
}

// ensureSetup resolves the row ending (if Detect) and consumes or defers
// the header record, exactly once per stream.
func (rd *Reader[R]) ensureSetup(ctx context.Context) error {
	if rd.headerSetup {
		return nil
	}
	rd.headerSetup = true

	resolved := rd.opts.RowEnding()
	if resolved == RowEndingDetect {
		r, err := detectRowEnding(ctx, rd.buf, rd.adapter, rd.table)
		if err != nil {
			return err
		}
		resolved = r
	}
	rd.resolved = resolved

	policy := rd.opts.ReadHeader()
	if policy == ReadHeaderNever {
		return nil
	}

	hs, rec, err := readHeaders(ctx, rd.buf, rd.adapter, rd.table, rd.pool, &rd.guard, resolved, rd.opts.Whitespace(), rd.declaredColumns, func(c string) {
		rd.pendingComments = append(rd.pendingComments, c)
	})
	if err != nil {
		return err
	}
	if rec.kind == recordEOF {
		return nil
	}

	isHeader := policy == ReadHeaderAlways || hs.isHeaderLike
	if !isHeader {
		// ReadHeaderDetect guessed wrong: the record just consumed is the
		// first data row, not a header. Replay it instead of discarding it
		// and keep the declared ordinal columns as-is.
		rd.pendingRecord = &rec
		return nil
	}

	byName := hs.indexByName()
	rebound := make([]ColumnReader[R], 0, len(rd.columns))
	for _, col := range rd.columns {
		idx, ok := byName[col.Name()]
		if !ok {
			// absent from the header: no field ever binds to index -1, but
			// the column stays in place so a required one is still reported.
			idx = -1
		}
		rebound = append(rebound, rebind(col, idx))
	}
	rd.constructor = NewRowConstructor(rd.mode, rd.provider, rebound)
	return nil
}

// rebind produces a ColumnReader that reports idx from Index() while
// delegating every other method to col, so header-resolved columns can be
// handed to a fresh RowConstructor without mutating the caller's original
// declarations (which remain reusable across multiple Readers).
func rebind[R any](col ColumnReader[R], idx int) ColumnReader[R] {
	return &reboundColumn[R]{ColumnReader: col, idx: idx}
}

type reboundColumn[R any] struct {
	ColumnReader[R]
	idx int
}

func (c *reboundColumn[R]) Index() int { return c.idx }

// replayFromHold forwards the NeedsHold replay to the wrapped column, which
// the embedded ColumnReader interface alone does not expose.
func (c *reboundColumn[R]) replayFromHold(ctx *ReadContext, row *R, hold *Hold, holdSlot int) error {
	return replayColumn(c.ColumnReader, ctx, row, hold, holdSlot)
}

// TryRead reads the next row using context.Background. See TryReadCtx.
func (rd *Reader[R]) TryRead() (*R, bool, error) {
	return rd.TryReadCtx(context.Background())
}

// TryReadCtx reads and constructs the next data row, skipping comment
// records. ok is false with a nil error at end of input.
func (rd *Reader[R]) TryReadCtx(ctx context.Context) (*R, bool, error) {
	for {
		row, _, ok, err := rd.tryReadRecord(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		if row == nil {
			// a comment record (or a leading comment popped ahead of the
			// header): row is only ever nil on a non-error comment event,
			// never on a successfully constructed data row, so this check
			// must not also key off comment being non-empty — a bare "#"
			// line comments with empty text and must be skipped too.
			continue
		}
		return row, true, nil
	}
}

// TryReadWithComment reads the next row using context.Background. See
// TryReadWithCommentCtx.
func (rd *Reader[R]) TryReadWithComment() (*R, string, bool, error) {
	return rd.TryReadWithCommentCtx(context.Background())
}

// TryReadWithCommentCtx reads the next record, which may be a data row or
// a comment. When ok is true the record is either a data row (row non-nil,
// comment empty) or a comment (row nil, comment holding its text, which is
// empty for a bare comment character).
func (rd *Reader[R]) TryReadWithCommentCtx(ctx context.Context) (*R, string, bool, error) {
	return rd.tryReadRecord(ctx)
}

func (rd *Reader[R]) tryReadRecord(ctx context.Context) (*R, string, bool, error) {
	if err := rd.poison.check(); err != nil {
		return nil, "", false, err
	}
	row, comment, ok, err := rd.readOnce(ctx)
	if err != nil {
		rd.poison.poison(err)
		return nil, "", false, err
	}
	return row, comment, ok, nil
}

// popPendingComment returns and removes the oldest comment queued by
// ensureSetup (leading comment lines seen while probing for a header),
// preserving their source order against the records that follow.
func (rd *Reader[R]) popPendingComment() (string, bool) {
	if len(rd.pendingComments) == 0 {
		return "", false
	}
	c := rd.pendingComments[0]
	rd.pendingComments = rd.pendingComments[1:]
	return c, true
}

func (rd *Reader[R]) readOnce(ctx context.Context) (*R, string, bool, error) {
	if err := rd.ensureSetup(ctx); err != nil {
		return nil, "", false, err
	}
	if c, ok := rd.popPendingComment(); ok {
		return nil, c, true, nil
	}

	var rec record
	if rd.pendingRecord != nil {
		rec = *rd.pendingRecord
		rd.pendingRecord = nil
	} else {
		r, err := scanRecord(ctx, rd.buf, rd.adapter, rd.table, rd.pool, &rd.guard, rd.resolved, rd.opts.Whitespace())
		if err != nil {
			return nil, "", false, err
		}
		rec = r
	}

	switch rec.kind {
	case recordEOF:
		return nil, "", false, nil
	case recordComment:
		return nil, rec.comment, true, nil
	default:
		rd.rowNumber++
		rctx := rd.newReadContext()
		row, err := rd.constructor.Construct(rctx, rec.fields)
		if err != nil {
			return nil, "", false, err
		}
		return row, "", true, nil
	}
}

// TryReadWithReuse parses the next data row into dst, avoiding a fresh
// allocation. It is only available in ConstructSimple mode, since
// ConstructNeedsHold rows are produced by their instance provider and
// cannot be mutated in place before construction.
func (rd *Reader[R]) TryReadWithReuse(ctx context.Context, dst *R) (bool, error) {
	if err := rd.poison.check(); err != nil {
		return false, err
	}
	if rd.mode != ConstructSimple {
		err := &ConfigError{Field: "construction_mode", Err: errNeedsHoldNoReuse}
		rd.poison.poison(err)
		return false, err
	}
	if err := rd.ensureSetup(ctx); err != nil {
		rd.poison.poison(err)
		return false, err
	}
	rd.pendingComments = nil

	for {
		var rec record
		if rd.pendingRecord != nil {
			rec = *rd.pendingRecord
			rd.pendingRecord = nil
		} else {
			r, err := scanRecord(ctx, rd.buf, rd.adapter, rd.table, rd.pool, &rd.guard, rd.resolved, rd.opts.Whitespace())
			if err != nil {
				rd.poison.poison(err)
				return false, err
			}
			rec = r
		}
		switch rec.kind {
		case recordEOF:
			return false, nil
		case recordComment:
			continue
		default:
			rd.rowNumber++
			rctx := rd.newReadContext()
			if err := rd.constructor.ConstructInto(rctx, dst, rec.fields); err != nil {
				rd.poison.poison(err)
				return false, err
			}
			return true, nil
		}
	}
}

// ReadAll reads and constructs every remaining data row using
// context.Background.
func (rd *Reader[R]) ReadAll() ([]*R, error) {
	return rd.ReadAllCtx(context.Background())
}

// ReadAllCtx reads and constructs every remaining data row, skipping
// comments, stopping at the first error or at end of input.
func (rd *Reader[R]) ReadAllCtx(ctx context.Context) ([]*R, error) {
	var rows []*R
	for {
		row, ok, err := rd.TryReadCtx(ctx)
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// All returns a single-use iterator over every data row, suitable for a
// range-over-func loop. Iteration stops, yielding the error once, on the
// first failure.
func (rd *Reader[R]) All(ctx context.Context) func(yield func(*R, error) bool) {
	return func(yield func(*R, error) bool) {
		for {
			row, ok, err := rd.TryReadCtx(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Reset discards all buffered state and rebinds the Reader to src, so it
// can be reused across many short-lived streams without reallocating its
// scratch buffers.
func (rd *Reader[R]) Reset(src io.Reader) {
	rd.buf.Release()
	rd.buf = newPushbackBuffer(rd.pool, rd.opts.ReadBufferSizeHint())
	rd.adapter = newReaderAdapter(src, rd.opts.ReadBufferSizeHint())
	rd.closer = nil
	if c, ok := src.(io.Closer); ok {
		rd.closer = c
	}
	rd.headerSetup = false
	rd.pendingRecord = nil
	rd.pendingComments = nil
	rd.rowNumber = 0
	rd.constructor = NewRowConstructor(rd.mode, rd.provider, rd.columns)
	rd.poison.reset()
}

// Dispose releases pooled scratch storage and closes the underlying
// source, if it implements io.Closer.
func (rd *Reader[R]) Dispose() error {
	if rd.guard.pinned() {
		// a record scan is still in flight; nothing in this package calls
		// Dispose concurrently with TryRead, so this only ever fires on a
		// defect in a caller's own goroutine discipline.
		return &PoisonedError{Cause: errDisposeWhilePinned}
	}
	rd.buf.Release()
	if rd.closer != nil {
		return rd.closer.Close()
	}
	return nil
}

// Close is an alias for Dispose, satisfying io.Closer.
func (rd *Reader[R]) Close() error { return rd.Dispose() }
