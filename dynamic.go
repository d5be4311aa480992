package cesil

import (
	"context"
	"io"
	"strconv"
)

// dynamicField is one column's raw text paired with the header name it was
// read under, or its ordinal position as a decimal string when no header
// was read.
type dynamicField struct {
	name    string
	text    string
	escaped bool
}

// DynamicRow is the schemaless counterpart to a generated row type: every
// field is kept as text, addressable either by discovered header name or
// by position, for callers that do not know their columns at compile time.
type DynamicRow struct {
	fields []dynamicField
}

// Len reports how many fields the row carries.
func (r *DynamicRow) Len() int { return len(r.fields) }

// At returns the name and text of the field at position i.
func (r *DynamicRow) At(i int) (name, text string, ok bool) {
	if i < 0 || i >= len(r.fields) {
		return "", "", false
	}
	f := r.fields[i]
	return f.name, f.text, true
}

// Get returns the text of the field discovered under name, if any.
func (r *DynamicRow) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.name == name {
			return f.text, true
		}
	}
	return "", false
}

func (r *DynamicRow) reset() { r.fields = r.fields[:0] }

// DynamicReader reads records into DynamicRow values without any compile-time
// column declarations, resolving names from a discovered header when one is
// present and falling back to ordinal decimal names ("0", "1", ...)
// otherwise.
type DynamicReader struct {
	opts    *Options
	table   *transitionTable
	pool    *CharPool
	guard   pin
	adapter InputAdapter
	buf     *pushbackBuffer
	closer  io.Closer

	resolved    RowEnding
	setupDone   bool
	names       []string
	pending     *record
	rowNumber   int
	exhausted   bool
	disposal    DynamicRowDisposal

	poison poisonState
}

// NewDynamicReader builds a DynamicReader reading from src under opts. Since
// there are no declared columns to match against, ReadHeaderDetect behaves
// like ReadHeaderAlways: the first record is always treated as a header.
func NewDynamicReader(src io.Reader, opts *Options) *DynamicReader {
	pool := NewCharPool(0)
	dr := &DynamicReader{
		opts:     opts,
		table:    opts.table,
		pool:     pool,
		adapter:  newReaderAdapter(src, opts.ReadBufferSizeHint()),
		buf:      newPushbackBuffer(pool, opts.ReadBufferSizeHint()),
		disposal: opts.DynamicRowDisposal(),
	}
	if c, ok := src.(io.Closer); ok {
		dr.closer = c
	}
	return dr
}

func (dr *DynamicReader) ensureSetup(ctx context.Context) error {
	if dr.setupDone {
		return nil
	}
	dr.setupDone = true

	resolved := dr.opts.RowEnding()
	if resolved == RowEndingDetect {
		r, err := detectRowEnding(ctx, dr.buf, dr.adapter, dr.table)
		if err != nil {
			return err
		}
		resolved = r
	}
	dr.resolved = resolved

	if dr.opts.ReadHeader() == ReadHeaderNever {
		return nil
	}

	hs, rec, err := readHeaders(ctx, dr.buf, dr.adapter, dr.table, dr.pool, &dr.guard, resolved, dr.opts.Whitespace(), nil, nil)
	if err != nil {
		return err
	}
	if rec.kind == recordEOF {
		dr.exhausted = true
		return nil
	}
	dr.names = make([]string, len(hs.headers))
	for i, h := range hs.headers {
		dr.names[i] = h.name
	}
	return nil
}

// TryRead reads the next dynamic row using context.Background.
func (dr *DynamicReader) TryRead() (*DynamicRow, bool, error) {
	return dr.TryReadCtx(context.Background())
}

// TryReadCtx reads and assembles the next data row, skipping comments.
func (dr *DynamicReader) TryReadCtx(ctx context.Context) (*DynamicRow, bool, error) {
	if err := dr.poison.check(); err != nil {
		return nil, false, err
	}
	row, ok, err := dr.readOnce(ctx)
	if err != nil {
		dr.poison.poison(err)
		return nil, false, err
	}
	return row, ok, nil
}

func (dr *DynamicReader) readOnce(ctx context.Context) (*DynamicRow, bool, error) {
	if err := dr.ensureSetup(ctx); err != nil {
		return nil, false, err
	}
	for {
		rec, err := scanRecord(ctx, dr.buf, dr.adapter, dr.table, dr.pool, &dr.guard, dr.resolved, dr.opts.Whitespace())
		if err != nil {
			return nil, false, err
		}
		switch rec.kind {
		case recordEOF:
			dr.exhausted = true
			return nil, false, nil
		case recordComment:
			continue
		default:
			dr.rowNumber++
			row := &DynamicRow{fields: make([]dynamicField, len(rec.fields))}
			for i, f := range rec.fields {
				row.fields[i] = dynamicField{name: dr.fieldName(i), text: f.text, escaped: f.escaped}
			}
			return row, true, nil
		}
	}
}

// TryReadWithReuse reads the next dynamic row into dst, reusing its backing
// slice instead of allocating a new DynamicRow per record.
func (dr *DynamicReader) TryReadWithReuse(ctx context.Context, dst *DynamicRow) (bool, error) {
	if err := dr.poison.check(); err != nil {
		return false, err
	}
	if err := dr.ensureSetup(ctx); err != nil {
		dr.poison.poison(err)
		return false, err
	}
	for {
		rec, err := scanRecord(ctx, dr.buf, dr.adapter, dr.table, dr.pool, &dr.guard, dr.resolved, dr.opts.Whitespace())
		if err != nil {
			dr.poison.poison(err)
			return false, err
		}
		switch rec.kind {
		case recordEOF:
			dr.exhausted = true
			return false, nil
		case recordComment:
			continue
		default:
			dr.rowNumber++
			dst.reset()
			for i, f := range rec.fields {
				dst.fields = append(dst.fields, dynamicField{name: dr.fieldName(i), text: f.text, escaped: f.escaped})
			}
			return true, nil
		}
	}
}

func (dr *DynamicReader) fieldName(i int) string {
	if i < len(dr.names) {
		return dr.names[i]
	}
	return strconv.Itoa(i)
}

// Dispose releases pooled scratch storage and closes the underlying source.
// If the configured DynamicRowDisposal is DynamicRowDisposalPanic and the
// stream was never read to completion, it panics: dynamic rows are cheap to
// produce and easy to forget to drain, and silent partial consumption of a
// stream is the kind of bug this policy exists to surface loudly in tests
// and tooling rather than production services (which should use the
// default Ignore policy).
func (dr *DynamicReader) Dispose() error {
	if dr.disposal == DynamicRowDisposalPanic && !dr.exhausted {
		panic("cesil: DynamicReader disposed before the stream was fully read")
	}
	if dr.guard.pinned() {
		return &PoisonedError{Cause: errDisposeWhilePinned}
	}
	dr.buf.Release()
	if dr.closer != nil {
		return dr.closer.Close()
	}
	return nil
}

// Close is an alias for Dispose, satisfying io.Closer.
func (dr *DynamicReader) Close() error { return dr.Dispose() }
