package cesil

import (
	"bytes"
	"context"
	"io"
)

// Writer emits rows of R as records, auto-discovering and writing a header
// record on first use when the dialect's write-header policy calls for it.
// A Writer is not safe for concurrent use.
type Writer[R any] struct {
	opts    *Options
	encode  *encodeScan
	pool    *CharPool
	guard   pin
	adapter *writerAdapter
	closer  io.Closer

	columns   []ColumnWriter[R]
	rowEnding []rune

	headerWritten     bool
	pendingTerminator bool
	rowNumber         int
	callerCtx         any

	poison poisonState
}

// NewWriter builds a Writer for row type R, emitting records to dst under
// opts in the order columns declares them.
func NewWriter[R any](dst io.Writer, opts *Options, columns []ColumnWriter[R], callerCtx any) *Writer[R] {
	size, hasHint := opts.WriteBufferSizeHint()
	w := &Writer[R]{
		opts:      opts,
		encode:    newEncodeScan(opts),
		pool:      NewCharPool(0),
		adapter:   newWriterAdapter(dst, hasHint, size),
		columns:   columns,
		rowEnding: rowEndingRunes(opts.RowEnding()),
		callerCtx: callerCtx,
	}
	if c, ok := dst.(io.Closer); ok {
		w.closer = c
	}
	return w
}

// rowEndingRunes picks the literal terminator a Writer emits. RowEndingDetect
// has no meaning for output (there is nothing to detect when producing the
// stream), so it resolves to CRLF.
func rowEndingRunes(r RowEnding) []rune {
	switch r {
	case RowEndingCR:
		return []rune{'\r'}
	case RowEndingLF:
		return []rune{'\n'}
	default:
		return []rune{'\r', '\n'}
	}
}

func (w *Writer[R]) newWriteContext() *WriteContext {
	return &WriteContext{RowNumber: w.rowNumber, Caller: w.callerCtx}
}

// Write emits one row using context.Background. See WriteCtx.
func (w *Writer[R]) Write(row *R) error {
	return w.WriteCtx(context.Background(), row)
}

// WriteCtx emits one row, writing a header record first if the configured
// policy calls for one and this is the first record written.
func (w *Writer[R]) WriteCtx(ctx context.Context, row *R) error {
	if err := w.poison.check(); err != nil {
		return err
	}
	if err := w.writeOnce(ctx, row); err != nil {
		w.poison.poison(err)
		return err
	}
	return nil
}

func (w *Writer[R]) writeOnce(ctx context.Context, row *R) error {
	if err := w.maybeWriteHeader(ctx); err != nil {
		return err
	}
	if err := w.emitTerminatorIfPending(ctx); err != nil {
		return err
	}

	w.rowNumber++
	wctx := w.newWriteContext()
	dst := bytes.Buffer{}
	for i, col := range w.columns {
		dst.Reset()
		skip, err := col.Write(wctx, row, &dst)
		if err != nil {
			return err
		}
		if i > 0 {
			if err := w.adapter.Write(ctx, []rune{w.opts.ValueSeparator()}); err != nil {
				return err
			}
		}
		if skip {
			continue
		}
		if err := w.writeEncodedField(ctx, wctx, dst.String()); err != nil {
			return err
		}
	}
	w.pendingTerminator = true
	return nil
}

// WriteComment emits a comment record using context.Background. See
// WriteCommentCtx.
func (w *Writer[R]) WriteComment(text string) error {
	return w.WriteCommentCtx(context.Background(), text)
}

// WriteCommentCtx emits text as one or more comment records. The dialect
// must have a comment character configured. text is split at \r, \n, or
// \r\n; each resulting segment is written as its own comment_character-
// prefixed record, so a multi-line comment can never be mistaken for an
// unmarked record boundary.
func (w *Writer[R]) WriteCommentCtx(ctx context.Context, text string) error {
	if err := w.poison.check(); err != nil {
		return err
	}
	c, ok := w.opts.CommentChar()
	if !ok {
		err := &ConfigError{Field: "comment_character", Err: errNoCommentConfigured}
		w.poison.poison(err)
		return err
	}
	for _, line := range splitCommentLines(text) {
		if err := w.emitTerminatorIfPending(ctx); err != nil {
			w.poison.poison(err)
			return err
		}
		if err := w.adapter.Write(ctx, append([]rune{c}, []rune(line)...)); err != nil {
			w.poison.poison(err)
			return err
		}
		w.pendingTerminator = true
	}
	return nil
}

// splitCommentLines splits text at \r, \n, or \r\n, each treated as a
// single break regardless of which row ending the dialect writes records
// with (a comment's own embedded line breaks are the caller's content, not
// the stream's terminator convention).
func splitCommentLines(text string) []string {
	runes := []rune(text)
	var lines []string
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '\n':
			lines = append(lines, string(runes[start:i]))
			start = i + 1
		case '\r':
			lines = append(lines, string(runes[start:i]))
			if i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	lines = append(lines, string(runes[start:]))
	return lines
}

func (w *Writer[R]) emitTerminatorIfPending(ctx context.Context) error {
	if !w.pendingTerminator {
		return nil
	}
	if err := w.adapter.Write(ctx, w.rowEnding); err != nil {
		return err
	}
	w.pendingTerminator = false
	return nil
}

// maybeWriteHeader writes the declared columns' names as the first record,
// once, when the configured policy asks for it.
func (w *Writer[R]) maybeWriteHeader(ctx context.Context) error {
	if w.headerWritten || w.opts.WriteHeader() != WriteHeaderAlways {
		w.headerWritten = true
		return nil
	}
	w.headerWritten = true

	if err := w.emitTerminatorIfPending(ctx); err != nil {
		return err
	}
	for i, col := range w.columns {
		if i > 0 {
			if err := w.adapter.Write(ctx, []rune{w.opts.ValueSeparator()}); err != nil {
				return err
			}
		}
		name := []rune(col.Name())
		if w.encode.NeedsEncode(name) {
			if err := w.writeEscaped(ctx, string(name)); err != nil {
				return err
			}
			continue
		}
		if err := w.adapter.Write(ctx, name); err != nil {
			return err
		}
	}
	w.pendingTerminator = true
	return nil
}

func (w *Writer[R]) writeEncodedField(ctx context.Context, wctx *WriteContext, text string) error {
	runes := []rune(text)
	if !w.encode.NeedsEncode(runes) {
		return w.adapter.Write(ctx, runes)
	}
	if _, hasEscape := w.opts.EscapeStartEnd(); !hasEscape {
		return &UnencodableValueError{Row: wctx.RowNumber, Column: wctx.Column, Text: text}
	}
	return w.writeEscaped(ctx, text)
}

// writeEscaped wraps text in the dialect's escape-start/end character,
// doubling occurrences of the characters that would otherwise terminate
// the escape early, generalizing the doubling-quote convention to an arbitrary
// escapeStartEnd/escapeChar pair. The expanded text is assembled in a
// pooled scratch buffer, pinned for the duration, and flushed in one call
// rather than one adapter.Write per rune.
func (w *Writer[R]) writeEscaped(ctx context.Context, text string) error {
	startEnd, _ := w.opts.EscapeStartEnd()
	escapeChar, _ := w.opts.EscapeChar()
	escapeIsQuote := escapeChar == startEnd

	scratch := w.pool.Rent(len(text) + 2)
	w.guard.acquire()
	defer func() { w.guard.release(); w.pool.Release(scratch) }()

	scratch = append(scratch, startEnd)
	for _, r := range text {
		switch {
		case escapeIsQuote && r == startEnd:
			scratch = append(scratch, startEnd, startEnd)
		case !escapeIsQuote && (r == startEnd || r == escapeChar):
			scratch = append(scratch, escapeChar, r)
		default:
			scratch = append(scratch, r)
		}
	}
	scratch = append(scratch, startEnd)

	return w.adapter.Write(ctx, scratch)
}

// WriteAll writes every row in rows using context.Background, stopping at
// the first error.
func (w *Writer[R]) WriteAll(rows []*R) error {
	return w.WriteAllCtx(context.Background(), rows)
}

// WriteAllCtx writes every row in rows, stopping at the first error.
func (w *Writer[R]) WriteAllCtx(ctx context.Context, rows []*R) error {
	for _, row := range rows {
		if err := w.WriteCtx(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered output without emitting a trailing row ending.
func (w *Writer[R]) Flush() error {
	return w.adapter.Flush()
}

// Reset discards buffered state and rebinds the Writer to dst.
func (w *Writer[R]) Reset(dst io.Writer) {
	size, hasHint := w.opts.WriteBufferSizeHint()
	w.adapter = newWriterAdapter(dst, hasHint, size)
	w.closer = nil
	if c, ok := dst.(io.Closer); ok {
		w.closer = c
	}
	w.headerWritten = false
	w.pendingTerminator = false
	w.rowNumber = 0
	w.poison.reset()
}

// Dispose emits the trailing row ending if the configured policy calls for
// one, flushes buffered output, and closes the underlying destination if
// it implements io.Closer.
func (w *Writer[R]) Dispose() error {
	if w.guard.pinned() {
		return &PoisonedError{Cause: errDisposeWhilePinned}
	}
	if w.pendingTerminator && w.opts.WriteTrailingRowEnding() == TrailingRowEndingAlways {
		if err := w.adapter.Write(context.Background(), w.rowEnding); err != nil {
			return err
		}
		w.pendingTerminator = false
	}
	if err := w.adapter.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Close is an alias for Dispose, satisfying io.Closer.
func (w *Writer[R]) Close() error { return w.Dispose() }

// Error reports the error that poisoned this writer, if any.
func (w *Writer[R]) Error() error { return w.poison.check() }
