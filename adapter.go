package cesil

import (
	"bufio"
	"context"
	"io"
)

// InputAdapter reads decoded code points into dst, returning the count
// read; a return of (0, nil) means "try again", and (n, io.EOF) with n > 0
// must be honored before the EOF. This mirrors a read_into(char_buffer) ->
// n_read contract.
type InputAdapter interface {
	ReadInto(ctx context.Context, dst []rune) (int, error)
}

// OutputAdapter writes a span of decoded code points.
type OutputAdapter interface {
	Write(ctx context.Context, chars []rune) error
}

// readerAdapter decodes UTF-8 bytes from an io.Reader into runes. It is the
// default InputAdapter every Reader constructor wraps its io.Reader in.
type readerAdapter struct {
	src *bufio.Reader
}

// newReaderAdapter wraps r for rune-at-a-time decoding. size sizes the
// internal byte buffer; 0 uses bufio's default.
func newReaderAdapter(r io.Reader, size int) *readerAdapter {
	if size > 0 {
		return &readerAdapter{src: bufio.NewReaderSize(r, size)}
	}
	return &readerAdapter{src: bufio.NewReader(r)}
}

func (a *readerAdapter) ReadInto(ctx context.Context, dst []rune) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	for n < len(dst) {
		r, _, err := a.src.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		dst[n] = r
		n++
	}
	return n, nil
}

// writerAdapter encodes runes as UTF-8 onto an io.Writer. unbuffered is set
// when the caller's write_buffer_size_hint was explicitly 0, which disables
// write buffering entirely rather than falling back to bufio's own default
// size: every Write call is flushed before returning.
type writerAdapter struct {
	dst        *bufio.Writer
	unbuffered bool
}

// newWriterAdapter wraps w for rune-at-a-time encoding. hasHint distinguishes
// "no write_buffer_size_hint given" (bufio's own default) from an explicit
// hint; size is only meaningful when hasHint is true, and a hint of exactly
// 0 disables buffering rather than sizing a zero-byte bufio.Writer.
func newWriterAdapter(w io.Writer, hasHint bool, size int) *writerAdapter {
	if hasHint && size == 0 {
		return &writerAdapter{dst: bufio.NewWriter(w), unbuffered: true}
	}
	if hasHint && size > 0 {
		return &writerAdapter{dst: bufio.NewWriterSize(w, size)}
	}
	return &writerAdapter{dst: bufio.NewWriter(w)}
}

func (a *writerAdapter) Write(ctx context.Context, chars []rune) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range chars {
		if _, err := a.dst.WriteRune(r); err != nil {
			return err
		}
	}
	if a.unbuffered {
		return a.dst.Flush()
	}
	return nil
}

func (a *writerAdapter) Flush() error { return a.dst.Flush() }
