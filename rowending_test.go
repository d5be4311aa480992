package cesil

import (
	"context"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func detectT(t *testing.T, text string) RowEnding {
	t.Helper()
	pool := NewCharPool(0)
	buf := newPushbackBuffer(pool, 16)
	adapter := newReaderAdapter(strings.NewReader(text), 0)
	o := buildOptsT(t, nil)

	got, err := detectRowEnding(context.Background(), buf, adapter, o.table)
	assert.NilError(t, err)
	return got
}

func TestDetectRowEndingLF(t *testing.T) {
	assert.Equal(t, detectT(t, "a,b\n"), RowEndingLF)
}

func TestDetectRowEndingCRLF(t *testing.T) {
	assert.Equal(t, detectT(t, "a,b\r\n"), RowEndingCRLF)
}

func TestDetectRowEndingLoneCRLocksInAndRewinds(t *testing.T) {
	pool := NewCharPool(0)
	buf := newPushbackBuffer(pool, 16)
	adapter := newReaderAdapter(strings.NewReader("a,b\rc,d\n"), 0)
	o := buildOptsT(t, nil)

	got, err := detectRowEnding(context.Background(), buf, adapter, o.table)
	assert.NilError(t, err)
	assert.Equal(t, got, RowEndingCR)

	// detection only classifies the grammar's shape; it never captures
	// field text, so the whole probed record — not just the character that
	// broke the CR/LF expectation — must be rewound for the real reader to
	// observe from scratch.
	r, ok := buf.Next()
	assert.Check(t, ok)
	assert.Equal(t, r, 'a')
}

func TestDetectRowEndingNoTerminatorAtEOF(t *testing.T) {
	assert.Equal(t, detectT(t, "a,b"), RowEndingLF)
}

func TestDetectRowEndingEmptyCommentOnly(t *testing.T) {
	pool := NewCharPool(0)
	buf := newPushbackBuffer(pool, 16)
	adapter := newReaderAdapter(strings.NewReader("#hi\n"), 0)
	o := buildOptsT(t, func(b *Builder) *Builder { return b.WithComment('#') })

	got, err := detectRowEnding(context.Background(), buf, adapter, o.table)
	assert.NilError(t, err)
	assert.Equal(t, got, RowEndingLF)
}
