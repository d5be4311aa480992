package cesil

import (
	"context"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func dynamicDialectT(t *testing.T, configure func(*Builder) *Builder) *Options {
	t.Helper()
	b := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF)
	if configure != nil {
		b = configure(b)
	}
	o, err := b.Build()
	assert.NilError(t, err)
	return o
}

func TestDynamicReaderResolvesNamesFromHeader(t *testing.T) {
	o := dynamicDialectT(t, func(b *Builder) *Builder { return b.WithReadHeader(ReadHeaderAlways) })
	dr := NewDynamicReader(strings.NewReader("name,price\r\nwidget,9\r\n"), o)

	row, ok, err := dr.TryRead()
	assert.NilError(t, err)
	assert.Check(t, ok)
	assert.Equal(t, row.Len(), 2)

	name, text, ok := row.At(0)
	assert.Check(t, ok)
	assert.Equal(t, name, "name")
	assert.Equal(t, text, "widget")

	price, ok := row.Get("price")
	assert.Check(t, ok)
	assert.Equal(t, price, "9")

	_, ok, err = dr.TryRead()
	assert.NilError(t, err)
	assert.Check(t, !ok)
	assert.NilError(t, dr.Dispose())
}

func TestDynamicReaderFallsBackToOrdinalNamesWithoutHeader(t *testing.T) {
	o := dynamicDialectT(t, func(b *Builder) *Builder { return b.WithReadHeader(ReadHeaderNever) })
	dr := NewDynamicReader(strings.NewReader("1,2,3\r\n"), o)

	row, ok, err := dr.TryRead()
	assert.NilError(t, err)
	assert.Check(t, ok)

	name, text, ok := row.At(2)
	assert.Check(t, ok)
	assert.Equal(t, name, "2")
	assert.Equal(t, text, "3")
	assert.NilError(t, dr.Dispose())
}

func TestDynamicReaderSkipsCommentRecords(t *testing.T) {
	o := dynamicDialectT(t, func(b *Builder) *Builder {
		return b.WithReadHeader(ReadHeaderNever).WithComment('#')
	})
	dr := NewDynamicReader(strings.NewReader("#note\r\n1,2\r\n"), o)

	row, ok, err := dr.TryRead()
	assert.NilError(t, err)
	assert.Check(t, ok)
	_, text, _ := row.At(0)
	assert.Equal(t, text, "1")
	assert.NilError(t, dr.Dispose())
}

func TestDynamicReaderTryReadWithReuseReusesBackingSlice(t *testing.T) {
	o := dynamicDialectT(t, func(b *Builder) *Builder { return b.WithReadHeader(ReadHeaderNever) })
	dr := NewDynamicReader(strings.NewReader("1,2\r\n3,4\r\n"), o)

	var dst DynamicRow
	ok, err := dr.TryReadWithReuse(context.Background(), &dst)
	assert.NilError(t, err)
	assert.Check(t, ok)
	_, first, _ := dst.At(0)
	assert.Equal(t, first, "1")

	ok, err = dr.TryReadWithReuse(context.Background(), &dst)
	assert.NilError(t, err)
	assert.Check(t, ok)
	_, second, _ := dst.At(0)
	assert.Equal(t, second, "3")
	assert.NilError(t, dr.Dispose())
}

func TestDynamicReaderDisposePanicsOnPartialReadUnderPanicPolicy(t *testing.T) {
	o := dynamicDialectT(t, func(b *Builder) *Builder {
		return b.WithReadHeader(ReadHeaderNever).WithDynamicRowDisposal(DynamicRowDisposalPanic)
	})
	dr := NewDynamicReader(strings.NewReader("1,2\r\n3,4\r\n"), o)
	_, ok, err := dr.TryRead()
	assert.NilError(t, err)
	assert.Check(t, ok)

	defer func() {
		r := recover()
		assert.Check(t, r != nil)
	}()
	_ = dr.Dispose()
}

func TestDynamicReaderEmptyHeaderOnlyStreamYieldsNoRows(t *testing.T) {
	o := dynamicDialectT(t, func(b *Builder) *Builder { return b.WithReadHeader(ReadHeaderAlways) })
	dr := NewDynamicReader(strings.NewReader("name,price\r\n"), o)

	_, ok, err := dr.TryRead()
	assert.NilError(t, err)
	assert.Check(t, !ok)
	assert.NilError(t, dr.Dispose())
}
