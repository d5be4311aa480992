package cesil

import (
	"strconv"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

type ab struct {
	A, B string
}

func abIntColumns(requireB bool) []ColumnReader[ab] {
	a := NewColumn[ab, string]("A", 0,
		func(_ *ReadContext, raw string) (string, error) { return raw, nil },
		func(_ *ReadContext, row *ab, v string) error { row.A = v; return nil },
	)
	b := NewColumn[ab, string]("B", 1,
		func(_ *ReadContext, raw string) (string, error) { return raw, nil },
		func(_ *ReadContext, row *ab, v string) error { row.B = v; return nil },
		WithRequired[ab, string](requireB),
	)
	return []ColumnReader[ab]{a, b}
}

func newABReader(t *testing.T, input string, opts *Options, requireB bool) *Reader[ab] {
	t.Helper()
	provider := func(_ *ReadContext, _ *Hold) (*ab, error) { return &ab{}, nil }
	return NewReader(strings.NewReader(input), opts, ConstructSimple, provider, abIntColumns(requireB), nil)
}

func defaultDialect(t *testing.T) *Options {
	t.Helper()
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF).
		WithReadHeader(ReadHeaderAlways).
		Build()
	assert.NilError(t, err)
	return o
}

// Header auto-detected, two ordinary rows read back.
func TestReaderBasicTwoRows(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\n1,2\r\n3,4\r\n", opts, false)

	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0].A, "1")
	assert.Equal(t, rows[0].B, "2")
	assert.Equal(t, rows[1].A, "3")
	assert.Equal(t, rows[1].B, "4")
}

// Scenario 2: escaped value containing the separator.
func TestReaderEscapedValueContainingSeparator(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\nhello,\"wo,rld\"\r\n", opts, false)

	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].A, "hello")
	assert.Equal(t, rows[0].B, "wo,rld")
}

// Scenario 3: doubled-quote escape.
func TestReaderDoubledQuoteEscape(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\n\"say \"\"hi\"\"\",x\r\n", opts, false)

	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].A, `say "hi"`)
	assert.Equal(t, rows[0].B, "x")
}

// An escaped value closed by its closing quote right at EOF, with no
// trailing separator or row ending, is a complete valid record: the quote
// already closed the value, it did not leave an escape unclosed.
func TestReaderEscapedValueClosedAtEOFWithNoTrailingTerminator(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\nhello,\"world\"", opts, false)

	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].A, "hello")
	assert.Equal(t, rows[0].B, "world")
}

// Scenario 4: comment record delivered via TryReadWithComment.
func TestReaderTopCommentThenRow(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF).
		WithReadHeader(ReadHeaderAlways).
		WithComment('#').
		Build()
	assert.NilError(t, err)

	rd := newABReader(t, "# top comment\r\nA,B\r\n1,2\r\n", o, false)

	row, comment, ok, err := rd.TryReadWithComment()
	assert.NilError(t, err)
	assert.Check(t, ok)
	assert.Equal(t, comment, " top comment")
	assert.Check(t, row == nil)

	row, comment, ok, err = rd.TryReadWithComment()
	assert.NilError(t, err)
	assert.Check(t, ok)
	assert.Equal(t, comment, "")
	assert.Equal(t, row.A, "1")
	assert.Equal(t, row.B, "2")

	_, _, ok, err = rd.TryReadWithComment()
	assert.NilError(t, err)
	assert.Check(t, !ok)
}

// TryRead must skip a comment record even when its text is empty: row is
// only ever nil on a comment (or a leading comment popped ahead of the
// header), never on a successfully constructed data row, so the skip
// check cannot also key off the comment text being non-empty.
func TestReaderTryReadSkipsEmptyTextComment(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF).
		WithReadHeader(ReadHeaderAlways).
		WithComment('#').
		Build()
	assert.NilError(t, err)

	rd := newABReader(t, "A,B\r\n#\r\n1,2\r\n", o, false)

	row, ok, err := rd.TryRead()
	assert.NilError(t, err)
	assert.Check(t, ok)
	assert.Equal(t, row.A, "1")
	assert.Equal(t, row.B, "2")

	_, ok, err = rd.TryRead()
	assert.NilError(t, err)
	assert.Check(t, !ok)
}

// Scenario 5: a missing required column poisons the reader.
func TestReaderRequiredColumnMissingPoisons(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\n1\r\n", opts, true)

	_, ok, err := rd.TryRead()
	assert.Check(t, !ok)
	assert.Check(t, cmp.ErrorType(err, &RequiredColumnError{}))

	// a poisoned reader reports Poisoned without re-running the parse.
	_, ok, err = rd.TryRead()
	assert.Check(t, !ok)
	assert.Check(t, cmp.ErrorType(err, &PoisonedError{}))
}

func TestReaderHeaderReorderedColumnsStillBind(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "B,A\r\n2,1\r\n", opts, false)

	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].A, "1")
	assert.Equal(t, rows[0].B, "2")
}

func TestReaderReadHeaderNeverUsesDeclaredOrdinals(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF).
		WithReadHeader(ReadHeaderNever).
		Build()
	assert.NilError(t, err)

	rd := newABReader(t, "1,2\r\n3,4\r\n", o, false)
	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0].A, "1")
	assert.Equal(t, rows[1].B, "4")
}

func TestReaderReadHeaderDetectFirstRowNotHeaderIsReplayed(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF).
		WithReadHeader(ReadHeaderDetect).
		Build()
	assert.NilError(t, err)

	// Neither "9" nor "8" matches a declared column name, so Detect must
	// treat this first record as data, not a header.
	rd := newABReader(t, "9,8\r\n7,6\r\n", o, false)
	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0].A, "9")
	assert.Equal(t, rows[0].B, "8")
	assert.Equal(t, rows[1].A, "7")
	assert.Equal(t, rows[1].B, "6")
}

func TestReaderRowEndingDetectLF(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingDetect).
		WithReadHeader(ReadHeaderAlways).
		Build()
	assert.NilError(t, err)

	rd := newABReader(t, "A,B\n1,2\n3,4\n", o, false)
	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[1].B, "4")
}

func TestReaderRowEndingDetectLoneCR(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingDetect).
		WithReadHeader(ReadHeaderAlways).
		Build()
	assert.NilError(t, err)

	rd := newABReader(t, "A,B\r1,2\r3,4\r", o, false)
	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 2)
	assert.Equal(t, rows[0].A, "1")
	assert.Equal(t, rows[1].B, "4")
}

func TestReaderTryReadWithReuseAvoidsAllocatingPerRow(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\n1,2\r\n3,4\r\n", opts, false)

	var dst ab
	ok, err := rd.TryReadWithReuse(t.Context(), &dst)
	assert.NilError(t, err)
	assert.Check(t, ok)
	assert.Equal(t, dst.A, "1")

	ok, err = rd.TryReadWithReuse(t.Context(), &dst)
	assert.NilError(t, err)
	assert.Check(t, ok)
	assert.Equal(t, dst.A, "3")

	ok, err = rd.TryReadWithReuse(t.Context(), &dst)
	assert.NilError(t, err)
	assert.Check(t, !ok)
}

func TestReaderTryReadWithReuseRejectsNeedsHold(t *testing.T) {
	opts := defaultDialect(t)
	provider := func(_ *ReadContext, _ *Hold) (*ab, error) { return &ab{}, nil }
	rd := NewReader(strings.NewReader("A,B\r\n1,2\r\n"), opts, ConstructNeedsHold, provider, abIntColumns(false), nil)

	var dst ab
	_, err := rd.TryReadWithReuse(t.Context(), &dst)
	assert.Check(t, cmp.ErrorType(err, &ConfigError{}))
}

func TestReaderNeedsHoldConstructorSeesAllColumns(t *testing.T) {
	opts := defaultDialect(t)
	var gotA string
	var gotB int
	provider := func(_ *ReadContext, hold *Hold) (*ab, error) {
		if v, ok := hold.get(0); ok {
			gotA = v.(string)
		}
		if v, ok := hold.get(1); ok {
			gotB = v.(int)
		}
		return &ab{}, nil
	}
	aCol := NewColumn[ab, string]("A", 0,
		func(_ *ReadContext, raw string) (string, error) { return raw, nil },
		func(_ *ReadContext, row *ab, v string) error { row.A = v; return nil },
	)
	bCol := NewColumn[ab, int]("B", 1,
		func(_ *ReadContext, raw string) (int, error) { return strconv.Atoi(raw) },
		func(_ *ReadContext, row *ab, v int) error { row.B = strconv.Itoa(v); return nil },
	)
	rd := NewReader[ab](strings.NewReader("A,B\r\n1,2\r\n"), opts, ConstructNeedsHold, provider, []ColumnReader[ab]{aCol, bCol}, nil)

	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, gotA, "1")
	assert.Equal(t, gotB, 2)
	assert.Equal(t, rows[0].A, "1")
	assert.Equal(t, rows[0].B, "2")
}

func TestReaderCommentOnlyRecordNeverInvokesConstructor(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF).
		WithReadHeader(ReadHeaderAlways).
		WithComment('#').
		Build()
	assert.NilError(t, err)

	constructed := false
	provider := func(_ *ReadContext, _ *Hold) (*ab, error) {
		constructed = true
		return &ab{}, nil
	}
	rd := NewReader(strings.NewReader("A,B\r\n#only a comment\r\n"), o, ConstructSimple, provider, abIntColumns(false), nil)

	_, ok, err := rd.TryRead()
	assert.NilError(t, err)
	assert.Check(t, !ok)
	assert.Check(t, !constructed)
}

func TestReaderSyntaxErrorPoisonsAndStaysPoisoned(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\n\"unterminated,x\r\n", opts, false)

	_, ok, err := rd.TryRead()
	assert.Check(t, !ok)
	assert.Check(t, cmp.ErrorType(err, &SyntaxError{}))

	_, ok, err = rd.TryRead()
	assert.Check(t, !ok)
	assert.Check(t, cmp.ErrorType(err, &PoisonedError{}))
}

func TestReaderResetReusesBuffersAcrossStreams(t *testing.T) {
	opts := defaultDialect(t)
	rd := newABReader(t, "A,B\r\n1,2\r\n", opts, false)

	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)

	rd.Reset(strings.NewReader("A,B\r\n9,8\r\n"))
	rows, err = rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].A, "9")
	assert.Equal(t, rows[0].B, "8")
}

func TestReaderWhitespaceTrimBeforeValuesCollapsesBlankRuns(t *testing.T) {
	o, err := NewBuilder().
		WithValueSeparator(',').
		WithEscape('"').
		WithRowEnding(RowEndingCRLF).
		WithReadHeader(ReadHeaderNever).
		WithWhitespace(TrimBeforeValues).
		Build()
	assert.NilError(t, err)

	rd := newABReader(t, "   ,   \r\n", o, false)
	rows, err := rd.ReadAll()
	assert.NilError(t, err)
	assert.Equal(t, len(rows), 1)
	assert.Equal(t, rows[0].A, "")
	assert.Equal(t, rows[0].B, "")
}
