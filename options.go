package cesil

import "fmt"

// RowEnding selects the record terminator a dialect uses.
type RowEnding int

const (
	// RowEndingDetect infers CR, LF, or CRLF from the first record.
	RowEndingDetect RowEnding = iota
	RowEndingCR
	RowEndingLF
	RowEndingCRLF
)

func (r RowEnding) valid() bool {
	return r >= RowEndingDetect && r <= RowEndingCRLF
}

// ReadHeaderPolicy controls whether the first record is consumed as a
// header row.
type ReadHeaderPolicy int

const (
	ReadHeaderDetect ReadHeaderPolicy = iota
	ReadHeaderAlways
	ReadHeaderNever
)

func (p ReadHeaderPolicy) valid() bool {
	return p >= ReadHeaderDetect && p <= ReadHeaderNever
}

// WriteHeaderPolicy controls whether the writer emits a header record.
type WriteHeaderPolicy int

const (
	WriteHeaderNever WriteHeaderPolicy = iota
	WriteHeaderAlways
)

func (p WriteHeaderPolicy) valid() bool {
	return p == WriteHeaderNever || p == WriteHeaderAlways
}

// TrailingRowEndingPolicy controls whether the writer emits a final record
// separator after the last row.
type TrailingRowEndingPolicy int

const (
	TrailingRowEndingNever TrailingRowEndingPolicy = iota
	TrailingRowEndingAlways
)

func (p TrailingRowEndingPolicy) valid() bool {
	return p == TrailingRowEndingNever || p == TrailingRowEndingAlways
}

// WhitespaceTreatment is a flag set controlling how surrounding whitespace
// is treated around values.
type WhitespaceTreatment uint8

const (
	WhitespacePreserve WhitespaceTreatment = 0
	// TrimBeforeValues skips leading whitespace before a value starts,
	// inside the state machine itself.
	TrimBeforeValues WhitespaceTreatment = 1 << iota
	// TrimAfterValues strips trailing whitespace from a finished,
	// unescaped value.
	TrimAfterValues
	// TrimLeadingInValues strips leading whitespace from the stored span
	// of any value (escaped or not).
	TrimLeadingInValues
	// TrimTrailingInValues strips trailing whitespace from the stored span
	// of any value (escaped or not).
	TrimTrailingInValues
)

func (w WhitespaceTreatment) has(flag WhitespaceTreatment) bool { return w&flag != 0 }

// DynamicRowDisposal controls what a dynamic-mode reader does with rows the
// caller does not consume. It only affects the external dynamic row path.
type DynamicRowDisposal int

const (
	DynamicRowDisposalIgnore DynamicRowDisposal = iota
	DynamicRowDisposalPanic
)

// Options is an immutable, shareable dialect and buffering configuration.
// Build one with [NewBuilder] and [Builder.Build].
type Options struct {
	valueSeparator        rune
	hasEscape             bool
	escapeStartEnd        rune
	hasEscapeChar         bool
	escapeChar            rune
	hasComment            bool
	commentChar           rune
	rowEnding             RowEnding
	readHeader            ReadHeaderPolicy
	writeHeader           WriteHeaderPolicy
	writeTrailingRowEnd   TrailingRowEndingPolicy
	writeBufferSizeHint   *int
	readBufferSizeHint    int
	dynamicRowDisposal    DynamicRowDisposal
	whitespace            WhitespaceTreatment

	classifier *classifier
	table      *transitionTable
}

// ValueSeparator returns the configured field delimiter.
func (o *Options) ValueSeparator() rune { return o.valueSeparator }

// EscapeStartEnd returns the configured quote character and whether one is
// configured at all.
func (o *Options) EscapeStartEnd() (rune, bool) { return o.escapeStartEnd, o.hasEscape }

// EscapeChar returns the configured in-escape doubling character and
// whether one is configured.
func (o *Options) EscapeChar() (rune, bool) { return o.escapeChar, o.hasEscapeChar }

// CommentChar returns the configured comment-line character and whether
// one is configured.
func (o *Options) CommentChar() (rune, bool) { return o.commentChar, o.hasComment }

// RowEnding returns the configured row-ending policy.
func (o *Options) RowEnding() RowEnding { return o.rowEnding }

// ReadHeader returns the configured read-header policy.
func (o *Options) ReadHeader() ReadHeaderPolicy { return o.readHeader }

// WriteHeader returns the configured write-header policy.
func (o *Options) WriteHeader() WriteHeaderPolicy { return o.writeHeader }

// WriteTrailingRowEnding returns the configured trailing-separator policy.
func (o *Options) WriteTrailingRowEnding() TrailingRowEndingPolicy { return o.writeTrailingRowEnd }

// ReadBufferSizeHint returns the configured read buffer size hint (0 means
// "use the library default").
func (o *Options) ReadBufferSizeHint() int { return o.readBufferSizeHint }

// WriteBufferSizeHint returns the configured write buffer size hint and
// whether one was set at all; a hint of 0 disables write buffering.
func (o *Options) WriteBufferSizeHint() (int, bool) {
	if o.writeBufferSizeHint == nil {
		return 0, false
	}
	return *o.writeBufferSizeHint, true
}

// Whitespace returns the configured whitespace treatment flags.
func (o *Options) Whitespace() WhitespaceTreatment { return o.whitespace }

// DynamicRowDisposal returns the configured disposal policy for unconsumed
// dynamic rows.
func (o *Options) DynamicRowDisposal() DynamicRowDisposal { return o.dynamicRowDisposal }

// Builder accumulates dialect and buffering settings before validation.
// Create one with NewBuilder, whose defaults are a comma separator, no
// escape or comment character, row-ending detection, header detection on
// read, a header always written, and no trailing row ending.
type Builder struct {
	o Options

	escapeSet      bool
	escapeCharSet  bool
	commentSet     bool
}

// NewBuilder returns a Builder seeded with common defaults.
func NewBuilder() *Builder {
	b := &Builder{
		o: Options{
			valueSeparator:      ',',
			rowEnding:           RowEndingDetect,
			readHeader:          ReadHeaderDetect,
			writeHeader:         WriteHeaderAlways,
			writeTrailingRowEnd: TrailingRowEndingNever,
			readBufferSizeHint:  0,
		},
	}
	return b
}

// WithValueSeparator sets the field delimiter.
func (b *Builder) WithValueSeparator(r rune) *Builder {
	b.o.valueSeparator = r
	return b
}

// WithEscape sets the opening/closing quote character. The within-escape
// doubling character is set separately with WithEscapeChar and defaults to
// startEnd itself. An escape-escape character requires an escape-start
// character.
func (b *Builder) WithEscape(startEnd rune) *Builder {
	b.o.escapeStartEnd = startEnd
	b.o.hasEscape = true
	b.escapeSet = true
	return b
}

// WithEscapeChar sets the within-escape doubling character.
func (b *Builder) WithEscapeChar(c rune) *Builder {
	b.o.escapeChar = c
	b.o.hasEscapeChar = true
	b.escapeCharSet = true
	return b
}

// WithComment enables comment-line recognition starting with c.
func (b *Builder) WithComment(c rune) *Builder {
	b.o.commentChar = c
	b.o.hasComment = true
	b.commentSet = true
	return b
}

// WithRowEnding sets the row-ending policy.
func (b *Builder) WithRowEnding(r RowEnding) *Builder {
	b.o.rowEnding = r
	return b
}

// WithReadHeader sets the read-header policy.
func (b *Builder) WithReadHeader(p ReadHeaderPolicy) *Builder {
	b.o.readHeader = p
	return b
}

// WithWriteHeader sets the write-header policy.
func (b *Builder) WithWriteHeader(p WriteHeaderPolicy) *Builder {
	b.o.writeHeader = p
	return b
}

// WithWriteTrailingRowEnding sets whether a final row separator is emitted.
func (b *Builder) WithWriteTrailingRowEnding(p TrailingRowEndingPolicy) *Builder {
	b.o.writeTrailingRowEnd = p
	return b
}

// WithReadBufferSizeHint sets the initial read buffer capacity; 0 uses the
// library default.
func (b *Builder) WithReadBufferSizeHint(n int) *Builder {
	b.o.readBufferSizeHint = n
	return b
}

// WithWriteBufferSizeHint sets the staging buffer capacity; 0 disables
// write buffering (every Write flushes immediately).
func (b *Builder) WithWriteBufferSizeHint(n int) *Builder {
	b.o.writeBufferSizeHint = &n
	return b
}

// WithWhitespace sets the whitespace treatment flag set.
func (b *Builder) WithWhitespace(w WhitespaceTreatment) *Builder {
	b.o.whitespace = w
	return b
}

// WithDynamicRowDisposal sets the disposal policy for the external dynamic
// row path.
func (b *Builder) WithDynamicRowDisposal(d DynamicRowDisposal) *Builder {
	b.o.dynamicRowDisposal = d
	return b
}

func isWhitespaceRune(r rune) bool { return r == ' ' || r == '\t' }

// Build validates the accumulated settings and returns an immutable,
// shareable Options, memoizing the character classifier and state
// transition table for this dialect.
func (b *Builder) Build() (*Options, error) {
	o := b.o

	if !o.rowEnding.valid() {
		return nil, &ConfigError{Field: "row_ending", Err: fmt.Errorf("unknown value %d", o.rowEnding)}
	}
	if !o.readHeader.valid() {
		return nil, &ConfigError{Field: "read_header", Err: fmt.Errorf("unknown value %d", o.readHeader)}
	}
	if !o.writeHeader.valid() {
		return nil, &ConfigError{Field: "write_header", Err: fmt.Errorf("unknown value %d", o.writeHeader)}
	}
	if !o.writeTrailingRowEnd.valid() {
		return nil, &ConfigError{Field: "write_trailing_row_ending", Err: fmt.Errorf("unknown value %d", o.writeTrailingRowEnd)}
	}
	if o.readBufferSizeHint < 0 {
		return nil, &ConfigError{Field: "read_buffer_size_hint", Err: fmt.Errorf("must be non-negative, got %d", o.readBufferSizeHint)}
	}
	if o.writeBufferSizeHint != nil && *o.writeBufferSizeHint < 0 {
		return nil, &ConfigError{Field: "write_buffer_size_hint", Err: fmt.Errorf("must be non-negative, got %d", *o.writeBufferSizeHint)}
	}
	if b.escapeCharSet && !b.escapeSet {
		return nil, &ConfigError{Field: "escaped_value_escape_character", Err: fmt.Errorf("requires escaped_value_start_and_end to be set")}
	}
	if !b.escapeCharSet && b.escapeSet {
		// default the escape-escape character to the escape-start
		// character, the common "" doubling convention.
		o.escapeChar = o.escapeStartEnd
		o.hasEscapeChar = true
	}

	if o.hasEscape && o.valueSeparator == o.escapeStartEnd {
		return nil, &ConfigError{Field: "escaped_value_start_and_end", Err: fmt.Errorf("must differ from value_separator")}
	}
	if o.hasComment && o.valueSeparator == o.commentChar {
		return nil, &ConfigError{Field: "comment_character", Err: fmt.Errorf("must differ from value_separator")}
	}
	if o.hasEscape && o.hasComment && o.escapeStartEnd == o.commentChar {
		return nil, &ConfigError{Field: "comment_character", Err: fmt.Errorf("must differ from escaped_value_start_and_end")}
	}

	if o.whitespace != WhitespacePreserve {
		forbidden := []rune{o.valueSeparator}
		if o.hasEscape {
			forbidden = append(forbidden, o.escapeStartEnd)
		}
		if o.hasComment {
			forbidden = append(forbidden, o.commentChar)
		}
		for _, r := range forbidden {
			if isWhitespaceRune(r) {
				return nil, &ConfigError{Field: "whitespace_treatment", Err: fmt.Errorf("dialect character %q cannot be whitespace when trimming is enabled", r)}
			}
		}
	}

	cls, err := newClassifier(&o)
	if err != nil {
		return nil, err
	}
	o.classifier = cls
	o.table = newTransitionTable(&o)

	return &o, nil
}
