package cesil

import (
	"context"
	"errors"
	"io"
)

// field is one parsed value from a record, still as text: the row
// constructor (component F) is responsible for turning it into a typed
// value via the column's Parser.
type field struct {
	text    string
	escaped bool
}

type recordKind uint8

const (
	recordFields recordKind = iota
	recordComment
	recordEOF
)

// record is the result of scanning one logical line: either an ordered
// list of fields, a comment's text, or EOF with no data observed at all.
type record struct {
	kind    recordKind
	fields  []field
	comment string
}

// scanRecord drives table over buf/adapter until one record-level
// AdvanceResult terminal is reached (a finished record or a finished
// comment), or the input ends. It is the shared engine behind both the
// Headers Reader (component E, called until the first non-comment record)
// and the Reader Pipeline
// (component G, one call per record).
//
// This centralizes "accumulate the current value's characters, watch for a
// terminal AdvanceResult, apply whitespace policy, start the next value"
// for headers and data records alike, rather than duplicating that loop in
// both components, since header parsing and record parsing share the same
// grammar and need not be separate code paths.
func scanRecord(ctx context.Context, buf *pushbackBuffer, adapter InputAdapter, table *transitionTable, pool *CharPool, guard *pin, resolved RowEnding, ws WhitespaceTreatment) (record, error) {
	// Nothing before the read cursor is re-observed once a new record
	// starts, so drop it instead of letting the buffer grow with the stream.
	buf.Commit()

	state := stateRecordStart
	atStart := true
	// escapedBeforeCR records whether the CR that led into stateExpectingLF
	// closed an escaped value: the LF that follows reports the record as
	// unescaped either way.
	escapedBeforeCR := false

	var fields []field
	cur := pool.Rent(32)
	guard.acquire()
	defer func() { guard.release(); pool.Release(cur) }()

	finishValue := func(escaped bool) {
		text := applyWhitespacePolicy(cur, escaped, ws)
		fields = append(fields, field{text: text, escaped: escaped})
		cur = cur[:0]
	}

	for {
		r, ok := buf.Next()
		if !ok {
			n, err := buf.Refill(ctx, adapter)
			if n == 0 {
				if errors.Is(err, io.EOF) {
					res, kind, okFinish := finishedAtEOF(state, len(cur)+len(fields))
					if !okFinish {
						return record{}, &SyntaxError{Kind: kind}
					}
					switch res {
					case 0:
						if len(fields) == 0 {
							return record{kind: recordEOF}, nil
						}
						finishValue(false)
						return record{kind: recordFields, fields: fields}, nil
					case arFinishedComment:
						return record{kind: recordComment, comment: string(cur)}, nil
					case arFinishedLastValueEscapedRecord:
						finishValue(true)
						return record{kind: recordFields, fields: fields}, nil
					default:
						// arFinishedLastValueUnescapedRecord.
						finishValue(state == stateExpectingLF && escapedBeforeCR)
						return record{kind: recordFields, fields: fields}, nil
					}
				}
				if err != nil {
					return record{}, err
				}
			}
			continue
		}

		next, result, kind := table.Advance(state, r, resolved, atStart)
		atStart = false

		switch result {
		case arException:
			return record{}, &SyntaxError{Kind: kind}
		case arSkip:
			// nothing accumulated
		case arAppendChar:
			cur = append(cur, r)
		case arAppendCRThenChar:
			cur = append(cur, '\r')
			buf.PushBack(1)
		case arFinishedUnescapedValue:
			finishValue(false)
		case arFinishedEscapedValue:
			finishValue(true)
		case arFinishedLastValueUnescapedRecord:
			finishValue(state == stateExpectingLF && escapedBeforeCR)
			return record{kind: recordFields, fields: fields}, nil
		case arFinishedLastValueEscapedRecord:
			finishValue(true)
			return record{kind: recordFields, fields: fields}, nil
		case arFinishedComment:
			text := string(cur)
			return record{kind: recordComment, comment: text}, nil
		}

		if next == stateExpectingLF {
			escapedBeforeCR = state == stateInEscapeEscape
		}
		state = next
	}
}

// applyWhitespacePolicy trims raw according to policy: leading whitespace is
// stripped when TrimLeadingInValues is set; trailing whitespace is
// stripped when TrimTrailingInValues is set, or when TrimAfterValues is
// set and the value was not escaped (an escaped value's trailing
// whitespace is part of the quoted literal unless the caller asked for it
// unconditionally via TrimTrailingInValues).
func applyWhitespacePolicy(raw []rune, escaped bool, ws WhitespaceTreatment) string {
	start, end := 0, len(raw)

	if ws.has(TrimLeadingInValues) {
		for start < end && isWhitespaceRune(raw[start]) {
			start++
		}
	}
	if ws.has(TrimTrailingInValues) || (ws.has(TrimAfterValues) && !escaped) {
		for end > start && isWhitespaceRune(raw[end-1]) {
			end--
		}
	}
	return string(raw[start:end])
}
