package cesil

import (
	"context"
	"errors"
	"io"
)

// detectRowEnding drives the shared transition table over the first
// record (or leading comments) with resolved row ending held at
// RowEndingDetect, watching which path the grammar takes to its first
// terminator. It freezes on the first unambiguous observation and pushes
// every character it consumed back onto buf, so normal parsing re-observes
// the whole probed record from its first character.
//
// Characters consumed during detection are never lost: detection reads
// from the very same buffer the real reader will use afterward, and
// rewinds via PushBack on every successful return.
func detectRowEnding(ctx context.Context, buf *pushbackBuffer, adapter InputAdapter, table *transitionTable) (RowEnding, error) {
	state := stateRecordStart
	sawCR := false
	atStart := true
	// consumed tracks every rune this function has pulled via buf.Next, so
	// the whole probed record can be rewound once detection locks in a
	// choice: detection only classifies the grammar's shape, it never
	// captures field text, so the real reader (headers or data) must
	// re-observe every one of these characters to actually build the
	// record's fields.
	consumed := 0

	for {
		r, ok := buf.Next()
		if !ok {
			n, err := buf.Refill(ctx, adapter)
			if n == 0 {
				if errors.Is(err, io.EOF) {
					_, _, ok := finishedAtEOF(state, 0)
					if ok {
						buf.PushBack(consumed)
						if sawCR {
							return RowEndingCRLF, nil
						}
						return RowEndingLF, nil
					}
					return 0, &SyntaxError{Kind: UnexpectedEnd}
				}
				if err != nil {
					return 0, err
				}
			}
			continue
		}
		consumed++

		next, result, kind := table.Advance(state, r, RowEndingDetect, atStart)
		atStart = false

		if result == arException {
			if (state == stateExpectingLF || state == stateCommentExpectingLF) && kind == ExpectedEndOfRecordOrValue {
				// the pending CR was not followed by LF: lock to CR and
				// rewind the entire probed record, including this
				// character, so the real reader starts the record fresh.
				buf.PushBack(consumed)
				return RowEndingCR, nil
			}
			return 0, &SyntaxError{Kind: kind, Row: 0, Column: 0}
		}

		if next == stateExpectingLF || next == stateCommentExpectingLF {
			sawCR = true
		}
		state = next

		switch result {
		case arFinishedLastValueUnescapedRecord, arFinishedLastValueEscapedRecord, arFinishedComment:
			buf.PushBack(consumed)
			if sawCR {
				return RowEndingCRLF, nil
			}
			return RowEndingLF, nil
		}
	}
}
