package cesil

import "context"

// header pairs a discovered header name with whether it arrived escaped.
type header struct {
	name    string
	escaped bool
}

// headerSet is the result of readHeaders: the ordered header names plus
// whether the record actually looked like a header row.
type headerSet struct {
	headers      []header
	isHeaderLike bool
}

// readHeaders scans records from buf until it finds the header candidate:
// any comment records encountered first are reported to onComment, in
// source order, rather than being discarded (a stream may open with
// comment lines before its header, and comments and records must stay in
// source order regardless of which component is driving the scan). The
// first non-comment record's fields become the
// returned headerSet; isHeaderLike reports whether any of those strings
// matched a name in declaredColumns, which callers with ReadHeaderDetect
// use to decide whether the record they just consumed was really a header
// or the first data row (in which case the caller is responsible for
// replaying its fields into the row constructor instead of discarding
// them).
func readHeaders(ctx context.Context, buf *pushbackBuffer, adapter InputAdapter, table *transitionTable, pool *CharPool, guard *pin, resolved RowEnding, ws WhitespaceTreatment, declaredColumns map[string]struct{}, onComment func(string)) (headerSet, record, error) {
	for {
		rec, err := scanRecord(ctx, buf, adapter, table, pool, guard, resolved, ws)
		if err != nil {
			return headerSet{}, record{}, err
		}
		if rec.kind == recordComment {
			if onComment != nil {
				onComment(rec.comment)
			}
			continue
		}
		if rec.kind != recordFields {
			return headerSet{}, rec, nil
		}

		hs := headerSet{headers: make([]header, len(rec.fields))}
		for i, f := range rec.fields {
			hs.headers[i] = header{name: f.text, escaped: f.escaped}
			if _, ok := declaredColumns[f.text]; ok {
				hs.isHeaderLike = true
			}
		}
		return hs, rec, nil
	}
}

// indexByName builds an ordinal name -> record-column-index map from a
// discovered header set, for binding declared columns (which know their
// name but not necessarily their physical position) to the positions
// present in this particular stream.
func (hs headerSet) indexByName() map[string]int {
	m := make(map[string]int, len(hs.headers))
	for i, h := range hs.headers {
		m[h.name] = i
	}
	return m
}
