package cesil

// ConstructionMode picks between the two row-construction strategies.
type ConstructionMode uint8

const (
	// ConstructSimple builds the row instance up front (via
	// InstanceProvider) and applies every column's Setter directly as its
	// field is parsed.
	ConstructSimple ConstructionMode = iota
	// ConstructNeedsHold stages every column's parsed value into a Hold
	// first, builds the row instance from the completed Hold, then replays
	// each column's Setter against the now-existing instance. Used for row
	// types built through a parameterized constructor rather than a
	// zero-value-then-mutate flow.
	ConstructNeedsHold
)

// InstanceProvider produces a row instance. Under ConstructSimple it is
// called before any column is bound and hold is always nil. Under
// ConstructNeedsHold it is called once every declared column has staged
// its value into hold.
type InstanceProvider[R any] func(ctx *ReadContext, hold *Hold) (*R, error)

// RowConstructor drives one record's fields through a row type's declared
// columns, in either construction mode.
type RowConstructor[R any] struct {
	mode     ConstructionMode
	provider InstanceProvider[R]
	ordered  []ColumnReader[R]
	byIndex  map[int]ColumnReader[R]
	slots    int
	required []ColumnReader[R]
}

// NewRowConstructor builds a constructor for R from its declared columns,
// keyed by the record column index each one binds to (its Index(), which
// reader.go rebinds to the header position when a header is read). Declaration
// order is retained in ordered so the NeedsHold replay pass can apply
// Setters in the order columns were declared, not the arbitrary order a
// map would iterate.
func NewRowConstructor[R any](mode ConstructionMode, provider InstanceProvider[R], columns []ColumnReader[R]) *RowConstructor[R] {
	rc := &RowConstructor[R]{
		mode:     mode,
		provider: provider,
		ordered:  columns,
		byIndex:  make(map[int]ColumnReader[R], len(columns)),
	}
	for _, c := range columns {
		rc.byIndex[c.Index()] = c
		if c.Required() {
			rc.required = append(rc.required, c)
		}
		// Hold slots are addressed by a column's record index (the same
		// idx Construct passes through to Bind/replayFromHold), not by
		// declaration position, so the slot count must track the widest
		// index actually declared rather than len(columns).
		if c.Index()+1 > rc.slots {
			rc.slots = c.Index() + 1
		}
	}
	return rc
}

// Construct binds one record's fields into a fresh R, raising
// RequiredColumnError if a required column's index never appeared in
// fields.
func (rc *RowConstructor[R]) Construct(ctx *ReadContext, fields []field) (*R, error) {
	seen := make(map[int]bool, len(fields))

	switch rc.mode {
	case ConstructSimple:
		row, err := rc.provider(ctx, nil)
		if err != nil {
			return nil, wrapCause(err, "instance provider")
		}
		for idx, f := range fields {
			col, ok := rc.byIndex[idx]
			if !ok {
				continue
			}
			seen[idx] = true
			if err := col.Bind(ctx, row, nil, 0, f.text, f.escaped); err != nil {
				return nil, err
			}
		}
		if err := rc.checkRequired(ctx, seen); err != nil {
			return nil, err
		}
		return row, nil

	default: // ConstructNeedsHold
		hold := newHold(rc.slots)
		for idx, f := range fields {
			col, ok := rc.byIndex[idx]
			if !ok {
				continue
			}
			seen[idx] = true
			if err := col.Bind(ctx, nil, hold, idx, f.text, f.escaped); err != nil {
				return nil, err
			}
		}
		if err := rc.checkRequired(ctx, seen); err != nil {
			return nil, err
		}
		row, err := rc.provider(ctx, hold)
		if err != nil {
			return nil, wrapCause(err, "instance provider")
		}
		for _, col := range rc.ordered {
			idx := col.Index()
			if !seen[idx] {
				continue
			}
			if err := replayColumn(col, ctx, row, hold, idx); err != nil {
				return nil, err
			}
		}
		return row, nil
	}
}

// ConstructInto binds one record's fields onto an existing *R, for callers
// that want to avoid allocating a fresh row per record (TryReadWithReuse).
// It is only valid in ConstructSimple mode: a NeedsHold row's identity is
// decided by its instance provider, so there is nothing to reuse into
// before that provider runs.
func (rc *RowConstructor[R]) ConstructInto(ctx *ReadContext, row *R, fields []field) error {
	if rc.mode != ConstructSimple {
		return errNeedsHoldNoReuse
	}
	seen := make(map[int]bool, len(fields))
	for idx, f := range fields {
		col, ok := rc.byIndex[idx]
		if !ok {
			continue
		}
		seen[idx] = true
		if err := col.Bind(ctx, row, nil, 0, f.text, f.escaped); err != nil {
			return err
		}
	}
	return rc.checkRequired(ctx, seen)
}

// replayColumn is a narrow seam so RowConstructor (which only knows the
// type-erased ColumnReader[R] interface) can reach back into the concrete
// *Column[R, T]'s replayFromHold without the interface itself needing to
// expose Hold replay to every implementer.
func replayColumn[R any](col ColumnReader[R], ctx *ReadContext, row *R, hold *Hold, slot int) error {
	type replayer interface {
		replayFromHold(ctx *ReadContext, row *R, hold *Hold, holdSlot int) error
	}
	if r, ok := col.(replayer); ok {
		return r.replayFromHold(ctx, row, hold, slot)
	}
	return nil
}

func (rc *RowConstructor[R]) checkRequired(ctx *ReadContext, seen map[int]bool) error {
	for _, col := range rc.required {
		if !seen[col.Index()] {
			return &RequiredColumnError{Row: ctx.RowNumber, Column: col.Name()}
		}
	}
	return nil
}
