package viewport

// Window is the half-open row index range [Start, End) that must be materialized.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows in the window.
func (w Window) Len() int {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// Contains reports whether row index i is inside the window.
func (w Window) Contains(i int) bool {
	return i >= w.Start && i < w.End
}

// Compute derives the visible window in O(1).
// Every row whose pixel span [i*rowHeight, (i+1)*rowHeight) intersects
// [offset, offset+height) is covered, plus overscan rows on each side,
// clamped to [0, total).
func Compute(offset, height, rowHeight, total, overscan int) Window {
	if total <= 0 || rowHeight <= 0 {
		return Window{}
	}
	if offset < 0 {
		offset = 0
	}
	if height < 0 {
		height = 0
	}
	if overscan < 0 {
		overscan = 0
	}

	first := offset / rowHeight
	last := (offset + height + rowHeight - 1) / rowHeight // ceil
	if last <= first {
		// Zero-height viewport still shows the row under the offset.
		last = first + 1
	}

	start := first - overscan
	end := last + overscan

	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return Window{Start: start, End: end}
}

// MaxOffset is the largest scroll offset that still fills the viewport.
func MaxOffset(height, rowHeight, total int) int {
	m := total*rowHeight - height
	if m < 0 {
		return 0
	}
	return m
}
