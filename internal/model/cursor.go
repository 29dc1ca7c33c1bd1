package model

import "strconv"

// Cursor is an opaque continuation token for a paginated fetch.
//
// Two sentinels are kept apart: CursorStart requests the first page and
// CursorEnd marks that no further pages exist. Any other value is the
// identifier of the last item seen.
type Cursor int64

const (
	CursorStart Cursor = 0
	CursorEnd   Cursor = -1
)

// After returns the cursor continuing after the given item.
func After(itemID int64) Cursor {
	if itemID <= 0 {
		return CursorEnd
	}
	return Cursor(itemID)
}

// Done reports whether no further pages exist.
func (c Cursor) Done() bool {
	return c == CursorEnd
}

// FromItemID returns the remote "from item" value; 0 means from the newest item.
func (c Cursor) FromItemID() int64 {
	if c <= 0 {
		return 0
	}
	return int64(c)
}

func (c Cursor) String() string {
	switch c {
	case CursorStart:
		return "start"
	case CursorEnd:
		return "end"
	default:
		return strconv.FormatInt(int64(c), 10)
	}
}
