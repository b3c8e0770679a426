package domain

// ListQuery is a grid-style page request. OrderColumn indexes into the
// per-resource column list; out of range falls back to the default column.
type ListQuery struct {
	Draw        int
	Search      string
	OrderColumn int
	Descending  bool
	Start       int
	Length      int
}

const (
	DefaultPageLength = 10
	MaxPageLength     = 100
)

// Normalize clamps paging values into a usable range.
func (q ListQuery) Normalize() ListQuery {
	if q.Draw <= 0 {
		q.Draw = 1
	}
	if q.Start < 0 {
		q.Start = 0
	}
	if q.Length <= 0 {
		q.Length = DefaultPageLength
	}
	if q.Length > MaxPageLength {
		q.Length = MaxPageLength
	}
	if q.OrderColumn < 0 {
		q.OrderColumn = 0
	}
	return q
}

// Page is one slice of a listing together with the counts a grid needs.
type Page[T any] struct {
	Draw     int
	Total    int
	Filtered int
	Items    []T
}

// Scope restricts part and inventory listings to a single part type.
type Scope struct {
	PartTypeID int64
	Restricted bool
}
