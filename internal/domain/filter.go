package domain

// DateRange bounds documents by creation time. Either side may be zero.
type DateRange struct {
	Start int64 // unix milliseconds, inclusive
	End   int64 // unix milliseconds, inclusive
}

// SearchFilter is the structured predicate set passed to the index.
// Each clause is either absent (empty slice) or a non-empty match set.
type SearchFilter struct {
	DocumentTypes []string
	Categories    []string
	Departments   []string
	Tags          []string
	DateRange     *DateRange
}

// IsEmpty reports whether no clause is set.
func (f SearchFilter) IsEmpty() bool {
	return len(f.DocumentTypes) == 0 &&
		len(f.Categories) == 0 &&
		len(f.Departments) == 0 &&
		len(f.Tags) == 0 &&
		f.DateRange == nil
}
