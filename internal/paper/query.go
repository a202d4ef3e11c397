package paper

// Query is a keyword search request shared by every search source.
// Zero values mean "no constraint".
type Query struct {
	Text          string
	YearFrom      int
	YearTo        int
	MinCitations  int
	MaxResults    int
	FieldsOfStudy []string
}

// HasYearRange reports whether both ends of the year range are set.
func (q Query) HasYearRange() bool {
	return q.YearFrom > 0 && q.YearTo > 0
}
