package browse

// Cursor remembers where a pattern search left off in the active document.
// Line holds the line of the last match, or the document length once the
// scan exhausted the document. The cursor is dropped whenever the active
// document changes, so it can never address lines of a different document.
type Cursor struct {
	Pattern string
	Line    int
}

// FindFrom selects where a pattern scan resumes. The zero value is invalid;
// construct with FromStart or AfterLine.
type FindFrom struct {
	line      int
	fromStart bool
}

// FromStart scans from the first line.
func FromStart() FindFrom { return FindFrom{fromStart: true} }

// AfterLine resumes the scan strictly after the given line.
func AfterLine(n int) FindFrom { return FindFrom{line: n} }
