// Package filter defines a typed boolean predicate tree over recordings and
// their tags. Services build trees; the store adapter renders them to
// parameterized SQL. Values never reach the query text directly.
package filter

type Expr interface {
	expr()
}

// True matches every recording.
type True struct{}

type Not struct {
	Expr Expr
}

// And and Or are n-ary. An empty And renders as TRUE, an empty Or as FALSE.
type And []Expr

type Or []Expr

// Cond compares a column in the current scope (recording columns at the top
// level, tag columns inside a TagExists) against a value.
type Cond struct {
	Column string
	Op     string // "=", "!=", "<", "<=", ">", ">=", "IN"
	Value  any
}

// Null tests a column for NULL (or NOT NULL when Negate is set).
type Null struct {
	Column string
	Negate bool
}

// TagExists is satisfied when a tag matching Where exists for the recording.
// Track selects track-level tags, scanning active tracks only; otherwise
// recording-level tags are scanned.
type TagExists struct {
	Track bool
	Where Expr
}

func (True) expr()      {}
func (Not) expr()       {}
func (And) expr()       {}
func (Or) expr()        {}
func (Cond) expr()      {}
func (Null) expr()      {}
func (TagExists) expr() {}

func Eq(column string, value any) Cond {
	return Cond{Column: column, Op: "=", Value: value}
}

func Ne(column string, value any) Cond {
	return Cond{Column: column, Op: "!=", Value: value}
}

func In(column string, values any) Cond {
	return Cond{Column: column, Op: "IN", Value: values}
}
