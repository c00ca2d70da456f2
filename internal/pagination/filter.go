package pagination

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sidpg123/filemate-be/internal/db"
)

// Filter narrows a paginated query by one column. Each variant carries its
// own operands, so a handler cannot smuggle raw SQL through a filter value.
type Filter interface {
	apply(conn, q *gorm.DB) *gorm.DB
}

// Equals matches rows whose column equals the value exactly.
type Equals struct {
	Column string
	Value  any
}

func (f Equals) apply(_, q *gorm.DB) *gorm.DB {
	return q.Where(fmt.Sprintf("%s = ?", f.Column), f.Value)
}

// Contains matches rows whose column contains the term, case-insensitively.
type Contains struct {
	Column string
	Term   string
}

func (f Contains) apply(conn, q *gorm.DB) *gorm.DB {
	pattern := db.NormalizeLikePattern(conn, "%"+f.Term+"%")
	return q.Where(db.CaseInsensitiveLikeExpr(conn, f.Column), pattern)
}

// Range matches rows whose column falls inside [Min, Max]. Either bound may
// be nil to leave that side open.
type Range struct {
	Column string
	Min    any
	Max    any
}

func (f Range) apply(_, q *gorm.DB) *gorm.DB {
	if f.Min != nil {
		q = q.Where(fmt.Sprintf("%s >= ?", f.Column), f.Min)
	}
	if f.Max != nil {
		q = q.Where(fmt.Sprintf("%s <= ?", f.Column), f.Max)
	}
	return q
}

// ApplyFilters applies every filter to q. conn is the root connection used to
// pick dialect-specific expressions.
func ApplyFilters(conn, q *gorm.DB, filters ...Filter) *gorm.DB {
	for _, f := range filters {
		q = f.apply(conn, q)
	}
	return q
}
