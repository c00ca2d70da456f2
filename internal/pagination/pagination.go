package pagination

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Page size bounds applied to every list endpoint.
const (
	// DefaultLimit is used when the client omits or mangles the limit param.
	DefaultLimit = 10
	// MaxLimit caps the page size regardless of what the client asks for.
	MaxLimit = 50
)

// ClampLimit parses a raw limit query param and clamps it to [1, MaxLimit].
func ClampLimit(raw string) int {
	limit, errParse := strconv.Atoi(strings.TrimSpace(raw))
	if errParse != nil || limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Cursor identifies the last-seen row of a page by its primary sort value and
// row ID. The ID is the tie-breaker that keeps the order total when the sort
// column has duplicates. Resumption compares against these values only, so a
// cursor row that has since been deleted still resumes correctly.
type Cursor struct {
	At time.Time // Primary sort value of the last-seen row.
	ID uint64    // Row ID of the last-seen row.
}

// FromQuery builds a cursor from the two query params carrying it. A partial
// or malformed cursor is treated as absent: the traversal restarts from the
// beginning rather than failing the request.
func FromQuery(atRaw, idRaw string) *Cursor {
	atRaw = strings.TrimSpace(atRaw)
	idRaw = strings.TrimSpace(idRaw)
	if atRaw == "" || idRaw == "" {
		return nil
	}
	at, errAt := time.Parse(time.RFC3339Nano, atRaw)
	if errAt != nil {
		return nil
	}
	id, errID := strconv.ParseUint(idRaw, 10, 64)
	if errID != nil {
		return nil
	}
	return &Cursor{At: at, ID: id}
}

// Encode returns the wire representation of the cursor's sort value.
func (c *Cursor) Encode() string {
	return c.At.UTC().Format(time.RFC3339Nano)
}

// Sort describes the primary sort column and direction. Every paginated query
// is additionally ordered by id in the same direction as the tie-break.
type Sort struct {
	Column string // Primary sort column name.
	Desc   bool   // True for newest-first ordering.
}

// OrderClause renders the full ORDER BY expression including the tie-break.
func (s Sort) OrderClause() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", s.Column, dir, dir)
}

// cursorClause renders the strict tuple comparison that starts the next page
// after the cursor position. Equality-based seeks would break when the cursor
// row has been deleted; the tuple comparison does not.
func (s Sort) cursorClause() string {
	op := ">"
	if s.Desc {
		op = "<"
	}
	return fmt.Sprintf("(%s %s ? OR (%s = ? AND id %s ?))", s.Column, op, s.Column, op)
}

// Result is one page of rows plus the cursor for the page after it.
type Result[T any] struct {
	Data       []T     // At most the requested limit of rows.
	NextCursor *Cursor // Cursor for the following page, nil on the last page.
	HasMore    bool    // Whether a following page exists.
}

// Paginate fetches one page of rows from q using keyset pagination. It reads
// limit+1 rows ordered by sort; when all arrive, the extra row proves a next
// page exists and the cursor is taken from the last row kept, via key.
func Paginate[T any](q *gorm.DB, sort Sort, cur *Cursor, limit int, key func(*T) Cursor) (Result[T], error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if cur != nil {
		q = q.Where(sort.cursorClause(), cur.At, cur.At, cur.ID)
	}

	var rows []T
	if errFind := q.Order(sort.OrderClause()).Limit(limit + 1).Find(&rows).Error; errFind != nil {
		return Result[T]{}, errFind
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	result := Result[T]{Data: rows, HasMore: hasMore}
	if hasMore && len(rows) > 0 {
		next := key(&rows[len(rows)-1])
		result.NextCursor = &next
	}
	return result, nil
}
