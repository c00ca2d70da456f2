package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Names the two dialects the DSN sniffing in Open can produce.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DialectName reports which dialect the connection runs on, empty when the
// connection carries no dialector.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether conn is the SQLite path used by tests.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveLikeExpr builds the case-insensitive LIKE predicate for one
// column: ILIKE on postgres, LOWER + LIKE on sqlite. Pair the sqlite form with
// NormalizeLikePattern or the match stays case-sensitive on one side.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("LOWER(%s) LIKE ?", column)
	}
	return fmt.Sprintf("%s ILIKE ?", column)
}

// NormalizeLikePattern lowercases the pattern on sqlite so it matches what
// CaseInsensitiveLikeExpr compares against; postgres patterns pass through.
func NormalizeLikePattern(conn *gorm.DB, pattern string) string {
	if IsSQLite(conn) {
		return strings.ToLower(pattern)
	}
	return pattern
}

// GreatestExpr returns the dialect spelling of GREATEST over two operands.
// SQLite spells the multi-argument form MAX.
func GreatestExpr(conn *gorm.DB, a, b string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("MAX(%s, %s)", a, b)
	}
	return fmt.Sprintf("GREATEST(%s, %s)", a, b)
}
