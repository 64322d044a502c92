package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialects recognised from DSNs and open connections.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// likeEscaper makes %, _ and \ in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Dialect names the dialect behind conn, or "" for a nil connection.
func Dialect(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// CaseInsensitiveLikeExpr returns a WHERE fragment comparing column against one
// placeholder bound to a ContainsPattern value.
// SQLite lacks ILIKE, so both sides are lowered there.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	if Dialect(conn) == DialectSQLite {
		return fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column)
	}
	return column + " ILIKE ?"
}

// ContainsPattern wraps an escaped term in wildcards for CaseInsensitiveLikeExpr.
func ContainsPattern(conn *gorm.DB, term string) string {
	pattern := "%" + likeEscaper.Replace(term) + "%"
	if Dialect(conn) == DialectSQLite {
		pattern = strings.ToLower(pattern)
	}
	return pattern
}
