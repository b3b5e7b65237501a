package database

import (
	"strings"
)

// QueryBuilder converts SQL queries with ? placeholders to dialect-specific format.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build rewrites each ? placeholder using the dialect. Question marks inside
// single-quoted string literals are left alone.
//
// Example:
//
//	input:    "SELECT * FROM battles WHERE battle_id = ? AND scenario = ?"
//	SQLite:   "SELECT * FROM battles WHERE battle_id = ? AND scenario = ?"
//	Postgres: "SELECT * FROM battles WHERE battle_id = $1 AND scenario = $2"
func (qb *QueryBuilder) Build(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}

	var result strings.Builder
	result.Grow(len(query) + 8)
	position := 1
	inString := false

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
			result.WriteByte(c)
		case c == '?' && !inString:
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		default:
			result.WriteByte(c)
		}
	}

	return result.String()
}

// BuildWithReturning appends a RETURNING clause if the dialect requires it.
// Used for INSERT statements that need the inserted ID.
//
// Example:
//
//	input:    "INSERT INTO battles (battle_id) VALUES (?)", "id"
//	SQLite:   "INSERT INTO battles (battle_id) VALUES (?)"
//	Postgres: "INSERT INTO battles (battle_id) VALUES ($1) RETURNING id"
func (qb *QueryBuilder) BuildWithReturning(query string, column string) string {
	converted := qb.Build(query)
	if !qb.dialect.SupportsLastInsertID() {
		converted += qb.dialect.ReturningClause(column)
	}
	return converted
}
