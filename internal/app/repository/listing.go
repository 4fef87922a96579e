package repository

import (
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request. Zero values fall back to defaults.
type Page struct {
	Number int
	Size   int
}

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// containsPattern builds a LIKE pattern matching value anywhere, with the
// LIKE metacharacters escaped by a backslash.
func containsPattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(value)) + "%"
}

// whereContainsAny adds a case-insensitive substring match over columns, OR-ed.
func whereContainsAny(query *gorm.DB, value string, columns ...string) *gorm.DB {
	if value == "" || len(columns) == 0 {
		return query
	}
	pattern := containsPattern(value)
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, "LOWER("+column+`) LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	return query.Where(strings.Join(parts, " OR "), args...)
}

// orderBy applies a comma separated ordering such as "-price,title". Only keys
// present in allowed are used; anything else is ignored. The primary key is
// always the final tiebreaker so pages are stable.
func orderBy(query *gorm.DB, ordering string, allowed map[string]string, fallback, primaryKey string) *gorm.DB {
	applied := false
	for _, key := range strings.Split(ordering, ",") {
		key = strings.TrimSpace(key)
		direction := "ASC"
		if strings.HasPrefix(key, "-") {
			direction = "DESC"
			key = key[1:]
		}
		column, ok := allowed[key]
		if !ok {
			continue
		}
		query = query.Order(column + " " + direction)
		applied = true
	}
	if !applied && fallback != "" {
		query = query.Order(fallback)
	}
	return query.Order(primaryKey + " ASC")
}
