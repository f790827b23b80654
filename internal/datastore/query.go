// query.go: shared filter, sort and pagination contract for list queries.
package datastore

import (
	"strings"

	"gorm.io/gorm"
)

const (
	// DefaultPerPage is the page size used when the caller supplies none.
	DefaultPerPage = 10
	// MaxPerPage caps the page size regardless of the requested value.
	MaxPerPage = 100
)

// ListFilters carries the common search, sort and pagination parameters
// shared by every list operation.
type ListFilters struct {
	Search    string
	SortBy    string
	SortOrder string // "asc" or "desc"
	Page      int
	PerPage   int
	All       bool // bypass pagination entirely (export path)
}

// Normalize clamps pagination parameters to their documented bounds.
func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
}

// Offset returns the row offset for the normalized page parameters.
func (f *ListFilters) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// applySort orders the query by the requested field when it appears in the
// entity's allow-list; unknown sort tokens are a silent no-op and the
// entity's default field applies instead. Field and direction resolve
// independently: a caller may supply either one alone and the entity
// default fills the other.
func applySort(query *gorm.DB, allowed map[string]string, sortBy, sortOrder, defaultField, defaultDirection string) *gorm.DB {
	column, ok := allowed[sortBy]
	if !ok {
		column = defaultField
	}

	direction := defaultDirection
	switch {
	case strings.EqualFold(sortOrder, "asc"):
		direction = "ASC"
	case strings.EqualFold(sortOrder, "desc"):
		direction = "DESC"
	}
	return query.Order(column + " " + direction)
}

// applySearch adds a case-insensitive substring match over the given
// columns, OR-combined. LOWER() keeps the behavior identical on SQLite
// and MySQL regardless of collation.
func applySearch(query *gorm.DB, term string, columns ...string) *gorm.DB {
	if term == "" {
		return query
	}

	pattern := "%" + strings.ToLower(term) + "%"
	conditions := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, column := range columns {
		conditions = append(conditions, "LOWER("+column+") LIKE ?")
		args = append(args, pattern)
	}
	return query.Where(strings.Join(conditions, " OR "), args...)
}
