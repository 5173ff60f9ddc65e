package persistence

import (
	"strings"

	"github.com/hms/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortColumns whitelists the API sort keys of one table. Unknown or empty keys fall back
// to the default column; the key never reaches SQL unless it is listed.
type sortColumns struct {
	columns  map[string]string
	fallback string
}

var bookingSort = sortColumns{
	columns: map[string]string{
		"start_date":  "start_date",
		"end_date":    "end_date",
		"fee":         "fee",
		"month_count": "month_count",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
	},
	fallback: "start_date",
}

var transactionSort = sortColumns{
	columns: map[string]string{
		"date":       "date",
		"amount":     "amount",
		"category":   "category",
		"created_at": "created_at",
	},
	fallback: "date",
}

// column resolves key to a whitelisted column name
func (s sortColumns) column(key string) string {
	if col, ok := s.columns[strings.ToLower(strings.TrimSpace(key))]; ok {
		return col
	}
	return s.fallback
}

// descending treats anything but an explicit "asc" as descending
func descending(dir string) bool {
	return !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// page orders by the requested column with id as tiebreaker, then applies offset and
// limit. A zero page size returns every row.
func (s sortColumns) page(filter shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: s.column(filter.OrderBy)},
			Desc:   descending(filter.OrderDir),
		}).Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
		if filter.PageSize > 0 {
			db = db.Offset(filter.Offset()).Limit(filter.PageSize)
		}
		return db
	}
}
