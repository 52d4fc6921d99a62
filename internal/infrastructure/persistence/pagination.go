package persistence

import "gorm.io/gorm"

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// paginate returns a scope applying 1-based page and page size bounds
func paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		switch {
		case pageSize <= 0:
			pageSize = defaultPageSize
		case pageSize > maxPageSize:
			pageSize = maxPageSize
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
