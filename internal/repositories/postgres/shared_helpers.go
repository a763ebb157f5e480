package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/campushub/schedule-service/internal/repositories"
)

var scheduleSortColumns = map[string]string{
	"start_date":  "start_date",
	"created_at":  "created_at",
	"course_code": "course_code",
}

// applyPaginationAndSort applies bounded pagination and a whitelisted sort
// column to a schedule query.
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := scheduleSortColumns[sortBy]
	if !ok {
		column = "start_date"
	}

	direction := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		direction = "DESC"
	}

	query = query.Order(fmt.Sprintf("%s %s", column, direction))

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return query.Limit(limit).Offset(offset)
}

// applyScheduleFilters applies the shared schedule filters to a query.
func applyScheduleFilters(query *gorm.DB, filters repositories.ScheduleFilters) *gorm.DB {
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.CourseCode != nil {
		query = query.Where("course_code = ?", *filters.CourseCode)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("start_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("start_date < ?", *filters.DateTo)
	}

	return query
}
