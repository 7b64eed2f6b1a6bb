package catalog_repo

import (
	"strings"

	"tannery/internal/core/apperror"
)

// parseOrderBy validates a client-supplied sort expression against the
// table's column set and returns a safe ORDER BY clause. A leading "-"
// sorts descending, a leading "+" is accepted and ignored.
func parseOrderBy(columns []string, orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(columns)+2)
	for _, col := range columns {
		allowed[col] = struct{}{}
	}
	allowed["created_at"] = struct{}{}
	allowed["updated_at"] = struct{}{}

	if orderBy == "" {
		return "name ASC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
	}

	return field + " " + direction, nil
}
