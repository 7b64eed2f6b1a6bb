// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"tannery/internal/domain"
)

// --- Pagination ---

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults sets default pagination values.
func (p *PaginationRequest) Defaults() {
	if p.Limit == 0 {
		p.Limit = 50
	}
}

// ListRequest contains common list parameters.
type ListRequest struct {
	PaginationRequest
	Search         string `form:"search"`
	IncludeDeleted bool   `form:"includeDeleted"`
	OrderBy        string `form:"orderBy"`
}

// ToFilter converts the request to a domain filter.
func (r *ListRequest) ToFilter() domain.ListFilter {
	r.Defaults()
	return domain.ListFilter{
		Search:         r.Search,
		IncludeDeleted: r.IncludeDeleted,
		OrderBy:        r.OrderBy,
		Limit:          r.Limit,
		Offset:         r.Offset,
	}
}

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain list result through fn.
func NewListResponse[T, R any](result domain.ListResult[T], fn func(T) R) ListResponse {
	items := make([]R, len(result.Items))
	for i, item := range result.Items {
		items[i] = fn(item)
	}
	return ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
}

// IDResponse contains a created entity ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic success message.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
