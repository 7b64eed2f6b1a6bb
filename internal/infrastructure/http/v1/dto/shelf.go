package dto

import (
	"tannery/internal/domain/catalogs/shelf"
)

// CreateShelfRequest is the payload for creating a shelf.
type CreateShelfRequest struct {
	Code    string  `json:"code" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	Section *string `json:"section"`
}

// ToEntity converts the request to the domain entity.
func (r *CreateShelfRequest) ToEntity() *shelf.Shelf {
	s := shelf.NewShelf(r.Code, r.Name)
	s.Section = r.Section
	return s
}

// UpdateShelfRequest is the payload for updating a shelf.
type UpdateShelfRequest struct {
	Code     string  `json:"code" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Section  *string `json:"section"`
	IsActive *bool   `json:"isActive"`
	Version  int     `json:"version" binding:"required"`
}

// ApplyTo applies the request to an existing shelf.
func (r *UpdateShelfRequest) ApplyTo(s *shelf.Shelf) {
	s.Code = r.Code
	s.Name = r.Name
	s.Section = r.Section
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
	s.Version = r.Version
}

// ShelfResponse is the API shape of a shelf.
type ShelfResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Section      *string `json:"section,omitempty"`
	IsActive     bool    `json:"isActive"`
	DeletionMark bool    `json:"deletionMark"`
	Version      int     `json:"version"`
}

// FromShelf maps a shelf to its API shape.
func FromShelf(s *shelf.Shelf) ShelfResponse {
	return ShelfResponse{
		ID:           s.ID.String(),
		Code:         s.Code,
		Name:         s.Name,
		Section:      s.Section,
		IsActive:     s.IsActive,
		DeletionMark: s.DeletionMark,
		Version:      s.Version,
	}
}
