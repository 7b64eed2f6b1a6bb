package dto

import (
	"tannery/internal/domain/catalogs/product"
	"tannery/internal/domain/units"
)

// CreateProductRequest is the payload for creating a product.
// OpeningStock, when set, records an opening balance movement onto
// OpeningShelfID right after creation.
type CreateProductRequest struct {
	Code           string  `json:"code" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	MainUnit       string  `json:"mainUnit" binding:"required"`
	SubUnit        string  `json:"subUnit"`
	OpeningStock   float64 `json:"openingStock"`
	OpeningShelfID string  `json:"openingShelfId"`
}

// ToEntity converts the request to the domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Code, r.Name, units.Unit(r.MainUnit))
	p.SubUnit = units.Unit(r.SubUnit)
	return p
}

// UpdateProductRequest is the payload for updating a product.
type UpdateProductRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	MainUnit string `json:"mainUnit" binding:"required"`
	SubUnit  string `json:"subUnit"`
	Version  int    `json:"version" binding:"required"`
}

// ApplyTo applies the request to an existing product.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Code = r.Code
	p.Name = r.Name
	p.MainUnit = units.Unit(r.MainUnit)
	p.SubUnit = units.Unit(r.SubUnit)
	p.Version = r.Version
}

// ProductResponse is the API shape of a product.
type ProductResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	MainUnit     string  `json:"mainUnit"`
	SubUnit      string  `json:"subUnit,omitempty"`
	Stock        float64 `json:"stock"`
	SubStock     float64 `json:"subStock"`
	DeletionMark bool    `json:"deletionMark"`
	Version      int     `json:"version"`
}

// FromProduct maps a product to its API shape.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID.String(),
		Code:         p.Code,
		Name:         p.Name,
		MainUnit:     string(p.MainUnit),
		SubUnit:      string(p.SubUnit),
		Stock:        p.Stock.Float64(),
		SubStock:     p.SubStock.Float64(),
		DeletionMark: p.DeletionMark,
		Version:      p.Version,
	}
}
