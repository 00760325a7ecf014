package models

import (
	"strings"

	"gorm.io/gorm"
)

// Product is a single marketplace listing offered by a vendor
type Product struct {
	// gorm.Model gives us ID (uint), CreatedAt, UpdatedAt, DeletedAt
	gorm.Model

	ProductID  string `json:"product_id" gorm:"uniqueIndex"`
	Name       string `json:"name"`
	Price      int64  `json:"price"` // TZS, whole shillings
	Unit       string `json:"unit"`  // e.g. "kg", "bottle", "piece"
	Stock      int    `json:"stock"`
	Category   string `json:"category"`
	Region     string `json:"region"`
	VendorID   string `json:"vendor_id" gorm:"index"`
	IsVerified bool   `json:"is_verified" gorm:"default:false"`
	TrustScore int    `json:"trust_score" gorm:"default:0"`
}

// BeforeCreate normalizes category/region so filters stay case-insensitive
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	p.Region = strings.ToLower(strings.TrimSpace(p.Region))
	return nil
}

// Vendor represents a seller whose products appear in the catalog
type Vendor struct {
	gorm.Model

	VendorID string `json:"vendor_id" gorm:"uniqueIndex"`
	Name     string `json:"name"`
	Phone    string `json:"phone" gorm:"uniqueIndex"`
	Region   string `json:"region"`
	Verified bool   `json:"verified" gorm:"default:false"`
}

// ProductSearch holds the filters a catalog lookup may carry
type ProductSearch struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	Region   string `json:"region"`
}

// Matches reports whether the product satisfies the search filters
func (s *ProductSearch) Matches(p *Product) bool {
	if s.Category != "" && !strings.EqualFold(p.Category, s.Category) {
		return false
	}
	if s.Region != "" && !strings.EqualFold(p.Region, s.Region) {
		return false
	}
	if s.Query != "" {
		q := strings.ToLower(s.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Category), q) {
			return false
		}
	}
	return true
}
