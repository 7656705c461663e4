package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category represents one node of the two-level catalog hierarchy.
// A nil ParentID makes it a top-level category; otherwise ParentID must
// reference a top-level category, so chains never exceed depth 2.
type Category struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *uuid.UUID `json:"parentId" db:"parent_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`

	// Derived at read time, not stored.
	SubcategoryCount int `json:"subcategoryCount" db:"-"`
	ProductCount     int `json:"productCount" db:"-"`
}

// IsRoot reports whether the category is top-level.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// ImageKind distinguishes the representative thumbnail from gallery images.
type ImageKind string

const (
	ImageKindMain    ImageKind = "MAIN"
	ImageKindGallery ImageKind = "GALLERY"
)

// Valid reports whether k is one of the known image kinds.
func (k ImageKind) Valid() bool {
	return k == ImageKindMain || k == ImageKindGallery
}

// ProductImage is exclusively owned by its product. Ordering within the
// product's image list is preserved through Position.
type ProductImage struct {
	URL      string    `json:"url" db:"url"`
	Alt      string    `json:"alt" db:"alt"`
	Kind     ImageKind `json:"type" db:"kind"`
	Position int       `json:"-" db:"position"`
}

// ProductDetails is a value object stored inline on the product. All fields
// are optional free text.
type ProductDetails struct {
	TechnicalSheet   string `json:"technicalSheet" db:"technical_sheet"`
	CollectorInfo    string `json:"collectorInfo" db:"collector_info"`
	CareInstructions string `json:"careInstructions" db:"care_instructions"`
}

// Product represents a memorabilia item in the catalog. Prices are integer
// minor units (cents) to avoid floating-point rounding drift.
type Product struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	PriceCents  int64          `json:"priceCents" db:"price_cents"`
	Currency    string         `json:"currency" db:"currency"`
	CategoryID  *uuid.UUID     `json:"categoryId" db:"category_id"`
	IsActive    bool           `json:"isActive" db:"is_active"`
	Details     ProductDetails `json:"details" db:"-"`
	Images      []ProductImage `json:"images" db:"-"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// MainImage returns the primary image if one exists, falling back to the
// first gallery image.
func (p *Product) MainImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].Kind == ImageKindMain {
			return &p.Images[i]
		}
	}
	if len(p.Images) > 0 {
		return &p.Images[0]
	}
	return nil
}
