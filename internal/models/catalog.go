package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups catalog items. Categories are never hard-deleted by the
// reconciler; absence from the source spreadsheet deactivates them.
type Category struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex:idx_categories_name"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	IsActive  bool      `json:"isActive" gorm:"column:is_active;not null;default:true;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is one logical product identified by a stable base model number across
// all of its style variants.
type Item struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CategoryID  uuid.UUID  `json:"categoryId" gorm:"type:uuid;not null;index"`
	BaseModel   string     `json:"baseModel" gorm:"column:base_model;not null;uniqueIndex:idx_items_base_model"`
	Name        string     `json:"name" gorm:"not null"`
	Description *string    `json:"description,omitempty"`
	Dimensions  *string    `json:"dimensions,omitempty"`
	IsActive    bool       `json:"isActive" gorm:"column:is_active;not null;default:true;index"`
	Variants    []*Variant `json:"variants,omitempty" gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Variant is one purchasable configuration (style/finish) of an item.
// Uniqueness of (item, style) is case-insensitive; the reconciler always
// lowercases styles before key comparison.
type Variant struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ItemID    uuid.UUID `json:"itemId" gorm:"type:uuid;not null;uniqueIndex:idx_variants_item_style"`
	Style     string    `json:"style" gorm:"not null;uniqueIndex:idx_variants_item_style"`
	Price     float64   `json:"price" gorm:"not null;default:0"`
	ImagePath *string   `json:"imagePath,omitempty" gorm:"column:image_path"`
	IsActive  bool      `json:"isActive" gorm:"column:is_active;not null;default:true;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VariantAddon is a directed edge from one variant to another: "placing the
// source offers/requires the target". The edge set for a source variant is
// fully replaced on every sync pass.
type VariantAddon struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	VariantID      uuid.UUID `json:"variantId" gorm:"type:uuid;not null;uniqueIndex:idx_variant_addons_edge"`
	AddonVariantID uuid.UUID `json:"addonVariantId" gorm:"type:uuid;not null;uniqueIndex:idx_variant_addons_edge;index"`
	IsOptional     bool      `json:"isOptional" gorm:"column:is_optional;not null;default:false"`
	Slot           int       `json:"slot" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	Position *int   `json:"position,omitempty"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	Name     *string `json:"name,omitempty"`
	Position *int    `json:"position,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// CreateItemRequest represents a request to create an item manually
type CreateItemRequest struct {
	CategoryID  string  `json:"categoryId" binding:"required"`
	BaseModel   string  `json:"baseModel" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	Dimensions  *string `json:"dimensions,omitempty"`
}

// UpdateItemRequest represents a request to update an item
type UpdateItemRequest struct {
	CategoryID  *string `json:"categoryId,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Dimensions  *string `json:"dimensions,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// Response types
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

type CategoryResponse struct {
	Success bool      `json:"success"`
	Data    *Category `json:"data"`
	Message *string   `json:"message,omitempty"`
}

type CategoryListResponse struct {
	Success bool       `json:"success"`
	Data    []Category `json:"data"`
}

type ItemResponse struct {
	Success bool    `json:"success"`
	Data    *Item   `json:"data"`
	Message *string `json:"message,omitempty"`
}

type ItemListResponse struct {
	Success    bool            `json:"success"`
	Data       []Item          `json:"data"`
	Pagination *PaginationInfo `json:"pagination"`
}

type VariantResponse struct {
	Success bool     `json:"success"`
	Data    *Variant `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type VariantListResponse struct {
	Success bool      `json:"success"`
	Data    []Variant `json:"data"`
}

type AddonListResponse struct {
	Success bool           `json:"success"`
	Data    []VariantAddon `json:"data"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// TableName returns the table name for the Item model
func (Item) TableName() string {
	return "items"
}

// TableName returns the table name for the Variant model
func (Variant) TableName() string {
	return "variants"
}

// TableName returns the table name for the VariantAddon model
func (VariantAddon) TableName() string {
	return "variant_addons"
}
