package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer owns projects. Plain CRUD resource.
type Customer struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Project groups the floorplans for one customer engagement.
type Project struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CustomerID uuid.UUID `json:"customerId" gorm:"type:uuid;not null;index"`
	Name       string    `json:"name" gorm:"not null"`
	Address    *string   `json:"address,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Floorplan is one drawing surface onto which variants are placed.
type Floorplan struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProjectID      uuid.UUID `json:"projectId" gorm:"type:uuid;not null;index"`
	Name           string    `json:"name" gorm:"not null"`
	BackgroundPath *string   `json:"backgroundPath,omitempty" gorm:"column:background_path"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BomEntry is one bill-of-materials line for a floorplan. A nil ParentID marks
// a main entry; children are mandatory add-ons of their parent, one level deep.
// Name, model number, price and image are snapshots frozen at creation/switch
// time; only an explicit catalog refresh updates them.
type BomEntry struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FloorplanID uuid.UUID   `json:"floorplanId" gorm:"type:uuid;not null;index"`
	ItemID      uuid.UUID   `json:"itemId" gorm:"type:uuid;not null"`
	VariantID   uuid.UUID   `json:"variantId" gorm:"type:uuid;not null;index"`
	ParentID    *uuid.UUID  `json:"parentId,omitempty" gorm:"type:uuid;index"`
	Children    []*BomEntry `json:"children,omitempty" gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	Name        string      `json:"name" gorm:"not null"`
	ModelNumber string      `json:"modelNumber" gorm:"column:model_number;not null"`
	Price       float64     `json:"price" gorm:"not null;default:0"`
	ImagePath   *string     `json:"imagePath,omitempty" gorm:"column:image_path"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Placement is one rectangle drawn on a floorplan, referencing a main BOM
// entry. Quantity per BOM line is derived as the count of placements.
type Placement struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	FloorplanID uuid.UUID `json:"floorplanId" gorm:"type:uuid;not null;index"`
	BomEntryID  uuid.UUID `json:"bomEntryId" gorm:"type:uuid;not null;index"`
	X           float64   `json:"x" gorm:"not null"`
	Y           float64   `json:"y" gorm:"not null"`
	Width       float64   `json:"width" gorm:"not null"`
	Height      float64   `json:"height" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateBomEntryRequest represents a request to place a variant's BOM line
type CreateBomEntryRequest struct {
	FloorplanID string `json:"floorplanId" binding:"required"`
	VariantID   string `json:"variantId" binding:"required"`
}

// SwitchVariantRequest represents a request to swap a main entry's variant
type SwitchVariantRequest struct {
	VariantID string `json:"variantId" binding:"required"`
}

// CreatePlacementRequest represents a request to draw a placement rectangle
type CreatePlacementRequest struct {
	BomEntryID string  `json:"bomEntryId" binding:"required"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width" binding:"required"`
	Height     float64 `json:"height" binding:"required"`
}

// BomGroup pairs a main entry with its mandatory-add-on children.
type BomGroup struct {
	Entry      *BomEntry   `json:"entry"`
	Children   []*BomEntry `json:"children"`
	Quantity   int         `json:"quantity"`
	GroupTotal float64     `json:"groupTotal"`
}

// FloorplanBom is the grouped bill of materials for one floorplan.
type FloorplanBom struct {
	FloorplanID uuid.UUID  `json:"floorplanId"`
	Groups      []BomGroup `json:"groups"`
	Total       float64    `json:"total"`
}

// BomPriceChange records one snapshot price updated from the catalog.
type BomPriceChange struct {
	BomEntryID  uuid.UUID `json:"bomEntryId"`
	ModelNumber string    `json:"modelNumber"`
	OldPrice    float64   `json:"oldPrice"`
	NewPrice    float64   `json:"newPrice"`
}

// BomInvalidEntry records an entry whose variant is gone or inactive. The
// entry itself is left untouched; the caller decides what to do with it.
type BomInvalidEntry struct {
	BomEntryID  uuid.UUID `json:"bomEntryId"`
	ModelNumber string    `json:"modelNumber"`
	Reason      string    `json:"reason"`
}

// BomRefreshReport is the result of reconciling BOM snapshots against the
// current catalog.
type BomRefreshReport struct {
	FloorplanID  uuid.UUID         `json:"floorplanId"`
	Updated      []BomPriceChange  `json:"updated"`
	Invalid      []BomInvalidEntry `json:"invalid"`
	TotalBefore  float64           `json:"totalBefore"`
	TotalAfter   float64           `json:"totalAfter"`
	CheckedCount int               `json:"checkedCount"`
}

type BomEntryResponse struct {
	Success bool      `json:"success"`
	Data    *BomEntry `json:"data"`
	Message *string   `json:"message,omitempty"`
}

type FloorplanBomResponse struct {
	Success bool          `json:"success"`
	Data    *FloorplanBom `json:"data"`
}

type BomRefreshResponse struct {
	Success bool              `json:"success"`
	Data    *BomRefreshReport `json:"data"`
}

// TableName returns the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

// TableName returns the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

// TableName returns the table name for the Floorplan model
func (Floorplan) TableName() string {
	return "floorplans"
}

// TableName returns the table name for the BomEntry model
func (BomEntry) TableName() string {
	return "floorplan_bom_entries"
}

// TableName returns the table name for the Placement model
func (Placement) TableName() string {
	return "placements"
}
