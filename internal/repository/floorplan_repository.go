package repository

import (
	"time"

	"catalog-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FloorplanRepositoryInterface covers floorplan hierarchy reads and the BOM
// entry/placement persistence consumed by the BOM service.
type FloorplanRepositoryInterface interface {
	GetCustomers(page, limit int) ([]models.Customer, int64, error)
	GetCustomerByID(id uuid.UUID) (*models.Customer, error)
	CreateCustomer(customer *models.Customer) error

	GetProjectsByCustomer(customerID uuid.UUID) ([]models.Project, error)
	GetProjectByID(id uuid.UUID) (*models.Project, error)
	CreateProject(project *models.Project) error

	GetFloorplansByProject(projectID uuid.UUID) ([]models.Floorplan, error)
	GetFloorplanByID(id uuid.UUID) (*models.Floorplan, error)
	CreateFloorplan(floorplan *models.Floorplan) error

	FindMainEntry(floorplanID, variantID uuid.UUID) (*models.BomEntry, error)
	GetBomEntryByID(id uuid.UUID) (*models.BomEntry, error)
	CreateBomEntry(entry *models.BomEntry) error
	UpdateBomEntry(entry *models.BomEntry) error
	DeleteBomEntry(id uuid.UUID) error
	DeleteChildren(parentID uuid.UUID) error
	GetMainEntriesWithChildren(floorplanID uuid.UUID) ([]models.BomEntry, error)
	GetEntriesForFloorplan(floorplanID uuid.UUID) ([]models.BomEntry, error)

	CountPlacements(bomEntryID uuid.UUID) (int64, error)
	CreatePlacement(placement *models.Placement) error
	GetPlacement(id uuid.UUID) (*models.Placement, error)
	DeletePlacement(id uuid.UUID) error
}

type FloorplanRepository struct {
	db *gorm.DB
}

var _ FloorplanRepositoryInterface = (*FloorplanRepository)(nil)

func NewFloorplanRepository(db *gorm.DB) *FloorplanRepository {
	return &FloorplanRepository{db: db}
}

// Customer operations

func (r *FloorplanRepository) GetCustomers(page, limit int) ([]models.Customer, int64, error) {
	var customers []models.Customer
	var total int64

	if err := r.db.Model(&models.Customer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *FloorplanRepository) GetCustomerByID(id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &customer, nil
}

func (r *FloorplanRepository) CreateCustomer(customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return r.db.Create(customer).Error
}

// Project operations

func (r *FloorplanRepository) GetProjectsByCustomer(customerID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.Where("customer_id = ?", customerID).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *FloorplanRepository) GetProjectByID(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &project, nil
}

func (r *FloorplanRepository) CreateProject(project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	return r.db.Create(project).Error
}

// Floorplan operations

func (r *FloorplanRepository) GetFloorplansByProject(projectID uuid.UUID) ([]models.Floorplan, error) {
	var floorplans []models.Floorplan
	if err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&floorplans).Error; err != nil {
		return nil, err
	}
	return floorplans, nil
}

func (r *FloorplanRepository) GetFloorplanByID(id uuid.UUID) (*models.Floorplan, error) {
	var floorplan models.Floorplan
	if err := r.db.First(&floorplan, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &floorplan, nil
}

func (r *FloorplanRepository) CreateFloorplan(floorplan *models.Floorplan) error {
	if floorplan.ID == uuid.Nil {
		floorplan.ID = uuid.New()
	}
	return r.db.Create(floorplan).Error
}

// BOM entry operations

// FindMainEntry looks up the top-level entry for a variant on a floorplan.
// At most one exists per (floorplan, variant) pair.
func (r *FloorplanRepository) FindMainEntry(floorplanID, variantID uuid.UUID) (*models.BomEntry, error) {
	var entry models.BomEntry
	err := r.db.Where("floorplan_id = ? AND variant_id = ? AND parent_id IS NULL", floorplanID, variantID).
		First(&entry).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &entry, nil
}

func (r *FloorplanRepository) GetBomEntryByID(id uuid.UUID) (*models.BomEntry, error) {
	var entry models.BomEntry
	if err := r.db.Preload("Children").First(&entry, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &entry, nil
}

func (r *FloorplanRepository) CreateBomEntry(entry *models.BomEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.Create(entry).Error
}

func (r *FloorplanRepository) UpdateBomEntry(entry *models.BomEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.Save(entry).Error
}

// DeleteBomEntry removes an entry; the parent_id foreign key cascades the
// delete to its children at the database level.
func (r *FloorplanRepository) DeleteBomEntry(id uuid.UUID) error {
	return r.db.Delete(&models.BomEntry{}, "id = ?", id).Error
}

func (r *FloorplanRepository) DeleteChildren(parentID uuid.UUID) error {
	return r.db.Where("parent_id = ?", parentID).Delete(&models.BomEntry{}).Error
}

func (r *FloorplanRepository) GetMainEntriesWithChildren(floorplanID uuid.UUID) ([]models.BomEntry, error) {
	var entries []models.BomEntry
	err := r.db.Where("floorplan_id = ? AND parent_id IS NULL", floorplanID).
		Preload("Children").
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *FloorplanRepository) GetEntriesForFloorplan(floorplanID uuid.UUID) ([]models.BomEntry, error) {
	var entries []models.BomEntry
	if err := r.db.Where("floorplan_id = ?", floorplanID).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Placement operations

func (r *FloorplanRepository) CountPlacements(bomEntryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Placement{}).Where("bom_entry_id = ?", bomEntryID).Count(&count).Error
	return count, err
}

func (r *FloorplanRepository) CreatePlacement(placement *models.Placement) error {
	if placement.ID == uuid.Nil {
		placement.ID = uuid.New()
	}
	return r.db.Create(placement).Error
}

func (r *FloorplanRepository) GetPlacement(id uuid.UUID) (*models.Placement, error) {
	var placement models.Placement
	if err := r.db.First(&placement, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &placement, nil
}

func (r *FloorplanRepository) DeletePlacement(id uuid.UUID) error {
	return r.db.Delete(&models.Placement{}, "id = ?", id).Error
}
