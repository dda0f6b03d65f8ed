package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Cache TTL constants
const (
	CategoryCacheTTL = 30 * time.Minute // Categories change only on sync
	ItemCacheTTL     = 5 * time.Minute
)

// CatalogRepositoryInterface is the persistence contract consumed by the
// sync and BOM services. Kept as an interface so services can be tested with
// in-memory fakes.
type CatalogRepositoryInterface interface {
	GetCategories(activeOnly bool) ([]models.Category, error)
	GetCategoryByID(id uuid.UUID) (*models.Category, error)
	GetCategoryByName(name string) (*models.Category, error)
	CreateCategory(category *models.Category) error
	UpdateCategory(category *models.Category) error
	SetCategoryActive(id uuid.UUID, active bool) error

	GetItems(activeOnly bool, categoryID *uuid.UUID, page, limit int) ([]models.Item, int64, error)
	GetActiveItems() ([]models.Item, error)
	GetItemByID(id uuid.UUID, includeVariants bool) (*models.Item, error)
	GetItemByBaseModel(baseModel string) (*models.Item, error)
	CreateItem(item *models.Item) error
	UpdateItem(item *models.Item) error
	SetItemActive(id uuid.UUID, active bool) error

	GetVariantsByItem(itemID uuid.UUID) ([]models.Variant, error)
	GetVariantByID(id uuid.UUID) (*models.Variant, error)
	GetVariantByItemAndStyle(itemID uuid.UUID, style string) (*models.Variant, error)
	CreateVariant(variant *models.Variant) error
	UpdateVariant(variant *models.Variant) error
	SetVariantActive(id uuid.UUID, active bool) error
	DeactivateVariantsForItem(itemID uuid.UUID) (int64, error)

	GetAddonsForVariant(variantID uuid.UUID) ([]models.VariantAddon, error)
	GetMandatoryAddons(variantID uuid.UUID) ([]models.VariantAddon, error)
	CreateAddon(addon *models.VariantAddon) error
	DeleteAddonsForVariants(variantIDs []uuid.UUID) error
}

type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redis *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redis}
}

// Category operations

const categoryListCacheKey = "catalog:categories:active"

// GetCategories lists categories ordered by position. The active-only
// listing is cached; it backs every storefront-style read.
func (r *CatalogRepository) GetCategories(activeOnly bool) ([]models.Category, error) {
	ctx := context.Background()

	if activeOnly && r.redis != nil {
		if val, err := r.redis.Get(ctx, categoryListCacheKey).Result(); err == nil {
			var categories []models.Category
			if err := json.Unmarshal([]byte(val), &categories); err == nil {
				return categories, nil
			}
		}
	}

	var categories []models.Category
	query := r.db.Order("position ASC, name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}

	if activeOnly && r.redis != nil {
		if data, err := json.Marshal(categories); err == nil {
			r.redis.Set(ctx, categoryListCacheKey, data, CategoryCacheTTL)
		}
	}

	return categories, nil
}

func (r *CatalogRepository) GetCategoryByID(id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.First(&category, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &category, nil
}

// GetCategoryByName matches case-insensitively regardless of active state;
// the reconciler needs to find deactivated categories to reactivate them.
func (r *CatalogRepository) GetCategoryByName(name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&category).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &category, nil
}

func (r *CatalogRepository) CreateCategory(category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	err := r.db.Create(category).Error
	if err == nil {
		r.invalidateCategoryCache()
	}
	return err
}

func (r *CatalogRepository) UpdateCategory(category *models.Category) error {
	category.UpdatedAt = time.Now()
	err := r.db.Save(category).Error
	if err == nil {
		r.invalidateCategoryCache()
	}
	return err
}

func (r *CatalogRepository) SetCategoryActive(id uuid.UUID, active bool) error {
	err := r.db.Model(&models.Category{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()}).Error
	if err == nil {
		r.invalidateCategoryCache()
	}
	return err
}

func (r *CatalogRepository) invalidateCategoryCache() {
	if r.redis != nil {
		r.redis.Del(context.Background(), categoryListCacheKey)
	}
}

// Item operations

func (r *CatalogRepository) GetItems(activeOnly bool, categoryID *uuid.UUID, page, limit int) ([]models.Item, int64, error) {
	var items []models.Item
	var total int64

	query := r.db.Model(&models.Item{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("base_model ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *CatalogRepository) GetActiveItems() ([]models.Item, error) {
	var items []models.Item
	if err := r.db.Where("is_active = ?", true).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetItemByID retrieves an item, optionally with its variants, with caching.
func (r *CatalogRepository) GetItemByID(id uuid.UUID, includeVariants bool) (*models.Item, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("catalog:item:%s:%v", id.String(), includeVariants)

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var item models.Item
			if err := json.Unmarshal([]byte(val), &item); err == nil {
				return &item, nil
			}
		}
	}

	var item models.Item
	query := r.db.Where("id = ?", id)
	if includeVariants {
		query = query.Preload("Variants")
	}
	if err := query.First(&item).Error; err != nil {
		return nil, wrapNotFound(err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(item); err == nil {
			r.redis.Set(ctx, cacheKey, data, ItemCacheTTL)
		}
	}

	return &item, nil
}

func (r *CatalogRepository) GetItemByBaseModel(baseModel string) (*models.Item, error) {
	var item models.Item
	if err := r.db.Where("LOWER(base_model) = LOWER(?)", baseModel).First(&item).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &item, nil
}

func (r *CatalogRepository) CreateItem(item *models.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.Create(item).Error
}

func (r *CatalogRepository) UpdateItem(item *models.Item) error {
	item.UpdatedAt = time.Now()
	err := r.db.Save(item).Error
	if err == nil {
		r.invalidateItemCache(item.ID)
	}
	return err
}

func (r *CatalogRepository) SetItemActive(id uuid.UUID, active bool) error {
	err := r.db.Model(&models.Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()}).Error
	if err == nil {
		r.invalidateItemCache(id)
	}
	return err
}

func (r *CatalogRepository) invalidateItemCache(id uuid.UUID) {
	if r.redis != nil {
		ctx := context.Background()
		r.redis.Del(ctx,
			fmt.Sprintf("catalog:item:%s:true", id.String()),
			fmt.Sprintf("catalog:item:%s:false", id.String()))
	}
}

// Variant operations

func (r *CatalogRepository) GetVariantsByItem(itemID uuid.UUID) ([]models.Variant, error) {
	var variants []models.Variant
	if err := r.db.Where("item_id = ?", itemID).Order("style ASC").Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *CatalogRepository) GetVariantByID(id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	if err := r.db.First(&variant, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &variant, nil
}

func (r *CatalogRepository) GetVariantByItemAndStyle(itemID uuid.UUID, style string) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.Where("item_id = ? AND LOWER(style) = LOWER(?)", itemID, style).First(&variant).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &variant, nil
}

func (r *CatalogRepository) CreateVariant(variant *models.Variant) error {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	err := r.db.Create(variant).Error
	if err == nil {
		r.invalidateItemCache(variant.ItemID)
	}
	return err
}

func (r *CatalogRepository) UpdateVariant(variant *models.Variant) error {
	variant.UpdatedAt = time.Now()
	err := r.db.Save(variant).Error
	if err == nil {
		r.invalidateItemCache(variant.ItemID)
	}
	return err
}

func (r *CatalogRepository) SetVariantActive(id uuid.UUID, active bool) error {
	return r.db.Model(&models.Variant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()}).Error
}

// DeactivateVariantsForItem deactivates every active variant of an item and
// returns how many were affected. Used for the item-deactivation cascade.
func (r *CatalogRepository) DeactivateVariantsForItem(itemID uuid.UUID) (int64, error) {
	result := r.db.Model(&models.Variant{}).
		Where("item_id = ? AND is_active = ?", itemID, true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error == nil {
		r.invalidateItemCache(itemID)
	}
	return result.RowsAffected, result.Error
}

// Add-on edge operations

func (r *CatalogRepository) GetAddonsForVariant(variantID uuid.UUID) ([]models.VariantAddon, error) {
	var addons []models.VariantAddon
	if err := r.db.Where("variant_id = ?", variantID).Order("slot ASC").Find(&addons).Error; err != nil {
		return nil, err
	}
	return addons, nil
}

func (r *CatalogRepository) GetMandatoryAddons(variantID uuid.UUID) ([]models.VariantAddon, error) {
	var addons []models.VariantAddon
	err := r.db.Where("variant_id = ? AND is_optional = ?", variantID, false).
		Order("slot ASC").Find(&addons).Error
	if err != nil {
		return nil, err
	}
	return addons, nil
}

// CreateAddon inserts an add-on edge. An already-existing edge is a silent
// no-op: creation races during sync mean "already done", not failure.
func (r *CatalogRepository) CreateAddon(addon *models.VariantAddon) error {
	if addon.ID == uuid.Nil {
		addon.ID = uuid.New()
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(addon).Error
}

// DeleteAddonsForVariants removes every edge sourced from the given
// variants. The sync pass fully replaces edge sets rather than diffing them.
func (r *CatalogRepository) DeleteAddonsForVariants(variantIDs []uuid.UUID) error {
	if len(variantIDs) == 0 {
		return nil
	}
	return r.db.Where("variant_id IN ?", variantIDs).Delete(&models.VariantAddon{}).Error
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
