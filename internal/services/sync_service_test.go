package services

import (
	"context"
	"sort"
	"strings"
	"testing"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// fakeCatalogRepo is an in-memory CatalogRepositoryInterface. The sync tests
// exercise multi-run behavior, which is much easier to assert against real
// state than against expectation mocks.
type fakeCatalogRepo struct {
	categories map[uuid.UUID]*models.Category
	items      map[uuid.UUID]*models.Item
	variants   map[uuid.UUID]*models.Variant
	addons     map[uuid.UUID]*models.VariantAddon
}

var _ repository.CatalogRepositoryInterface = (*fakeCatalogRepo)(nil)

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		categories: make(map[uuid.UUID]*models.Category),
		items:      make(map[uuid.UUID]*models.Item),
		variants:   make(map[uuid.UUID]*models.Variant),
		addons:     make(map[uuid.UUID]*models.VariantAddon),
	}
}

func (f *fakeCatalogRepo) GetCategories(activeOnly bool) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeCatalogRepo) GetCategoryByID(id uuid.UUID) (*models.Category, error) {
	if c, ok := f.categories[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalogRepo) GetCategoryByName(name string) (*models.Category, error) {
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, name) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalogRepo) CreateCategory(category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	copied := *category
	f.categories[category.ID] = &copied
	return nil
}

func (f *fakeCatalogRepo) UpdateCategory(category *models.Category) error {
	copied := *category
	f.categories[category.ID] = &copied
	return nil
}

func (f *fakeCatalogRepo) SetCategoryActive(id uuid.UUID, active bool) error {
	if c, ok := f.categories[id]; ok {
		c.IsActive = active
	}
	return nil
}

func (f *fakeCatalogRepo) GetItems(activeOnly bool, categoryID *uuid.UUID, page, limit int) ([]models.Item, int64, error) {
	var out []models.Item
	for _, i := range f.items {
		if activeOnly && !i.IsActive {
			continue
		}
		if categoryID != nil && i.CategoryID != *categoryID {
			continue
		}
		out = append(out, *i)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCatalogRepo) GetActiveItems() ([]models.Item, error) {
	var out []models.Item
	for _, i := range f.items {
		if i.IsActive {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) GetItemByID(id uuid.UUID, includeVariants bool) (*models.Item, error) {
	if i, ok := f.items[id]; ok {
		copied := *i
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalogRepo) GetItemByBaseModel(baseModel string) (*models.Item, error) {
	for _, i := range f.items {
		if strings.EqualFold(i.BaseModel, baseModel) {
			copied := *i
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalogRepo) CreateItem(item *models.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeCatalogRepo) UpdateItem(item *models.Item) error {
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeCatalogRepo) SetItemActive(id uuid.UUID, active bool) error {
	if i, ok := f.items[id]; ok {
		i.IsActive = active
	}
	return nil
}

func (f *fakeCatalogRepo) GetVariantsByItem(itemID uuid.UUID) ([]models.Variant, error) {
	var out []models.Variant
	for _, v := range f.variants {
		if v.ItemID == itemID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Style < out[j].Style })
	return out, nil
}

func (f *fakeCatalogRepo) GetVariantByID(id uuid.UUID) (*models.Variant, error) {
	if v, ok := f.variants[id]; ok {
		copied := *v
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalogRepo) GetVariantByItemAndStyle(itemID uuid.UUID, style string) (*models.Variant, error) {
	for _, v := range f.variants {
		if v.ItemID == itemID && strings.EqualFold(v.Style, style) {
			copied := *v
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalogRepo) CreateVariant(variant *models.Variant) error {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	copied := *variant
	f.variants[variant.ID] = &copied
	return nil
}

func (f *fakeCatalogRepo) UpdateVariant(variant *models.Variant) error {
	copied := *variant
	f.variants[variant.ID] = &copied
	return nil
}

func (f *fakeCatalogRepo) SetVariantActive(id uuid.UUID, active bool) error {
	if v, ok := f.variants[id]; ok {
		v.IsActive = active
	}
	return nil
}

func (f *fakeCatalogRepo) DeactivateVariantsForItem(itemID uuid.UUID) (int64, error) {
	var count int64
	for _, v := range f.variants {
		if v.ItemID == itemID && v.IsActive {
			v.IsActive = false
			count++
		}
	}
	return count, nil
}

func (f *fakeCatalogRepo) GetAddonsForVariant(variantID uuid.UUID) ([]models.VariantAddon, error) {
	var out []models.VariantAddon
	for _, a := range f.addons {
		if a.VariantID == variantID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (f *fakeCatalogRepo) GetMandatoryAddons(variantID uuid.UUID) ([]models.VariantAddon, error) {
	all, _ := f.GetAddonsForVariant(variantID)
	var out []models.VariantAddon
	for _, a := range all {
		if !a.IsOptional {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) CreateAddon(addon *models.VariantAddon) error {
	for _, existing := range f.addons {
		if existing.VariantID == addon.VariantID && existing.AddonVariantID == addon.AddonVariantID {
			return nil
		}
	}
	if addon.ID == uuid.Nil {
		addon.ID = uuid.New()
	}
	copied := *addon
	f.addons[addon.ID] = &copied
	return nil
}

func (f *fakeCatalogRepo) DeleteAddonsForVariants(variantIDs []uuid.UUID) error {
	ids := make(map[uuid.UUID]bool, len(variantIDs))
	for _, id := range variantIDs {
		ids[id] = true
	}
	for key, a := range f.addons {
		if ids[a.VariantID] {
			delete(f.addons, key)
		}
	}
	return nil
}

func newTestSyncService(repo *fakeCatalogRepo) *SyncService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSyncService(repo, nil, nil, logger)
}

func catalogRow(rowNum int, category, name, baseModel, style string, price float64, addons ...importer.AddonRef) importer.ParsedRow {
	return importer.ParsedRow{
		RowNum:    rowNum,
		Category:  category,
		ItemName:  name,
		BaseModel: baseModel,
		Style:     style,
		Price:     price,
		Addons:    addons,
	}
}

func mustVariant(t *testing.T, repo *fakeCatalogRepo, baseModel, style string) *models.Variant {
	t.Helper()
	item, err := repo.GetItemByBaseModel(baseModel)
	assert.NoError(t, err)
	variant, err := repo.GetVariantByItemAndStyle(item.ID, style)
	assert.NoError(t, err)
	return variant
}

func TestSynchronizeCreatesCatalog(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	groups := importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
		catalogRow(4, "Kitchens", "Base Cabinet", "BC-30", "Oak", 120),
		catalogRow(5, "Accessories", "Toe Kick", "TK-1", "White", 15),
	})

	result, err := svc.Synchronize(context.Background(), groups, nil, nil)

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.PhaseCounters{Added: 2, Total: 2}, result.Categories)
	assert.Equal(t, models.PhaseCounters{Added: 2, Total: 2}, result.Items)
	assert.Equal(t, models.PhaseCounters{Added: 3, Total: 3}, result.Variants)
	assert.Empty(t, result.Errors)

	variant := mustVariant(t, repo, "BC-30", "Oak")
	assert.Equal(t, float64(120), variant.Price)
	assert.True(t, variant.IsActive)
}

func TestSynchronizeIsIdempotent(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	rows := []importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100,
			importer.AddonRef{Reference: "TK-1 White", Slot: 1}),
		catalogRow(4, "Accessories", "Toe Kick", "TK-1", "White", 15),
	}

	first, err := svc.Synchronize(context.Background(), importer.GroupRows(rows), nil, nil)
	assert.NoError(t, err)
	second, err := svc.Synchronize(context.Background(), importer.GroupRows(rows), nil, nil)
	assert.NoError(t, err)

	assert.True(t, second.Success)
	assert.Equal(t, models.PhaseCounters{Total: 2}, second.Categories)
	assert.Equal(t, models.PhaseCounters{Total: 2}, second.Items)
	assert.Equal(t, models.PhaseCounters{Total: 2}, second.Variants)
	// Edges are dropped and recreated each run, so the add-on counters
	// repeat rather than zero out.
	assert.Equal(t, first.Addons, second.Addons)
	assert.Len(t, repo.addons, 1)
}

func TestSynchronizeUpdatesChangedPrice(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	_, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
	}), nil, nil)
	assert.NoError(t, err)

	result, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 130),
	}), nil, nil)
	assert.NoError(t, err)

	assert.Equal(t, 1, result.Variants.Updated)
	assert.Equal(t, float64(130), mustVariant(t, repo, "BC-30", "White").Price)
}

func TestSynchronizeDeactivatesAbsentRecords(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	_, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
		catalogRow(4, "Kitchens", "Base Cabinet", "BC-30", "Oak", 120),
		catalogRow(5, "Accessories", "Toe Kick", "TK-1", "White", 15),
	}), nil, nil)
	assert.NoError(t, err)

	// Second sheet drops the accessory item and its whole category.
	result, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
		catalogRow(4, "Kitchens", "Base Cabinet", "BC-30", "Oak", 120),
	}), nil, nil)
	assert.NoError(t, err)

	assert.Equal(t, 1, result.Categories.Deactivated)
	assert.Equal(t, 1, result.Items.Deactivated)
	assert.Equal(t, 1, result.Variants.Deactivated)

	item, err := repo.GetItemByBaseModel("TK-1")
	assert.NoError(t, err)
	assert.False(t, item.IsActive)

	variants, err := repo.GetVariantsByItem(item.ID)
	assert.NoError(t, err)
	assert.False(t, variants[0].IsActive)
}

func TestSynchronizeDroppedStyleDeactivated(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	_, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
		catalogRow(4, "Kitchens", "Base Cabinet", "BC-30", "Oak", 120),
	}), nil, nil)
	assert.NoError(t, err)

	result, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
	}), nil, nil)
	assert.NoError(t, err)

	assert.Equal(t, 1, result.Variants.Deactivated)
	assert.False(t, mustVariant(t, repo, "BC-30", "Oak").IsActive)
	assert.True(t, mustVariant(t, repo, "BC-30", "White").IsActive)
}

func TestSynchronizeReactivationDoesNotCascade(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	full := []importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
		catalogRow(4, "Kitchens", "Base Cabinet", "BC-30", "Oak", 120),
	}
	_, err := svc.Synchronize(context.Background(), importer.GroupRows(full), nil, nil)
	assert.NoError(t, err)

	// Item disappears entirely, deactivating it and both variants.
	_, err = svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Filler", "FL-3", "", 5),
	}), nil, nil)
	assert.NoError(t, err)

	// It returns with only one style. The item and that style reactivate;
	// the other style stays off.
	_, err = svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
	}), nil, nil)
	assert.NoError(t, err)

	item, err := repo.GetItemByBaseModel("BC-30")
	assert.NoError(t, err)
	assert.True(t, item.IsActive)
	assert.True(t, mustVariant(t, repo, "BC-30", "White").IsActive)
	assert.False(t, mustVariant(t, repo, "BC-30", "Oak").IsActive)
}

func TestSynchronizeAddonResolution(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	groups := importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100,
			importer.AddonRef{Reference: "tk-1 WHITE", Slot: 1},
			importer.AddonRef{Reference: "TK-1 Chrome", Slot: 5, Optional: true},
		),
		catalogRow(4, "Accessories", "Toe Kick", "TK-1", "White", 15),
	})

	result, err := svc.Synchronize(context.Background(), groups, nil, nil)
	assert.NoError(t, err)

	// The case-folded reference resolves; the unknown style does not.
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Addons.Total)
	assert.Equal(t, 1, result.Addons.Added)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)

	source := mustVariant(t, repo, "BC-30", "White")
	target := mustVariant(t, repo, "TK-1", "White")
	addons, err := repo.GetAddonsForVariant(source.ID)
	assert.NoError(t, err)
	assert.Len(t, addons, 1)
	assert.Equal(t, target.ID, addons[0].AddonVariantID)
	assert.False(t, addons[0].IsOptional)
	assert.Equal(t, 1, addons[0].Slot)
}

func TestSynchronizeDroppedStyleLosesItsEdges(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	_, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "Oak", 120,
			importer.AddonRef{Reference: "TK-1 White", Slot: 1}),
		catalogRow(4, "Accessories", "Toe Kick", "TK-1", "White", 15),
	}), nil, nil)
	assert.NoError(t, err)
	assert.Len(t, repo.addons, 1)

	// The Oak style disappears; its outgoing edge must not survive as a
	// stale link on the deactivated variant.
	_, err = svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
		catalogRow(4, "Accessories", "Toe Kick", "TK-1", "White", 15),
	}), nil, nil)
	assert.NoError(t, err)

	assert.Empty(t, repo.addons)
}

func TestSynchronizeSelfReferenceRejected(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	groups := importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100,
			importer.AddonRef{Reference: "BC-30 White", Slot: 1},
		),
	})

	result, err := svc.Synchronize(context.Background(), groups, nil, nil)
	assert.NoError(t, err)

	assert.Equal(t, 0, result.Addons.Added)
	assert.Len(t, result.Errors, 1)
	assert.Empty(t, repo.addons)
}

func TestSynchronizeImageInheritance(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	groups := importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
		catalogRow(4, "Kitchens", "Base Cabinet", "BC-30", "Oak", 120),
		catalogRow(5, "Kitchens", "Base Cabinet", "BC-30", "Cherry", 140),
	})
	images := map[int]string{
		4: "catalog/oak.png",
		5: "catalog/cherry.png",
	}

	result, err := svc.Synchronize(context.Background(), groups, images, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.ImagesExtracted)

	// Rows with their own image keep it; the imageless sibling inherits the
	// first one found in row order.
	assert.Equal(t, "catalog/oak.png", *mustVariant(t, repo, "BC-30", "White").ImagePath)
	assert.Equal(t, "catalog/oak.png", *mustVariant(t, repo, "BC-30", "Oak").ImagePath)
	assert.Equal(t, "catalog/cherry.png", *mustVariant(t, repo, "BC-30", "Cherry").ImagePath)
}

func TestSynchronizeBlankCategoryDefaults(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	_, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "", "Base Cabinet", "BC-30", "White", 100),
	}), nil, nil)
	assert.NoError(t, err)

	category, err := repo.GetCategoryByName(DefaultCategoryName)
	assert.NoError(t, err)

	item, err := repo.GetItemByBaseModel("BC-30")
	assert.NoError(t, err)
	assert.Equal(t, category.ID, item.CategoryID)
}

func TestSynchronizeRejectsConcurrentRun(t *testing.T) {
	svc := newTestSyncService(newFakeCatalogRepo())

	svc.mu.Lock()
	defer svc.mu.Unlock()

	result, err := svc.Synchronize(context.Background(), nil, nil, nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestSynchronizeHonorsCancellation(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := newTestSyncService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Synchronize(ctx, importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
	}), nil, nil)

	assert.Error(t, err)
	assert.False(t, result.Success)
	// The category phase ran to completion before the boundary check.
	assert.Equal(t, 1, result.Categories.Added)
	assert.Equal(t, 0, result.Items.Added)
	assert.Empty(t, repo.items)
}

func TestSynchronizeReportsProgress(t *testing.T) {
	svc := newTestSyncService(newFakeCatalogRepo())

	var phases []models.SyncPhase
	var last int
	progress := func(message string, phase models.SyncPhase, pct int) {
		phases = append(phases, phase)
		if pct >= 0 {
			last = pct
		}
	}

	_, err := svc.Synchronize(context.Background(), importer.GroupRows([]importer.ParsedRow{
		catalogRow(3, "Kitchens", "Base Cabinet", "BC-30", "White", 100),
	}), nil, progress)

	assert.NoError(t, err)
	assert.Equal(t, 100, last)
	assert.Contains(t, phases, models.SyncPhaseCategories)
	assert.Contains(t, phases, models.SyncPhaseItems)
	assert.Contains(t, phases, models.SyncPhaseVariants)
	assert.Contains(t, phases, models.SyncPhaseAddons)
	assert.Equal(t, models.SyncPhaseComplete, phases[len(phases)-1])
}
