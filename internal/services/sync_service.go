package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"catalog-service/internal/events"
	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ErrSyncInProgress is returned when a sync run is requested while another
// one holds the run lock.
var ErrSyncInProgress = errors.New("a catalog sync is already in progress")

// DefaultCategoryName is assigned to rows whose category cell is blank.
const DefaultCategoryName = "Uncategorized"

// ImageExtractor yields extracted variant images keyed by spreadsheet row.
type ImageExtractor interface {
	ExtractImages(workbookPath string) map[int]string
}

// SyncService reconciles the spreadsheet contents into the catalog tables.
// At most one run executes at a time.
type SyncService struct {
	repo      repository.CatalogRepositoryInterface
	extractor ImageExtractor
	publisher *events.Publisher
	logger    *logrus.Logger
	mu        sync.Mutex
}

func NewSyncService(repo repository.CatalogRepositoryInterface, extractor ImageExtractor, publisher *events.Publisher, logger *logrus.Logger) *SyncService {
	return &SyncService{
		repo:      repo,
		extractor: extractor,
		publisher: publisher,
		logger:    logger,
	}
}

// SynchronizeFile parses an uploaded workbook and reconciles it into the
// catalog. The workbook file is read twice: once through excelize for cell
// values and once as a zip archive for embedded images.
func (s *SyncService) SynchronizeFile(ctx context.Context, workbookPath string, progress models.ProgressFunc) (*models.SyncResult, error) {
	if progress == nil {
		progress = noProgress
	}

	progress("Opening workbook", models.SyncPhaseParsing, 0)

	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return &models.SyncResult{Log: []string{"failed to open workbook: " + err.Error()}}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return &models.SyncResult{Log: []string{"failed to read sheet: " + err.Error()}}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	var parsed []importer.ParsedRow
	if len(rows) > importer.HeaderRows {
		for i, cells := range rows[importer.HeaderRows:] {
			parsed = append(parsed, importer.ParseRow(cells, importer.HeaderRows+i+1))
		}
	}

	progress("Extracting embedded images", models.SyncPhaseParsing, 5)
	images := s.extractor.ExtractImages(workbookPath)

	groups := importer.GroupRows(parsed)
	s.logger.WithFields(logrus.Fields{
		"sheet":  sheet,
		"rows":   len(parsed),
		"items":  len(groups),
		"images": len(images),
	}).Info("Workbook parsed")

	return s.Synchronize(ctx, groups, images, progress)
}

// Synchronize runs the four reconciliation phases over pre-parsed groups.
// Row-scoped problems accumulate in the result; persistence failures abort
// the run. Cancellation is honored at phase boundaries so each phase leaves
// the catalog in a coherent state.
func (s *SyncService) Synchronize(ctx context.Context, groups []*importer.GroupedItem, images map[int]string, progress models.ProgressFunc) (*models.SyncResult, error) {
	if progress == nil {
		progress = noProgress
	}

	if !s.mu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.mu.Unlock()

	result := &models.SyncResult{ImagesExtracted: len(images)}
	result.AddLog(fmt.Sprintf("sync started: %d items, %d images", len(groups), len(images)))

	progress("Reconciling categories", models.SyncPhaseCategories, 10)
	categoryIDs, err := s.syncCategories(groups, result)
	if err != nil {
		return s.fail(result, progress, "category reconciliation failed", err)
	}
	progress(fmt.Sprintf("Categories: %d added, %d updated, %d deactivated",
		result.Categories.Added, result.Categories.Updated, result.Categories.Deactivated), models.SyncPhaseCategories, 25)

	if err := ctx.Err(); err != nil {
		return s.fail(result, progress, "sync cancelled", err)
	}

	progress("Reconciling items", models.SyncPhaseItems, 30)
	itemIDs, deactivatedItems, err := s.syncItems(groups, categoryIDs, result)
	if err != nil {
		return s.fail(result, progress, "item reconciliation failed", err)
	}
	progress(fmt.Sprintf("Items: %d added, %d updated, %d deactivated",
		result.Items.Added, result.Items.Updated, result.Items.Deactivated), models.SyncPhaseItems, 45)

	if err := ctx.Err(); err != nil {
		return s.fail(result, progress, "sync cancelled", err)
	}

	progress("Reconciling variants", models.SyncPhaseVariants, 50)
	refIndex, variantIDs, err := s.syncVariants(groups, itemIDs, deactivatedItems, images, result)
	if err != nil {
		return s.fail(result, progress, "variant reconciliation failed", err)
	}
	progress(fmt.Sprintf("Variants: %d added, %d updated, %d deactivated",
		result.Variants.Added, result.Variants.Updated, result.Variants.Deactivated), models.SyncPhaseVariants, 70)

	if err := ctx.Err(); err != nil {
		return s.fail(result, progress, "sync cancelled", err)
	}

	progress("Rebuilding add-on links", models.SyncPhaseAddons, 75)
	if err := s.syncAddons(groups, refIndex, variantIDs, result); err != nil {
		return s.fail(result, progress, "add-on reconciliation failed", err)
	}
	progress(fmt.Sprintf("Add-ons: %d of %d references linked",
		result.Addons.Added, result.Addons.Total), models.SyncPhaseAddons, 90)

	result.Success = true
	result.AddLog(fmt.Sprintf("sync finished with %d row errors", len(result.Errors)))
	progress("Sync complete", models.SyncPhaseComplete, 100)

	s.logger.WithFields(logrus.Fields{
		"categories": result.Categories,
		"items":      result.Items,
		"variants":   result.Variants,
		"addons":     result.Addons,
		"rowErrors":  len(result.Errors),
	}).Info("Catalog sync completed")

	s.publisher.PublishSyncCompleted(result)

	return result, nil
}

func (s *SyncService) fail(result *models.SyncResult, progress models.ProgressFunc, message string, err error) (*models.SyncResult, error) {
	result.Success = false
	result.AddLog(message + ": " + err.Error())
	progress(message, models.SyncPhaseError, -1)
	s.logger.WithError(err).Error("Catalog sync aborted")
	return result, err
}

// syncCategories upserts every category named in the sheet, in first-seen
// order, and deactivates categories the sheet no longer mentions. Returns a
// lookup from lowercased category name to ID.
func (s *SyncService) syncCategories(groups []*importer.GroupedItem, result *models.SyncResult) (map[string]uuid.UUID, error) {
	var ordered []string
	seen := make(map[string]bool)
	for _, group := range groups {
		name := group.Category
		if name == "" {
			name = DefaultCategoryName
		}
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			ordered = append(ordered, name)
		}
	}

	categoryIDs := make(map[string]uuid.UUID, len(ordered))
	for position, name := range ordered {
		category, err := s.repo.GetCategoryByName(name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			category = &models.Category{Name: name, Position: position, IsActive: true}
			if err := s.repo.CreateCategory(category); err != nil {
				return nil, fmt.Errorf("create category %q: %w", name, err)
			}
			result.Categories.Added++
			result.AddLog("category added: " + name)
		case err != nil:
			return nil, fmt.Errorf("look up category %q: %w", name, err)
		default:
			changed := false
			if !category.IsActive {
				category.IsActive = true
				changed = true
			}
			if category.Position != position {
				category.Position = position
				changed = true
			}
			if changed {
				if err := s.repo.UpdateCategory(category); err != nil {
					return nil, fmt.Errorf("update category %q: %w", name, err)
				}
				result.Categories.Updated++
			}
		}
		categoryIDs[strings.ToLower(name)] = category.ID
	}
	result.Categories.Total = len(ordered)

	existing, err := s.repo.GetCategories(false)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	for _, category := range existing {
		if category.IsActive && !seen[strings.ToLower(category.Name)] {
			if err := s.repo.SetCategoryActive(category.ID, false); err != nil {
				return nil, fmt.Errorf("deactivate category %q: %w", category.Name, err)
			}
			result.Categories.Deactivated++
			result.AddLog("category deactivated: " + category.Name)
		}
	}

	return categoryIDs, nil
}

// syncItems upserts one item per group and deactivates items whose base
// model no longer appears. Deactivating an item here does not touch its
// variants; the variant phase handles that cascade. Returns the base model
// to ID lookup and the IDs of items deactivated this run.
func (s *SyncService) syncItems(groups []*importer.GroupedItem, categoryIDs map[string]uuid.UUID, result *models.SyncResult) (map[string]uuid.UUID, []uuid.UUID, error) {
	itemIDs := make(map[string]uuid.UUID, len(groups))
	seen := make(map[uuid.UUID]bool, len(groups))

	for _, group := range groups {
		categoryName := group.Category
		if categoryName == "" {
			categoryName = DefaultCategoryName
		}
		categoryID := categoryIDs[strings.ToLower(categoryName)]

		item, err := s.repo.GetItemByBaseModel(group.BaseModel)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			item = &models.Item{
				CategoryID:  categoryID,
				BaseModel:   group.BaseModel,
				Name:        group.Name,
				Description: optional(group.Description),
				Dimensions:  optional(group.Dimensions),
				IsActive:    true,
			}
			if err := s.repo.CreateItem(item); err != nil {
				return nil, nil, fmt.Errorf("create item %q: %w", group.BaseModel, err)
			}
			result.Items.Added++
			result.AddLog("item added: " + group.BaseModel)
		case err != nil:
			return nil, nil, fmt.Errorf("look up item %q: %w", group.BaseModel, err)
		default:
			changed := false
			if item.CategoryID != categoryID {
				item.CategoryID = categoryID
				changed = true
			}
			if item.Name != group.Name {
				item.Name = group.Name
				changed = true
			}
			if derefOr(item.Description) != group.Description {
				item.Description = optional(group.Description)
				changed = true
			}
			if derefOr(item.Dimensions) != group.Dimensions {
				item.Dimensions = optional(group.Dimensions)
				changed = true
			}
			if !item.IsActive {
				item.IsActive = true
				changed = true
			}
			if changed {
				if err := s.repo.UpdateItem(item); err != nil {
					return nil, nil, fmt.Errorf("update item %q: %w", group.BaseModel, err)
				}
				result.Items.Updated++
			}
		}

		itemIDs[strings.ToLower(group.BaseModel)] = item.ID
		seen[item.ID] = true
	}
	result.Items.Total = len(groups)

	active, err := s.repo.GetActiveItems()
	if err != nil {
		return nil, nil, fmt.Errorf("list active items: %w", err)
	}
	var deactivated []uuid.UUID
	for _, item := range active {
		if !seen[item.ID] {
			if err := s.repo.SetItemActive(item.ID, false); err != nil {
				return nil, nil, fmt.Errorf("deactivate item %q: %w", item.BaseModel, err)
			}
			result.Items.Deactivated++
			deactivated = append(deactivated, item.ID)
			result.AddLog("item deactivated: " + item.BaseModel)
		}
	}

	return itemIDs, deactivated, nil
}

// syncVariants upserts one variant per grouped row, applies extracted images
// with sibling fallback, deactivates styles the sheet dropped, and cascades
// deactivation to variants of items removed in the item phase. Returns the
// full-reference index used for add-on resolution plus all synced variant
// IDs.
func (s *SyncService) syncVariants(groups []*importer.GroupedItem, itemIDs map[string]uuid.UUID, deactivatedItems []uuid.UUID, images map[int]string, result *models.SyncResult) (map[string]uuid.UUID, []uuid.UUID, error) {
	refIndex := make(map[string]uuid.UUID)
	owned := make(map[uuid.UUID]bool)

	for _, group := range groups {
		itemID := itemIDs[strings.ToLower(group.BaseModel)]

		// Rows without their own image inherit the first image found
		// among their siblings.
		groupImage := ""
		for _, row := range group.Rows {
			if img, ok := images[row.RowNum]; ok && img != "" {
				groupImage = img
				break
			}
		}

		seenStyles := make(map[string]bool, len(group.Rows))
		for _, row := range group.Rows {
			image := images[row.RowNum]
			if image == "" {
				image = groupImage
			}

			variant, err := s.repo.GetVariantByItemAndStyle(itemID, row.Style)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				variant = &models.Variant{
					ItemID:    itemID,
					Style:     row.Style,
					Price:     row.Price,
					ImagePath: optional(image),
					IsActive:  true,
				}
				if err := s.repo.CreateVariant(variant); err != nil {
					return nil, nil, fmt.Errorf("create variant %q/%q: %w", group.BaseModel, row.Style, err)
				}
				result.Variants.Added++
			case err != nil:
				return nil, nil, fmt.Errorf("look up variant %q/%q: %w", group.BaseModel, row.Style, err)
			default:
				changed := false
				if variant.Price != row.Price {
					variant.Price = row.Price
					changed = true
				}
				if image != "" && derefOr(variant.ImagePath) != image {
					variant.ImagePath = optional(image)
					changed = true
				}
				if !variant.IsActive {
					variant.IsActive = true
					changed = true
				}
				if changed {
					if err := s.repo.UpdateVariant(variant); err != nil {
						return nil, nil, fmt.Errorf("update variant %q/%q: %w", group.BaseModel, row.Style, err)
					}
					result.Variants.Updated++
				}
			}

			refIndex[fullReference(group.BaseModel, row.Style)] = variant.ID
			owned[variant.ID] = true
			seenStyles[strings.ToLower(row.Style)] = true
			result.Variants.Total++
		}

		existing, err := s.repo.GetVariantsByItem(itemID)
		if err != nil {
			return nil, nil, fmt.Errorf("list variants of %q: %w", group.BaseModel, err)
		}
		for _, variant := range existing {
			// Edge rebuilding in the next phase covers every variant the
			// synchronized items own, dropped styles included.
			owned[variant.ID] = true
			if variant.IsActive && !seenStyles[strings.ToLower(variant.Style)] {
				if err := s.repo.SetVariantActive(variant.ID, false); err != nil {
					return nil, nil, fmt.Errorf("deactivate variant %q/%q: %w", group.BaseModel, variant.Style, err)
				}
				result.Variants.Deactivated++
				result.AddLog(fmt.Sprintf("variant deactivated: %s / %s", group.BaseModel, variant.Style))
			}
		}
	}

	for _, itemID := range deactivatedItems {
		count, err := s.repo.DeactivateVariantsForItem(itemID)
		if err != nil {
			return nil, nil, fmt.Errorf("cascade variant deactivation: %w", err)
		}
		result.Variants.Deactivated += int(count)
	}

	variantIDs := make([]uuid.UUID, 0, len(owned))
	for id := range owned {
		variantIDs = append(variantIDs, id)
	}
	return refIndex, variantIDs, nil
}

// syncAddons drops every edge sourced from the synchronized items' variants
// and recreates the set from the sheet. Unresolvable references and self references are row
// errors, not run failures.
func (s *SyncService) syncAddons(groups []*importer.GroupedItem, refIndex map[string]uuid.UUID, variantIDs []uuid.UUID, result *models.SyncResult) error {
	if err := s.repo.DeleteAddonsForVariants(variantIDs); err != nil {
		return fmt.Errorf("clear add-on links: %w", err)
	}

	for _, group := range groups {
		for _, row := range group.Rows {
			sourceID, ok := refIndex[fullReference(group.BaseModel, row.Style)]
			if !ok {
				continue
			}

			for _, ref := range row.Addons {
				result.Addons.Total++

				targetID, ok := refIndex[normalizeReference(ref.Reference)]
				if !ok {
					result.AddRowError(row.RowNum, "add-on reference not found in catalog", ref.Reference)
					continue
				}
				if targetID == sourceID {
					result.AddRowError(row.RowNum, "add-on references its own variant", ref.Reference)
					continue
				}

				addon := &models.VariantAddon{
					VariantID:      sourceID,
					AddonVariantID: targetID,
					IsOptional:     ref.Optional,
					Slot:           ref.Slot,
				}
				if err := s.repo.CreateAddon(addon); err != nil {
					return fmt.Errorf("link add-on %q: %w", ref.Reference, err)
				}
				result.Addons.Added++
			}
		}
	}

	return nil
}

// fullReference builds the index key a sheet add-on cell resolves against:
// the base model followed by the style, case- and whitespace-insensitive.
func fullReference(baseModel, style string) string {
	return normalizeReference(baseModel + " " + style)
}

func normalizeReference(ref string) string {
	return strings.ToLower(strings.Join(strings.Fields(ref), " "))
}

func noProgress(string, models.SyncPhase, int) {}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
