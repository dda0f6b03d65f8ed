package services

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"catalog-service/internal/events"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrFloorplanNotFound = errors.New("floorplan not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrBomEntryNotFound  = errors.New("bom entry not found")
	ErrPlacementNotFound = errors.New("placement not found")
	ErrNotMainEntry      = errors.New("operation requires a top-level bom entry")
	ErrDuplicateVariant  = errors.New("floorplan already has an entry for this variant")
)

// BomService assembles and maintains the bill of materials of a floorplan.
// Entries snapshot catalog prices at creation time; later catalog changes
// only reach them through UpdateFromCatalog.
type BomService struct {
	catalog   repository.CatalogRepositoryInterface
	floorplan repository.FloorplanRepositoryInterface
	publisher *events.Publisher
	logger    *logrus.Logger
	locks     sync.Map // "floorplanID:variantID" -> *sync.Mutex
}

func NewBomService(catalog repository.CatalogRepositoryInterface, floorplan repository.FloorplanRepositoryInterface, publisher *events.Publisher, logger *logrus.Logger) *BomService {
	return &BomService{
		catalog:   catalog,
		floorplan: floorplan,
		publisher: publisher,
		logger:    logger,
	}
}

// lock serializes BOM mutations per (floorplan, variant) pair so concurrent
// creates of the same variant converge on one main entry.
func (s *BomService) lock(floorplanID, variantID uuid.UUID) func() {
	key := floorplanID.String() + ":" + variantID.String()
	value, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateBomEntry returns the floorplan's main entry for a variant, creating
// it with its mandatory add-on children when it does not exist yet. The call
// is idempotent: repeated creates for the same pair return the same entry.
func (s *BomService) CreateBomEntry(floorplanID, variantID uuid.UUID) (*models.BomEntry, error) {
	if _, err := s.floorplan.GetFloorplanByID(floorplanID); err != nil {
		return nil, notFoundAs(err, ErrFloorplanNotFound)
	}

	unlock := s.lock(floorplanID, variantID)
	defer unlock()

	existing, err := s.floorplan.FindMainEntry(floorplanID, variantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	variant, item, err := s.resolveVariant(variantID)
	if err != nil {
		return nil, err
	}

	entry := snapshotEntry(floorplanID, item, variant, nil)
	if err := s.floorplan.CreateBomEntry(entry); err != nil {
		return nil, fmt.Errorf("create bom entry: %w", err)
	}

	if err := s.createMandatoryChildren(entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"floorplanId": floorplanID,
		"bomEntryId":  entry.ID,
		"modelNumber": entry.ModelNumber,
	}).Info("BOM entry created")
	s.publisher.PublishBomEntryCreated(floorplanID, entry.ID, variantID)

	return s.floorplan.GetBomEntryByID(entry.ID)
}

// SwitchVariant repoints a main entry at a different variant while keeping
// its identity, so existing placements stay attached. The snapshot and the
// mandatory children are rebuilt from the new variant.
func (s *BomService) SwitchVariant(entryID, variantID uuid.UUID) (*models.BomEntry, error) {
	entry, err := s.floorplan.GetBomEntryByID(entryID)
	if err != nil {
		return nil, notFoundAs(err, ErrBomEntryNotFound)
	}
	if entry.ParentID != nil {
		return nil, ErrNotMainEntry
	}
	if entry.VariantID == variantID {
		return entry, nil
	}

	unlock := s.lock(entry.FloorplanID, variantID)
	defer unlock()

	if other, err := s.floorplan.FindMainEntry(entry.FloorplanID, variantID); err == nil && other.ID != entry.ID {
		return nil, ErrDuplicateVariant
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	variant, item, err := s.resolveVariant(variantID)
	if err != nil {
		return nil, err
	}

	entry.VariantID = variant.ID
	entry.ItemID = item.ID
	entry.Name = item.Name
	entry.ModelNumber = modelNumber(item.BaseModel, variant.Style)
	entry.Price = variant.Price
	entry.ImagePath = variant.ImagePath
	entry.Children = nil
	if err := s.floorplan.UpdateBomEntry(entry); err != nil {
		return nil, fmt.Errorf("update bom entry: %w", err)
	}

	if err := s.floorplan.DeleteChildren(entry.ID); err != nil {
		return nil, fmt.Errorf("clear bom children: %w", err)
	}
	if err := s.createMandatoryChildren(entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"bomEntryId":  entry.ID,
		"modelNumber": entry.ModelNumber,
	}).Info("BOM entry switched")
	s.publisher.PublishBomEntrySwitched(entry.FloorplanID, entry.ID, variantID)

	return s.floorplan.GetBomEntryByID(entry.ID)
}

// GetBomForFloorplan groups the floorplan's main entries with their children
// and prices each group by its placement count.
func (s *BomService) GetBomForFloorplan(floorplanID uuid.UUID) (*models.FloorplanBom, error) {
	if _, err := s.floorplan.GetFloorplanByID(floorplanID); err != nil {
		return nil, notFoundAs(err, ErrFloorplanNotFound)
	}

	mains, err := s.floorplan.GetMainEntriesWithChildren(floorplanID)
	if err != nil {
		return nil, err
	}

	bom := &models.FloorplanBom{FloorplanID: floorplanID, Groups: []models.BomGroup{}}
	for i := range mains {
		entry := &mains[i]
		count, err := s.floorplan.CountPlacements(entry.ID)
		if err != nil {
			return nil, err
		}

		unitPrice := entry.Price
		for _, child := range entry.Children {
			unitPrice += child.Price
		}

		group := models.BomGroup{
			Entry:      entry,
			Children:   entry.Children,
			Quantity:   int(count),
			GroupTotal: unitPrice * float64(count),
		}
		bom.Groups = append(bom.Groups, group)
		bom.Total += group.GroupTotal
	}

	return bom, nil
}

// UpdateFromCatalog reconciles a floorplan's snapshots against current
// catalog prices. Price drift is applied; entries whose variant or item has
// vanished or been deactivated are reported as invalid and left untouched so
// the planner can decide what to do with them.
func (s *BomService) UpdateFromCatalog(floorplanID uuid.UUID) (*models.BomRefreshReport, error) {
	bomBefore, err := s.GetBomForFloorplan(floorplanID)
	if err != nil {
		return nil, err
	}

	report := &models.BomRefreshReport{
		FloorplanID: floorplanID,
		Updated:     []models.BomPriceChange{},
		Invalid:     []models.BomInvalidEntry{},
		TotalBefore: bomBefore.Total,
	}

	for _, group := range bomBefore.Groups {
		entries := append([]*models.BomEntry{group.Entry}, group.Children...)
		for _, entry := range entries {
			report.CheckedCount++
			if err := s.refreshEntry(entry, report); err != nil {
				return nil, err
			}
		}
	}

	bomAfter, err := s.GetBomForFloorplan(floorplanID)
	if err != nil {
		return nil, err
	}
	report.TotalAfter = bomAfter.Total

	s.logger.WithFields(logrus.Fields{
		"floorplanId": floorplanID,
		"checked":     report.CheckedCount,
		"updated":     len(report.Updated),
		"invalid":     len(report.Invalid),
	}).Info("BOM refreshed from catalog")
	s.publisher.PublishBomRefreshReport(report)

	return report, nil
}

func (s *BomService) refreshEntry(entry *models.BomEntry, report *models.BomRefreshReport) error {
	variant, err := s.catalog.GetVariantByID(entry.VariantID)
	if errors.Is(err, repository.ErrNotFound) {
		report.Invalid = append(report.Invalid, models.BomInvalidEntry{
			BomEntryID: entry.ID, ModelNumber: entry.ModelNumber, Reason: "variant no longer exists",
		})
		return nil
	}
	if err != nil {
		return err
	}
	if !variant.IsActive {
		report.Invalid = append(report.Invalid, models.BomInvalidEntry{
			BomEntryID: entry.ID, ModelNumber: entry.ModelNumber, Reason: "variant is deactivated",
		})
		return nil
	}

	item, err := s.catalog.GetItemByID(variant.ItemID, false)
	if errors.Is(err, repository.ErrNotFound) {
		report.Invalid = append(report.Invalid, models.BomInvalidEntry{
			BomEntryID: entry.ID, ModelNumber: entry.ModelNumber, Reason: "item no longer exists",
		})
		return nil
	}
	if err != nil {
		return err
	}
	if !item.IsActive {
		report.Invalid = append(report.Invalid, models.BomInvalidEntry{
			BomEntryID: entry.ID, ModelNumber: entry.ModelNumber, Reason: "item is deactivated",
		})
		return nil
	}

	if entry.Price != variant.Price {
		change := models.BomPriceChange{
			BomEntryID:  entry.ID,
			ModelNumber: entry.ModelNumber,
			OldPrice:    entry.Price,
			NewPrice:    variant.Price,
		}
		entry.Price = variant.Price
		if err := s.floorplan.UpdateBomEntry(entry); err != nil {
			return fmt.Errorf("update bom entry price: %w", err)
		}
		report.Updated = append(report.Updated, change)
	}

	return nil
}

// CreatePlacement drops one placement of a main entry onto its floorplan.
func (s *BomService) CreatePlacement(bomEntryID uuid.UUID, x, y, width, height float64) (*models.Placement, error) {
	entry, err := s.floorplan.GetBomEntryByID(bomEntryID)
	if err != nil {
		return nil, notFoundAs(err, ErrBomEntryNotFound)
	}
	if entry.ParentID != nil {
		return nil, ErrNotMainEntry
	}

	placement := &models.Placement{
		FloorplanID: entry.FloorplanID,
		BomEntryID:  entry.ID,
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
	}
	if err := s.floorplan.CreatePlacement(placement); err != nil {
		return nil, err
	}
	return placement, nil
}

// DeletePlacement removes a placement. Deleting the last placement of an
// entry removes the entry itself, children included.
func (s *BomService) DeletePlacement(placementID uuid.UUID) error {
	placement, err := s.floorplan.GetPlacement(placementID)
	if err != nil {
		return notFoundAs(err, ErrPlacementNotFound)
	}

	if err := s.floorplan.DeletePlacement(placementID); err != nil {
		return err
	}

	remaining, err := s.floorplan.CountPlacements(placement.BomEntryID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		if err := s.floorplan.DeleteBomEntry(placement.BomEntryID); err != nil {
			return err
		}
		s.logger.WithField("bomEntryId", placement.BomEntryID).Info("BOM entry removed with its last placement")
	}

	return nil
}

func (s *BomService) resolveVariant(variantID uuid.UUID) (*models.Variant, *models.Item, error) {
	variant, err := s.catalog.GetVariantByID(variantID)
	if err != nil {
		return nil, nil, notFoundAs(err, ErrVariantNotFound)
	}
	item, err := s.catalog.GetItemByID(variant.ItemID, false)
	if err != nil {
		return nil, nil, notFoundAs(err, ErrItemNotFound)
	}
	return variant, item, nil
}

func (s *BomService) createMandatoryChildren(parent *models.BomEntry) error {
	addons, err := s.catalog.GetMandatoryAddons(parent.VariantID)
	if err != nil {
		return fmt.Errorf("load mandatory add-ons: %w", err)
	}

	for _, addon := range addons {
		variant, item, err := s.resolveVariant(addon.AddonVariantID)
		if err != nil {
			return fmt.Errorf("resolve add-on variant: %w", err)
		}
		child := snapshotEntry(parent.FloorplanID, item, variant, &parent.ID)
		if err := s.floorplan.CreateBomEntry(child); err != nil {
			return fmt.Errorf("create bom child: %w", err)
		}
	}

	return nil
}

// snapshotEntry freezes the catalog state of a variant into a BOM entry.
func snapshotEntry(floorplanID uuid.UUID, item *models.Item, variant *models.Variant, parentID *uuid.UUID) *models.BomEntry {
	return &models.BomEntry{
		FloorplanID: floorplanID,
		ItemID:      item.ID,
		VariantID:   variant.ID,
		ParentID:    parentID,
		Name:        item.Name,
		ModelNumber: modelNumber(item.BaseModel, variant.Style),
		Price:       variant.Price,
		ImagePath:   variant.ImagePath,
	}
}

func modelNumber(baseModel, style string) string {
	return strings.TrimSpace(baseModel + " " + style)
}

func notFoundAs(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
