package handlers

import (
	"errors"
	"net/http"

	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BomHandler struct {
	service *services.BomService
}

func NewBomHandler(service *services.BomService) *BomHandler {
	return &BomHandler{service: service}
}

// CreateBomEntry adds a variant to a floorplan's bill of materials
// @Summary Create BOM entry
// @Description Create (or return) the floorplan's main BOM entry for a variant, with its mandatory add-on children
// @Tags BOM
// @Accept json
// @Produce json
// @Param entry body models.CreateBomEntryRequest true "Entry data"
// @Success 200 {object} models.BomEntryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /bom/entries [post]
func (h *BomHandler) CreateBomEntry(c *gin.Context) {
	var req models.CreateBomEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	floorplanID, err := uuid.Parse(req.FloorplanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid floorplan ID",
				Field:   "floorplanId",
			},
		})
		return
	}

	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid variant ID",
				Field:   "variantId",
			},
		})
		return
	}

	entry, err := h.service.CreateBomEntry(floorplanID, variantID)
	if err != nil {
		respondBomError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BomEntryResponse{Success: true, Data: entry})
}

// SwitchVariant repoints a main BOM entry at another variant
// @Summary Switch BOM entry variant
// @Description Switch a main BOM entry to a different variant while keeping its placements
// @Tags BOM
// @Accept json
// @Produce json
// @Param id path string true "BOM entry ID"
// @Param body body models.SwitchVariantRequest true "Target variant"
// @Success 200 {object} models.BomEntryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /bom/entries/{id}/switch [post]
func (h *BomHandler) SwitchVariant(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.SwitchVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid variant ID",
				Field:   "variantId",
			},
		})
		return
	}

	entry, err := h.service.SwitchVariant(id, variantID)
	if err != nil {
		respondBomError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BomEntryResponse{Success: true, Data: entry})
}

// GetFloorplanBom returns the grouped bill of materials of a floorplan
// @Summary Get floorplan BOM
// @Description Get the floorplan's BOM grouped by main entry, priced by placement count
// @Tags BOM
// @Produce json
// @Param id path string true "Floorplan ID"
// @Success 200 {object} models.FloorplanBomResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /floorplans/{id}/bom [get]
func (h *BomHandler) GetFloorplanBom(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	bom, err := h.service.GetBomForFloorplan(id)
	if err != nil {
		respondBomError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.FloorplanBomResponse{Success: true, Data: bom})
}

// RefreshFloorplanBom reconciles a floorplan's BOM against the catalog
// @Summary Refresh floorplan BOM
// @Description Apply current catalog prices to the floorplan's snapshots and report entries that no longer resolve
// @Tags BOM
// @Produce json
// @Param id path string true "Floorplan ID"
// @Success 200 {object} models.BomRefreshResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /floorplans/{id}/bom/refresh [post]
func (h *BomHandler) RefreshFloorplanBom(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	report, err := h.service.UpdateFromCatalog(id)
	if err != nil {
		respondBomError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BomRefreshResponse{Success: true, Data: report})
}

// CreatePlacement drops a BOM entry onto the floorplan canvas
// @Summary Create placement
// @Tags BOM
// @Accept json
// @Produce json
// @Param placement body models.CreatePlacementRequest true "Placement data"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /placements [post]
func (h *BomHandler) CreatePlacement(c *gin.Context) {
	var req models.CreatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	entryID, err := uuid.Parse(req.BomEntryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid BOM entry ID",
				Field:   "bomEntryId",
			},
		})
		return
	}

	placement, err := h.service.CreatePlacement(entryID, req.X, req.Y, req.Width, req.Height)
	if err != nil {
		respondBomError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: placement})
}

// DeletePlacement removes a placement from the floorplan canvas
// @Summary Delete placement
// @Description Remove a placement. The entry itself goes with its last placement.
// @Tags BOM
// @Produce json
// @Param id path string true "Placement ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /placements/{id} [delete]
func (h *BomHandler) DeletePlacement(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.service.DeletePlacement(id); err != nil {
		respondBomError(c, err)
		return
	}

	message := "Placement deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// respondBomError maps BOM service sentinels onto HTTP statuses.
func respondBomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFloorplanNotFound),
		errors.Is(err, services.ErrVariantNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrBomEntryNotFound),
		errors.Is(err, services.ErrPlacementNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: err.Error(),
			},
		})
	case errors.Is(err, services.ErrNotMainEntry):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_MAIN_ENTRY",
				Message: err.Error(),
			},
		})
	case errors.Is(err, services.ErrDuplicateVariant):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_VARIANT",
				Message: err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INTERNAL_ERROR",
				Message: "Operation failed",
			},
		})
	}
}
