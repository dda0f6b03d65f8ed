package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	repo repository.CatalogRepositoryInterface
}

func NewCatalogHandler(repo repository.CatalogRepositoryInterface) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

// GetCategories returns all categories
// @Summary Get categories
// @Description Get catalog categories ordered by position
// @Tags Categories
// @Produce json
// @Param includeInactive query bool false "Include deactivated categories"
// @Success 200 {object} models.CategoryListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /categories [get]
func (h *CatalogHandler) GetCategories(c *gin.Context) {
	includeInactive := c.Query("includeInactive") == "true"

	categories, err := h.repo.GetCategories(!includeInactive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve categories",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.CategoryListResponse{Success: true, Data: categories})
}

// CreateCategory creates a new category
// @Summary Create category
// @Description Create a new catalog category
// @Tags Categories
// @Accept json
// @Produce json
// @Param category body models.CreateCategoryRequest true "Category data"
// @Success 201 {object} models.CategoryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
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

	if _, err := h.repo.GetCategoryByName(req.Name); err == nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_NAME",
				Message: "A category with this name already exists",
				Field:   "name",
			},
		})
		return
	}

	category := &models.Category{Name: req.Name, IsActive: true}
	if req.Position != nil {
		category.Position = *req.Position
	}

	if err := h.repo.CreateCategory(category); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create category",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.CategoryResponse{Success: true, Data: category})
}

// UpdateCategory updates an existing category
// @Summary Update category
// @Description Update a category's name, position, or active state
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param category body models.UpdateCategoryRequest true "Category data"
// @Success 200 {object} models.CategoryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateCategoryRequest
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

	category, err := h.repo.GetCategoryByID(id)
	if err != nil {
		respondNotFound(c, err, "Category not found")
		return
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Position != nil {
		category.Position = *req.Position
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := h.repo.UpdateCategory(category); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: "Failed to update category",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.CategoryResponse{Success: true, Data: category})
}

// GetItems returns catalog items with pagination
// @Summary Get items
// @Description Get catalog items, optionally filtered by category
// @Tags Items
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(50)
// @Param categoryId query string false "Filter by category"
// @Param includeInactive query bool false "Include deactivated items"
// @Success 200 {object} models.ItemListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /items [get]
func (h *CatalogHandler) GetItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var categoryID *uuid.UUID
	if raw := c.Query("categoryId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: "Invalid category ID",
					Field:   "categoryId",
				},
			})
			return
		}
		categoryID = &parsed
	}

	includeInactive := c.Query("includeInactive") == "true"

	items, total, err := h.repo.GetItems(!includeInactive, categoryID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve items",
			},
		})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, models.ItemListResponse{
		Success: true,
		Data:    items,
		Pagination: &models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// GetItem returns one item with its variants
// @Summary Get item
// @Description Get a catalog item and its variants
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} models.ItemResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /items/{id} [get]
func (h *CatalogHandler) GetItem(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	item, err := h.repo.GetItemByID(id, true)
	if err != nil {
		respondNotFound(c, err, "Item not found")
		return
	}

	c.JSON(http.StatusOK, models.ItemResponse{Success: true, Data: item})
}

// CreateItem creates a new catalog item
// @Summary Create item
// @Description Create a catalog item outside the spreadsheet sync flow
// @Tags Items
// @Accept json
// @Produce json
// @Param item body models.CreateItemRequest true "Item data"
// @Success 201 {object} models.ItemResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /items [post]
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req models.CreateItemRequest
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

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid category ID",
				Field:   "categoryId",
			},
		})
		return
	}

	if _, err := h.repo.GetCategoryByID(categoryID); err != nil {
		respondNotFound(c, err, "Category not found")
		return
	}

	if _, err := h.repo.GetItemByBaseModel(req.BaseModel); err == nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_BASE_MODEL",
				Message: "An item with this base model already exists",
				Field:   "baseModel",
			},
		})
		return
	}

	item := &models.Item{
		CategoryID:  categoryID,
		BaseModel:   req.BaseModel,
		Name:        req.Name,
		Description: req.Description,
		Dimensions:  req.Dimensions,
		IsActive:    true,
	}

	if err := h.repo.CreateItem(item); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create item",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.ItemResponse{Success: true, Data: item})
}

// UpdateItem updates an existing item
// @Summary Update item
// @Description Update an item's fields or active state
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param item body models.UpdateItemRequest true "Item data"
// @Success 200 {object} models.ItemResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /items/{id} [put]
func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateItemRequest
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

	item, err := h.repo.GetItemByID(id, false)
	if err != nil {
		respondNotFound(c, err, "Item not found")
		return
	}

	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "VALIDATION_ERROR",
					Message: "Invalid category ID",
					Field:   "categoryId",
				},
			})
			return
		}
		item.CategoryID = categoryID
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.Dimensions != nil {
		item.Dimensions = req.Dimensions
	}

	deactivating := req.IsActive != nil && !*req.IsActive && item.IsActive
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if err := h.repo.UpdateItem(item); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: "Failed to update item",
			},
		})
		return
	}

	// Manual deactivation cascades to variants, same as a sync run.
	// Reactivation does not; variants come back one by one.
	if deactivating {
		if _, err := h.repo.DeactivateVariantsForItem(item.ID); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "UPDATE_FAILED",
					Message: "Failed to deactivate item variants",
				},
			})
			return
		}
	}

	c.JSON(http.StatusOK, models.ItemResponse{Success: true, Data: item})
}

// GetVariants returns the variants of an item
// @Summary Get item variants
// @Description Get all variants of a catalog item
// @Tags Variants
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} models.VariantListResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /items/{id}/variants [get]
func (h *CatalogHandler) GetVariants(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, err := h.repo.GetItemByID(id, false); err != nil {
		respondNotFound(c, err, "Item not found")
		return
	}

	variants, err := h.repo.GetVariantsByItem(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve variants",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.VariantListResponse{Success: true, Data: variants})
}

// GetVariantAddons returns the add-on edges of a variant
// @Summary Get variant add-ons
// @Description Get the add-on links sourced from a variant, ordered by slot
// @Tags Variants
// @Produce json
// @Param id path string true "Variant ID"
// @Success 200 {object} models.AddonListResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /variants/{id}/addons [get]
func (h *CatalogHandler) GetVariantAddons(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, err := h.repo.GetVariantByID(id); err != nil {
		respondNotFound(c, err, "Variant not found")
		return
	}

	addons, err := h.repo.GetAddonsForVariant(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve add-ons",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.AddonListResponse{Success: true, Data: addons})
}

// parseIDParam parses the :id path parameter as a UUID, responding 400 on
// failure.
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid ID format",
				Field:   "id",
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

// respondNotFound maps repository misses to 404 and everything else to 500.
func respondNotFound(c *gin.Context, err error, message string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NOT_FOUND",
				Message: message,
			},
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "FETCH_FAILED",
			Message: "Failed to retrieve record",
		},
	})
}
