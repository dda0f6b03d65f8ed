package handlers

import (
	"net/http"
	"strconv"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FloorplanHandler struct {
	repo repository.FloorplanRepositoryInterface
}

func NewFloorplanHandler(repo repository.FloorplanRepositoryInterface) *FloorplanHandler {
	return &FloorplanHandler{repo: repo}
}

type createCustomerRequest struct {
	Name  string  `json:"name" binding:"required"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type createProjectRequest struct {
	CustomerID string  `json:"customerId" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Address    *string `json:"address,omitempty"`
}

type createFloorplanRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
	Name      string `json:"name" binding:"required"`
}

// GetCustomers returns customers with pagination
// @Summary Get customers
// @Tags Floorplans
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(50)
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /customers [get]
func (h *FloorplanHandler) GetCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	customers, total, err := h.repo.GetCustomers(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve customers",
			},
		})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customers,
		"pagination": models.PaginationInfo{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
	})
}

// CreateCustomer creates a customer
// @Summary Create customer
// @Tags Floorplans
// @Accept json
// @Produce json
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /customers [post]
func (h *FloorplanHandler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
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

	customer := &models.Customer{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := h.repo.CreateCustomer(customer); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create customer",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: customer})
}

// GetProjects returns a customer's projects
// @Summary Get projects
// @Tags Floorplans
// @Produce json
// @Param id path string true "Customer ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /customers/{id}/projects [get]
func (h *FloorplanHandler) GetProjects(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, err := h.repo.GetCustomerByID(id); err != nil {
		respondNotFound(c, err, "Customer not found")
		return
	}

	projects, err := h.repo.GetProjectsByCustomer(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve projects",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: projects})
}

// CreateProject creates a project for a customer
// @Summary Create project
// @Tags Floorplans
// @Accept json
// @Produce json
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects [post]
func (h *FloorplanHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
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

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid customer ID",
				Field:   "customerId",
			},
		})
		return
	}

	if _, err := h.repo.GetCustomerByID(customerID); err != nil {
		respondNotFound(c, err, "Customer not found")
		return
	}

	project := &models.Project{CustomerID: customerID, Name: req.Name, Address: req.Address}
	if err := h.repo.CreateProject(project); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create project",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: project})
}

// GetFloorplans returns a project's floorplans
// @Summary Get floorplans
// @Tags Floorplans
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id}/floorplans [get]
func (h *FloorplanHandler) GetFloorplans(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if _, err := h.repo.GetProjectByID(id); err != nil {
		respondNotFound(c, err, "Project not found")
		return
	}

	floorplans, err := h.repo.GetFloorplansByProject(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve floorplans",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: floorplans})
}

// CreateFloorplan creates a floorplan in a project
// @Summary Create floorplan
// @Tags Floorplans
// @Accept json
// @Produce json
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /floorplans [post]
func (h *FloorplanHandler) CreateFloorplan(c *gin.Context) {
	var req createFloorplanRequest
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

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid project ID",
				Field:   "projectId",
			},
		})
		return
	}

	if _, err := h.repo.GetProjectByID(projectID); err != nil {
		respondNotFound(c, err, "Project not found")
		return
	}

	floorplan := &models.Floorplan{ProjectID: projectID, Name: req.Name}
	if err := h.repo.CreateFloorplan(floorplan); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create floorplan",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: floorplan})
}
