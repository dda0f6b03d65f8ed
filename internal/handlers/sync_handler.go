package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SyncHandler struct {
	service       *services.SyncService
	logger        *logrus.Logger
	maxUploadSize int64
}

func NewSyncHandler(service *services.SyncService, logger *logrus.Logger, maxUploadSizeMB int) *SyncHandler {
	return &SyncHandler{
		service:       service,
		logger:        logger,
		maxUploadSize: int64(maxUploadSizeMB) << 20,
	}
}

// SyncCatalog uploads a catalog workbook and reconciles it
// @Summary Synchronize catalog from spreadsheet
// @Description Upload an xlsx workbook and reconcile its contents into the catalog. Only one sync runs at a time.
// @Tags Sync
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Catalog workbook (.xlsx)"
// @Success 200 {object} models.SyncResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /catalog/sync [post]
func (h *SyncHandler) SyncCatalog(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "A workbook file is required",
				Field:   "file",
			},
		})
		return
	}

	if fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_TOO_LARGE",
				Message: "Workbook exceeds the upload size limit",
				Field:   "file",
			},
		})
		return
	}

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UNSUPPORTED_FORMAT",
				Message: "Only .xlsx workbooks are supported",
				Field:   "file",
			},
		})
		return
	}

	tmp, err := os.CreateTemp("", "catalog-upload-*.xlsx")
	if err != nil {
		h.logger.WithError(err).Error("Failed to create temp file for upload")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPLOAD_FAILED",
				Message: "Failed to store uploaded workbook",
			},
		})
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		h.logger.WithError(err).Error("Failed to save uploaded workbook")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPLOAD_FAILED",
				Message: "Failed to store uploaded workbook",
			},
		})
		return
	}

	progress := func(message string, phase models.SyncPhase, pct int) {
		h.logger.WithFields(logrus.Fields{
			"phase":    phase,
			"progress": pct,
		}).Info(message)
	}

	result, err := h.service.SynchronizeFile(c.Request.Context(), tmpPath, progress)
	if err != nil {
		if errors.Is(err, services.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "SYNC_IN_PROGRESS",
					Message: "A catalog sync is already running",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "SYNC_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SyncResponse{Success: true, Data: result})
}
