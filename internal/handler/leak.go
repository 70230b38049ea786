package handler

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/repository"
)

// ReportService is the report lifecycle used by the operator API.
type ReportService interface {
	List(ctx context.Context) ([]*models.LeakReport, error)
	Get(ctx context.Context, id int64) (*models.LeakReport, error)
	Stats(ctx context.Context) (*models.ReportStats, error)
	UpdateStatus(ctx context.Context, id int64, status models.Status, technician *string) (*models.LeakReport, error)
}

type LeakHandler interface {
	GetAllLeaks(c *gin.Context)
	GetLeakByID(c *gin.Context)
	GetStats(c *gin.Context)
	ExportCSV(c *gin.Context)
	UpdateLeakStatus(c *gin.Context)
}

type leakHandler struct {
	reports ReportService
	logger  *zap.Logger
}

func NewLeakHandler(reports ReportService, logger *zap.Logger) LeakHandler {
	return &leakHandler{
		reports: reports,
		logger:  logger,
	}
}

// filterLeaks loads every report, then applies the optional status and severity query filters.
func (h *leakHandler) filterLeaks(c *gin.Context) ([]*models.LeakReport, bool) {
	var (
		status   models.Status
		severity models.Severity
		err      error
	)
	if raw := c.Query("status"); raw != "" {
		if status, err = models.ParseStatus(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Valid values: Signalé, En cours, Réparé"})
			return nil, false
		}
	}
	if raw := c.Query("severity"); raw != "" {
		if severity, err = models.ParseSeverity(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid severity. Valid values: Petite, Moyenne, Élevée, Inconnue"})
			return nil, false
		}
	}

	leaks, err := h.reports.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get leaks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve leaks"})
		return nil, false
	}

	if status == "" && severity == "" {
		return leaks, true
	}
	filtered := make([]*models.LeakReport, 0, len(leaks))
	for _, l := range leaks {
		if status != "" && l.Status != status {
			continue
		}
		if severity != "" && l.UserSeverity != severity {
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered, true
}

// GetAllLeaks handles GET /api/leaks
// Query parameters:
// - status: filter by status (optional)
// - severity: filter by reporter severity (optional)
func (h *leakHandler) GetAllLeaks(c *gin.Context) {
	leaks, ok := h.filterLeaks(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaks": leaks, "count": len(leaks)})
}

func parseID(c *gin.Context, logger *zap.Logger) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		logger.Debug("Invalid leak ID", zap.String("id", idStr))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid leak ID"})
		return 0, false
	}
	return id, true
}

// GetLeakByID handles GET /api/leaks/:id
func (h *leakHandler) GetLeakByID(c *gin.Context) {
	id, ok := parseID(c, h.logger)
	if !ok {
		return
	}

	leak, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Leak not found"})
			return
		}
		h.logger.Error("Failed to get leak", zap.Int64("report_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve leak"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leak": leak})
}

// GetStats handles GET /api/leaks/stats
func (h *leakHandler) GetStats(c *gin.Context) {
	stats, err := h.reports.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

var csvHeader = []string{"ID", "User ID", "Citoyen", "Photo", "Lat", "Lon", "Adresse", "Sévérité", "IA Sévérité", "Technicien", "Statut", "Date"}

// ExportCSV handles GET /api/leaks/export/csv. Accepts the same filters as GetAllLeaks.
func (h *leakHandler) ExportCSV(c *gin.Context) {
	leaks, ok := h.filterLeaks(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("WaterAlert_Export_%s.csv", time.Now().Format("20060102_1504"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	// BOM so spreadsheet tools detect UTF-8
	if _, err := c.Writer.WriteString("\ufeff"); err != nil {
		h.logger.Warn("Failed to write CSV export", zap.Error(err))
		return
	}

	w := csv.NewWriter(c.Writer)
	w.Comma = ';'
	_ = w.Write(csvHeader)
	for _, l := range leaks {
		technician := ""
		if l.Technician != nil {
			technician = *l.Technician
		}
		_ = w.Write([]string{
			strconv.FormatInt(l.ID, 10),
			strconv.FormatInt(l.ReporterID, 10),
			l.ReporterDisplayName,
			l.PhotoRef,
			strconv.FormatFloat(l.Coordinates.Latitude, 'f', -1, 64),
			strconv.FormatFloat(l.Coordinates.Longitude, 'f', -1, 64),
			l.AddressOr(""),
			string(l.UserSeverity),
			string(l.AISeverity),
			technician,
			string(l.Status),
			l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.logger.Warn("Failed to write CSV export", zap.Error(err))
	}
}

// UpdateStatusRequest is the body of PUT /api/leaks/:id/status
type UpdateStatusRequest struct {
	Status     string  `json:"status" binding:"required"`
	Technician *string `json:"technician"`
}

// UpdateLeakStatus handles PUT /api/leaks/:id/status
func (h *leakHandler) UpdateLeakStatus(c *gin.Context) {
	id, ok := parseID(c, h.logger)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Valid values: Signalé, En cours, Réparé"})
		return
	}

	leak, err := h.reports.UpdateStatus(c.Request.Context(), id, status, req.Technician)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Leak status updated successfully", "leak": leak})
	case errors.Is(err, repository.ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Leak not found"})
	case errors.Is(err, repository.ErrStatusRegression):
		c.JSON(http.StatusConflict, gin.H{"error": "Status can only move forward: Signalé -> En cours -> Réparé"})
	case errors.Is(err, models.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Failed to update leak status", zap.Int64("report_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update leak status"})
	}
}
