package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appaudit "github.com/taxfiling/backend/internal/application/audit"
	"github.com/taxfiling/backend/internal/domain/audit"
)

// ReportHandler handles summary report and export API endpoints
type ReportHandler struct {
	BaseHandler
	reporting *appaudit.ReportingService
	exports   *appaudit.ExportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reporting *appaudit.ReportingService, exports *appaudit.ExportService) *ReportHandler {
	return &ReportHandler{reporting: reporting, exports: exports}
}

// GenerateSummaryRequest is the body for generating a summary report
type GenerateSummaryRequest struct {
	ReportType      string `json:"report_type" binding:"omitempty,max=50"`
	ReportPeriod    string `json:"report_period" binding:"required,period"`
	CalculationType string `json:"calculation_type" binding:"omitempty,oneof=VAT CIT TRANSFER_PRICING DMTT PENALTY OTHER"`
}

// Generate handles POST /reports/summary
func (h *ReportHandler) Generate(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "X-User-ID header is required")
		return
	}

	var req GenerateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	serviceReq := appaudit.GenerateSummaryRequest{
		CompanyID:    companyID,
		ReportType:   req.ReportType,
		ReportPeriod: req.ReportPeriod,
		GeneratedBy:  userID,
	}
	if req.CalculationType != "" {
		calcType := audit.CalculationType(req.CalculationType)
		serviceReq.CalculationType = &calcType
	}

	report, err := h.reporting.GenerateSummary(c.Request.Context(), serviceReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, report)
}

// Get handles GET /reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Report ID must be a valid UUID")
		return
	}

	report, err := h.reporting.GetReport(c.Request.Context(), companyID, reportID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ListReportsRequest is the query for GET /reports
type ListReportsRequest struct {
	ReportType   string `form:"report_type" binding:"omitempty,max=50"`
	ReportPeriod string `form:"report_period" binding:"omitempty,period"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List handles GET /reports
func (h *ReportHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}

	var req ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := appaudit.ReportListFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.ReportType != "" {
		filter.ReportType = &req.ReportType
	}
	if req.ReportPeriod != "" {
		filter.ReportPeriod = &req.ReportPeriod
	}

	reports, err := h.reporting.ListReports(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reports)
}

// ExportReportRequest is the body for exporting a report
type ExportReportRequest struct {
	Format           string `json:"format" binding:"required"`
	IncludeBreakdown bool   `json:"include_breakdown"`
}

// Export handles POST /reports/:id/export
func (h *ReportHandler) Export(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "X-User-ID header is required")
		return
	}
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Report ID must be a valid UUID")
		return
	}

	var req ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.exports.ExportReport(c.Request.Context(), appaudit.ExportReportRequest{
		CompanyID:        companyID,
		ReportID:         reportID,
		Format:           req.Format,
		IncludeBreakdown: req.IncludeBreakdown,
		RequestedBy:      userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Download handles GET /reports/:id/artifact, streaming the most recent
// export artifact
func (h *ReportHandler) Download(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Report ID must be a valid UUID")
		return
	}

	artifact, err := h.exports.GetArtifact(c.Request.Context(), companyID, reportID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer artifact.Reader.Close()

	c.Header("Content-Type", artifact.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(artifact.Path)+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, artifact.Reader)
}
