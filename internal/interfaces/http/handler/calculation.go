package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appaudit "github.com/taxfiling/backend/internal/application/audit"
	"github.com/taxfiling/backend/internal/domain/audit"
)

// CalculationHandler handles calculation record API endpoints
type CalculationHandler struct {
	BaseHandler
	service *appaudit.CalculationService
}

// NewCalculationHandler creates a new CalculationHandler
func NewCalculationHandler(service *appaudit.CalculationService) *CalculationHandler {
	return &CalculationHandler{service: service}
}

// StepRequest is one breakdown step in a record submission
type StepRequest struct {
	StepNumber     int             `json:"step_number" binding:"required,min=1"`
	Description    string          `json:"description" binding:"required,max=500"`
	Formula        string          `json:"formula" binding:"max=500"`
	InputValues    map[string]any  `json:"input_values"`
	Calculation    string          `json:"calculation"`
	Result         decimal.Decimal `json:"result"`
	Currency       string          `json:"currency"`
	RegulatoryNote string          `json:"regulatory_note" binding:"max=500"`
}

// RecordCalculationRequest is the body for recording a calculation
type RecordCalculationRequest struct {
	CalculationType     string          `json:"calculation_type" binding:"required"`
	InputData           map[string]any  `json:"input_data"`
	TotalAmount         decimal.Decimal `json:"total_amount" binding:"required"`
	Currency            string          `json:"currency"`
	MethodUsed          string          `json:"method_used" binding:"required,max=100"`
	Compliant           bool            `json:"compliant"`
	RegulatoryReference string          `json:"regulatory_reference" binding:"max=255"`
	ReferenceID         *string         `json:"reference_id" binding:"omitempty,uuid"`
	Steps               []StepRequest   `json:"steps" binding:"required,min=1,dive"`
}

// Record handles POST /calculations
func (h *CalculationHandler) Record(c *gin.Context) {
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

	var req RecordCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	var referenceID *uuid.UUID
	if req.ReferenceID != nil {
		id, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			h.BadRequest(c, "reference_id must be a valid UUID")
			return
		}
		referenceID = &id
	}

	steps := make([]appaudit.StepRequest, 0, len(req.Steps))
	for _, step := range req.Steps {
		steps = append(steps, appaudit.StepRequest{
			StepNumber:     step.StepNumber,
			Description:    step.Description,
			Formula:        step.Formula,
			InputValues:    audit.JSONMap(step.InputValues),
			Calculation:    step.Calculation,
			Result:         step.Result,
			Currency:       step.Currency,
			RegulatoryNote: step.RegulatoryNote,
		})
	}

	record, err := h.service.RecordCalculation(c.Request.Context(), appaudit.RecordCalculationRequest{
		CompanyID:           companyID,
		UserID:              userID,
		CalculationType:     audit.CalculationType(req.CalculationType),
		InputData:           audit.JSONMap(req.InputData),
		TotalAmount:         req.TotalAmount,
		Currency:            req.Currency,
		MethodUsed:          req.MethodUsed,
		Compliant:           req.Compliant,
		RegulatoryReference: req.RegulatoryReference,
		ReferenceID:         referenceID,
		Steps:               steps,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// GetBreakdown handles GET /calculations/:id/breakdown
func (h *CalculationHandler) GetBreakdown(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Record ID must be a valid UUID")
		return
	}

	record, err := h.service.GetBreakdown(c.Request.Context(), companyID, recordID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// HistoryRequest is the query for GET /calculations/history
type HistoryRequest struct {
	CalculationType string `form:"calculation_type" binding:"omitempty,oneof=VAT CIT TRANSFER_PRICING DMTT PENALTY OTHER"`
	ReferenceID     string `form:"reference_id" binding:"omitempty,uuid"`
	Status          string `form:"status" binding:"omitempty,oneof=ACTIVE SUPERSEDED DISPUTED"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// History handles GET /calculations/history
func (h *CalculationHandler) History(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}

	var req HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := appaudit.HistoryFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.CalculationType != "" {
		calcType := audit.CalculationType(req.CalculationType)
		filter.CalculationType = &calcType
	}
	if req.Status != "" {
		status := audit.RecordStatus(req.Status)
		filter.Status = &status
	}
	if req.ReferenceID != "" {
		id, err := uuid.Parse(req.ReferenceID)
		if err != nil {
			h.BadRequest(c, "reference_id must be a valid UUID")
			return
		}
		filter.ReferenceID = &id
	}

	records, err := h.service.GetHistory(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// Validate handles POST /calculations/:id/validate
func (h *CalculationHandler) Validate(c *gin.Context) {
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
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Record ID must be a valid UUID")
		return
	}

	record, err := h.service.ValidateRecord(c.Request.Context(), companyID, recordID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}
