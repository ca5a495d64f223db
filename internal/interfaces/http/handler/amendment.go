package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appaudit "github.com/taxfiling/backend/internal/application/audit"
	"github.com/taxfiling/backend/internal/domain/audit"
)

// AmendmentHandler handles amendment workflow API endpoints
type AmendmentHandler struct {
	BaseHandler
	service *appaudit.AmendmentService
}

// NewAmendmentHandler creates a new AmendmentHandler
func NewAmendmentHandler(service *appaudit.AmendmentService) *AmendmentHandler {
	return &AmendmentHandler{service: service}
}

// CreateAmendmentRequest is the body for proposing an amendment
type CreateAmendmentRequest struct {
	OriginalRecordID string         `json:"original_record_id" binding:"required,uuid"`
	AmendmentType    string         `json:"amendment_type" binding:"required,oneof=CORRECTION RECLASSIFICATION WITHDRAWAL"`
	Urgency          string         `json:"urgency" binding:"omitempty,oneof=LOW NORMAL HIGH CRITICAL"`
	NewVersion       map[string]any `json:"new_version" binding:"required"`
	Reason           string         `json:"reason" binding:"required,min=10,max=1000"`
}

// Create handles POST /amendments
func (h *AmendmentHandler) Create(c *gin.Context) {
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

	var req CreateAmendmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	originalID, err := uuid.Parse(req.OriginalRecordID)
	if err != nil {
		h.BadRequest(c, "original_record_id must be a valid UUID")
		return
	}

	amendment, err := h.service.CreateAmendment(c.Request.Context(), appaudit.CreateAmendmentRequest{
		CompanyID:        companyID,
		OriginalRecordID: originalID,
		AmendmentType:    audit.AmendmentType(req.AmendmentType),
		Urgency:          audit.Urgency(req.Urgency),
		NewVersion:       audit.JSONMap(req.NewVersion),
		Reason:           req.Reason,
		AmendedBy:        userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, amendment)
}

// Get handles GET /amendments/:id
func (h *AmendmentHandler) Get(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}
	amendmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Amendment ID must be a valid UUID")
		return
	}

	amendment, err := h.service.GetAmendment(c.Request.Context(), companyID, amendmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, amendment)
}

// ListAmendmentsRequest is the query for GET /amendments
type ListAmendmentsRequest struct {
	Status           string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED SUPERSEDED"`
	AmendmentType    string `form:"amendment_type" binding:"omitempty,oneof=CORRECTION RECLASSIFICATION WITHDRAWAL"`
	OriginalRecordID string `form:"original_record_id" binding:"omitempty,uuid"`
	Page             int    `form:"page" binding:"omitempty,min=1"`
	PageSize         int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List handles GET /amendments
func (h *AmendmentHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return
	}

	var req ListAmendmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := appaudit.AmendmentListFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Status != "" {
		status := audit.AmendmentStatus(req.Status)
		filter.Status = &status
	}
	if req.AmendmentType != "" {
		amendmentType := audit.AmendmentType(req.AmendmentType)
		filter.AmendmentType = &amendmentType
	}
	if req.OriginalRecordID != "" {
		id, err := uuid.Parse(req.OriginalRecordID)
		if err != nil {
			h.BadRequest(c, "original_record_id must be a valid UUID")
			return
		}
		filter.OriginalRecordID = &id
	}

	amendments, err := h.service.ListAmendments(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, amendments)
}

// ReviewAmendmentRequest is the body for approving or rejecting
type ReviewAmendmentRequest struct {
	ReviewNote string `json:"review_note" binding:"max=1000"`
}

// Approve handles POST /amendments/:id/approve
func (h *AmendmentHandler) Approve(c *gin.Context) {
	req, ok := h.bindReview(c)
	if !ok {
		return
	}

	result, err := h.service.ApproveAmendment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reject handles POST /amendments/:id/reject
func (h *AmendmentHandler) Reject(c *gin.Context) {
	req, ok := h.bindReview(c)
	if !ok {
		return
	}

	amendment, err := h.service.RejectAmendment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, amendment)
}

func (h *AmendmentHandler) bindReview(c *gin.Context) (appaudit.ReviewAmendmentRequest, bool) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company context is required")
		return appaudit.ReviewAmendmentRequest{}, false
	}
	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "X-User-ID header is required")
		return appaudit.ReviewAmendmentRequest{}, false
	}
	amendmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Amendment ID must be a valid UUID")
		return appaudit.ReviewAmendmentRequest{}, false
	}

	var body ReviewAmendmentRequest
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		h.ValidationError(c, err)
		return appaudit.ReviewAmendmentRequest{}, false
	}

	return appaudit.ReviewAmendmentRequest{
		CompanyID:   companyID,
		AmendmentID: amendmentID,
		ReviewedBy:  userID,
		ReviewNote:  body.ReviewNote,
	}, true
}
