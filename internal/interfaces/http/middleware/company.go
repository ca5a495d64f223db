package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taxfiling/backend/internal/infrastructure/logger"
	"github.com/taxfiling/backend/internal/interfaces/http/dto"
)

// Gin context keys set by CompanyContext
const (
	CompanyIDKey = "company_id"
	UserIDKey    = "user_id"
)

// CompanyContext resolves the acting company and user from the
// X-Company-ID and X-User-ID headers. Every audit record is scoped to a
// company, so requests without a valid company header are rejected
// before reaching a handler. The IDs are also attached to the request
// context so log lines carry them.
func CompanyContext(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		companyHeader := c.GetHeader("X-Company-ID")
		if companyHeader == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "X-Company-ID header is required"))
			return
		}
		companyID, err := uuid.Parse(companyHeader)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "X-Company-ID must be a valid UUID"))
			return
		}
		c.Set(CompanyIDKey, companyID)

		ctx, _ := logger.WithCompanyID(c.Request.Context(), log, companyID.String())

		if userHeader := c.GetHeader("X-User-ID"); userHeader != "" {
			userID, err := uuid.Parse(userHeader)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest,
					dto.NewErrorResponse(dto.ErrCodeBadRequest, "X-User-ID must be a valid UUID"))
				return
			}
			c.Set(UserIDKey, userID)
			ctx, _ = logger.WithUserID(ctx, log, userID.String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetCompanyID returns the company ID resolved by CompanyContext
func GetCompanyID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(CompanyIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// GetUserID returns the user ID resolved by CompanyContext
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
