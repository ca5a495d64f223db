package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/taxfiling/backend/internal/interfaces/http/router"
)

// CalculationRoutes builds the route group for calculation records
func CalculationRoutes(handler *CalculationHandler, companyMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("/calculations")
	group.Use(companyMiddleware)

	group.POST("", handler.Record)
	group.GET("/history", handler.History)
	group.GET("/:id/breakdown", handler.GetBreakdown)
	group.POST("/:id/validate", handler.Validate)

	return group
}

// AmendmentRoutes builds the route group for the amendment workflow
func AmendmentRoutes(handler *AmendmentHandler, companyMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("/amendments")
	group.Use(companyMiddleware)

	group.POST("", handler.Create)
	group.GET("", handler.List)
	group.GET("/:id", handler.Get)
	group.POST("/:id/approve", handler.Approve)
	group.POST("/:id/reject", handler.Reject)

	return group
}

// ReportRoutes builds the route group for summary reports and exports
func ReportRoutes(handler *ReportHandler, companyMiddleware gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("/reports")
	group.Use(companyMiddleware)

	group.POST("/summary", handler.Generate)
	group.GET("", handler.List)
	group.GET("/:id", handler.Get)
	group.POST("/:id/export", handler.Export)
	group.GET("/:id/artifact", handler.Download)

	return group
}
