package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the lifecycle API on an authenticated group.
func RegisterRoutes(api *gin.RouterGroup, contracts *ContractHandler, renewals *RenewalHandler, alerts *AlertHandler) {
	api.POST("/contracts", contracts.Create)
	api.GET("/contracts", contracts.List)
	api.GET("/contracts/:id", contracts.Get)
	api.PUT("/contracts/:id", contracts.Update)
	api.DELETE("/contracts/:id", contracts.Delete)
	api.POST("/contracts/:id/activate", contracts.Activate)
	api.POST("/contracts/:id/cancel", contracts.Cancel)
	api.GET("/contracts/:id/history", contracts.History)
	api.POST("/contracts/:id/renewals", contracts.CreateRenewal)
	api.GET("/contracts/:id/renewals", contracts.ListRenewals)

	api.GET("/renewals/:id", renewals.Get)
	api.POST("/renewals/:id/start", renewals.Start)
	api.POST("/renewals/:id/complete", renewals.Complete)
	api.POST("/renewals/:id/cancel", renewals.Cancel)

	api.GET("/alerts/expiring", alerts.Expiring)
	api.GET("/dashboard/expiring-summary", alerts.Summary)
}
