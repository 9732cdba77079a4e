package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lethabomaepa11/rocketsales-sub001/service"
)

type AlertHandler struct {
	alerts *service.AlertService
}

func NewAlertHandler(alerts *service.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Expiring lists Active contracts inside their notice window, or inside the
// optional within_days window.
func (h *AlertHandler) Expiring(c *gin.Context) {
	within, err := queryInt(c, "within_days")
	if err != nil {
		respondError(c, err)
		return
	}

	views, err := h.alerts.ListExpiringSoon(c.Request.Context(), within)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": views, "count": len(views)})
}

// Summary returns the dashboard payload with totals per currency
func (h *AlertHandler) Summary(c *gin.Context) {
	within, err := queryInt(c, "within_days")
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.alerts.Summary(c.Request.Context(), within)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
