package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lethabomaepa11/rocketsales-sub001/model"
	"github.com/lethabomaepa11/rocketsales-sub001/service"
)

type RenewalHandler struct {
	renewals *service.RenewalService
}

func NewRenewalHandler(renewals *service.RenewalService) *RenewalHandler {
	return &RenewalHandler{renewals: renewals}
}

func (h *RenewalHandler) Get(c *gin.Context) {
	renewal, err := h.renewals.GetRenewal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, renewal)
}

func (h *RenewalHandler) Start(c *gin.Context) {
	h.command(c, h.renewals.StartRenewal)
}

// Complete finishes the renewal and marks its contract Renewed
func (h *RenewalHandler) Complete(c *gin.Context) {
	h.command(c, h.renewals.CompleteRenewal)
}

func (h *RenewalHandler) Cancel(c *gin.Context) {
	h.command(c, h.renewals.CancelRenewal)
}

type renewalCommand func(ctx context.Context, p service.Principal, id string) (*model.ContractRenewal, error)

func (h *RenewalHandler) command(c *gin.Context, run renewalCommand) {
	renewal, err := run(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, renewal)
}
