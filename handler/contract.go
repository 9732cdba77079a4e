package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lethabomaepa11/rocketsales-sub001/model"
	"github.com/lethabomaepa11/rocketsales-sub001/service"
)

// HistoryReader returns the archived lifecycle events of a contract.
type HistoryReader interface {
	History(ctx context.Context, contractID string) ([]service.LifecycleEvent, error)
}

type ContractHandler struct {
	contracts *service.ContractService
	renewals  *service.RenewalService
	history   HistoryReader
}

// NewContractHandler wires the contract endpoints. history may be nil when
// the lifecycle archive is disabled.
func NewContractHandler(contracts *service.ContractService, renewals *service.RenewalService, history HistoryReader) *ContractHandler {
	return &ContractHandler{contracts: contracts, renewals: renewals, history: history}
}

// ContractRequest is the wire form of a new contract. Dates are parsed by
// parseDate so clients may send either a bare date or a timestamp.
type ContractRequest struct {
	Title                   string  `json:"title"`
	ContractNumber          string  `json:"contract_number"`
	ClientID                string  `json:"client_id"`
	OpportunityID           string  `json:"opportunity_id"`
	ProposalID              string  `json:"proposal_id"`
	Value                   float64 `json:"value"`
	Currency                string  `json:"currency"`
	StartDate               string  `json:"start_date"`
	EndDate                 string  `json:"end_date"`
	RenewalNoticePeriodDays *int    `json:"renewal_notice_period_days"`
	AutoRenew               bool    `json:"auto_renew"`
	Terms                   string  `json:"terms"`
	OwnerID                 string  `json:"owner_id"`
}

func (r ContractRequest) input() (service.ContractInput, error) {
	in := service.ContractInput{
		Title:                   r.Title,
		ContractNumber:          r.ContractNumber,
		ClientID:                r.ClientID,
		OpportunityID:           r.OpportunityID,
		ProposalID:              r.ProposalID,
		Value:                   r.Value,
		Currency:                r.Currency,
		RenewalNoticePeriodDays: r.RenewalNoticePeriodDays,
		AutoRenew:               r.AutoRenew,
		Terms:                   r.Terms,
		OwnerID:                 r.OwnerID,
	}
	var err error
	if r.StartDate != "" {
		if in.StartDate, err = parseDate("start_date", r.StartDate); err != nil {
			return in, err
		}
	}
	if r.EndDate != "" {
		if in.EndDate, err = parseDate("end_date", r.EndDate); err != nil {
			return in, err
		}
	}
	return in, nil
}

// ContractPatch carries a partial update; absent fields are left untouched.
type ContractPatch struct {
	Title                   *string  `json:"title"`
	ContractNumber          *string  `json:"contract_number"`
	ClientID                *string  `json:"client_id"`
	OpportunityID           *string  `json:"opportunity_id"`
	ProposalID              *string  `json:"proposal_id"`
	Value                   *float64 `json:"value"`
	Currency                *string  `json:"currency"`
	StartDate               *string  `json:"start_date"`
	EndDate                 *string  `json:"end_date"`
	RenewalNoticePeriodDays *int     `json:"renewal_notice_period_days"`
	AutoRenew               *bool    `json:"auto_renew"`
	Terms                   *string  `json:"terms"`
	OwnerID                 *string  `json:"owner_id"`
}

func (p ContractPatch) update() (service.ContractUpdate, error) {
	upd := service.ContractUpdate{
		Title:                   p.Title,
		ContractNumber:          p.ContractNumber,
		ClientID:                p.ClientID,
		OpportunityID:           p.OpportunityID,
		ProposalID:              p.ProposalID,
		Value:                   p.Value,
		Currency:                p.Currency,
		RenewalNoticePeriodDays: p.RenewalNoticePeriodDays,
		AutoRenew:               p.AutoRenew,
		Terms:                   p.Terms,
		OwnerID:                 p.OwnerID,
	}
	var err error
	if upd.StartDate, err = parseOptionalDate("start_date", p.StartDate); err != nil {
		return upd, err
	}
	if upd.EndDate, err = parseOptionalDate("end_date", p.EndDate); err != nil {
		return upd, err
	}
	return upd, nil
}

// Create registers a Draft contract
func (h *ContractHandler) Create(c *gin.Context) {
	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.contracts.CreateContract(c.Request.Context(), principal(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List returns contracts matching the status, client_id, owner_id and
// expiring_soon query parameters.
func (h *ContractHandler) List(c *gin.Context) {
	filter := model.ContractFilter{
		ClientID: c.Query("client_id"),
		OwnerID:  c.Query("owner_id"),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := model.ParseContractStatus(raw)
		if !ok {
			respondError(c, &service.ValidationError{Field: "status", Reason: "is not a contract status"})
			return
		}
		filter.Status = status
	}
	soon, err := queryBool(c, "expiring_soon")
	if err != nil {
		respondError(c, err)
		return
	}
	filter.ExpiringSoon = soon

	views, err := h.contracts.ListContracts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": views})
}

// Get returns a single contract with its derived expiry fields
func (h *ContractHandler) Get(c *gin.Context) {
	view, err := h.contracts.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ContractHandler) Update(c *gin.Context) {
	var patch ContractPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	upd, err := patch.update()
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.contracts.UpdateContract(c.Request.Context(), principal(c), c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete removes a Draft contract
func (h *ContractHandler) Delete(c *gin.Context) {
	if err := h.contracts.DeleteContract(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

func (h *ContractHandler) Activate(c *gin.Context) {
	view, err := h.contracts.ActivateContract(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ContractHandler) Cancel(c *gin.Context) {
	view, err := h.contracts.CancelContract(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateRenewal opens a renewal against an Active contract
func (h *ContractHandler) CreateRenewal(c *gin.Context) {
	var in service.RenewalInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "Invalid request")
			return
		}
	}

	renewal, err := h.renewals.CreateRenewal(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, renewal)
}

func (h *ContractHandler) ListRenewals(c *gin.Context) {
	renewals, err := h.renewals.ListRenewals(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"renewals": renewals})
}

// History returns the archived lifecycle events of a contract
func (h *ContractHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lifecycle archive is disabled", "code": "not_found"})
		return
	}
	id := c.Param("id")
	if _, err := h.contracts.GetContract(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	events, err := h.history.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
