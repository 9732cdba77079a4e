package model

import (
	"time"
)

type ContractStatus string

// Stored statuses. StatusExpired is never persisted; it is derived on read
// for an active contract whose end date has passed.
const (
	StatusDraft     ContractStatus = "draft"
	StatusActive    ContractStatus = "active"
	StatusExpired   ContractStatus = "expired"
	StatusRenewed   ContractStatus = "renewed"
	StatusCancelled ContractStatus = "cancelled"
)

// ParseContractStatus accepts the lowercase wire form only.
func ParseContractStatus(s string) (ContractStatus, bool) {
	switch st := ContractStatus(s); st {
	case StatusDraft, StatusActive, StatusExpired, StatusRenewed, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition can leave the status.
func (s ContractStatus) Terminal() bool {
	return s == StatusRenewed || s == StatusCancelled
}

// Contract represents a commercial agreement with a client
type Contract struct {
	ID                      string         `json:"id"`
	Title                   string         `json:"title"`
	ContractNumber          string         `json:"contract_number,omitempty"`
	ClientID                string         `json:"client_id"`
	OpportunityID           string         `json:"opportunity_id,omitempty"`
	ProposalID              string         `json:"proposal_id,omitempty"`
	Value                   float64        `json:"value"`
	Currency                string         `json:"currency"`
	StartDate               time.Time      `json:"start_date"`
	EndDate                 time.Time      `json:"end_date"`
	RenewalNoticePeriodDays int            `json:"renewal_notice_period_days"`
	AutoRenew               bool           `json:"auto_renew"`
	Terms                   string         `json:"terms,omitempty"`
	OwnerID                 string         `json:"owner_id"`
	Status                  ContractStatus `json:"status"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
	ActivatedAt             *time.Time     `json:"activated_at,omitempty"`
	CancelledAt             *time.Time     `json:"cancelled_at,omitempty"`
	RenewedAt               *time.Time     `json:"renewed_at,omitempty"`
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	out.ActivatedAt = cloneTime(c.ActivatedAt)
	out.CancelledAt = cloneTime(c.CancelledAt)
	out.RenewedAt = cloneTime(c.RenewedAt)
	return &out
}

// ContractView is a contract as returned by queries, with the expiry fields
// computed at response time.
type ContractView struct {
	Contract
	EffectiveStatus ContractStatus `json:"effective_status"`
	DaysUntilExpiry int            `json:"days_until_expiry"`
	IsExpiringSoon  bool           `json:"is_expiring_soon"`
}

// ContractFilter narrows ListContracts. Zero values match everything.
type ContractFilter struct {
	Status       ContractStatus // matched against the effective status
	ClientID     string
	OwnerID      string
	ExpiringSoon *bool
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
