package model

import "time"

type RenewalStatus string

const (
	RenewalPending    RenewalStatus = "pending"
	RenewalInProgress RenewalStatus = "in_progress"
	RenewalCompleted  RenewalStatus = "completed"
	RenewalCancelled  RenewalStatus = "cancelled"
)

// Open reports whether the renewal still blocks a new one on the same contract.
func (s RenewalStatus) Open() bool {
	return s == RenewalPending || s == RenewalInProgress
}

// ContractRenewal is one renewal attempt against a parent contract.
type ContractRenewal struct {
	ID                   string        `json:"id"`
	ContractID           string        `json:"contract_id"`
	RenewalOpportunityID string        `json:"renewal_opportunity_id,omitempty"`
	Notes                string        `json:"notes,omitempty"`
	Status               RenewalStatus `json:"status"`
	CreatedBy            string        `json:"created_by,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
}

func (r *ContractRenewal) Clone() *ContractRenewal {
	if r == nil {
		return nil
	}
	out := *r
	out.CompletedAt = cloneTime(r.CompletedAt)
	return &out
}
