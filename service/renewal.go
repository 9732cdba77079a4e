package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lethabomaepa11/rocketsales-sub001/model"
	"github.com/lethabomaepa11/rocketsales-sub001/pkg/logger"
)

// RenewalService owns ContractRenewal.status. Completing a renewal asks the
// ContractService to mark the parent Renewed within the same exclusive section.
type RenewalService struct {
	store     Store
	contracts *ContractService
	opts      Options
}

func NewRenewalService(store Store, contracts *ContractService, opts Options) *RenewalService {
	return &RenewalService{store: store, contracts: contracts, opts: opts.withDefaults()}
}

type RenewalInput struct {
	Notes                string `json:"notes"`
	RenewalOpportunityID string `json:"renewal_opportunity_id"`
}

// CreateRenewal opens a Pending renewal on an Active (possibly expired) contract.
func (s *RenewalService) CreateRenewal(ctx context.Context, p Principal, contractID string, in RenewalInput) (renewal *model.ContractRenewal, err error) {
	defer func() { s.opts.Metrics.observeCommand(string(ActionCreateRenewal), err) }()

	if err := p.authorize(ActionCreateRenewal); err != nil {
		return nil, err
	}

	ctx = logger.WithContractID(ctx, contractID)
	err = s.store.WithContract(ctx, contractID, func(tx *ContractTx) error {
		c := tx.Contract()
		if c.Status != model.StatusActive {
			return invalidContractState(c, "renewal")
		}
		if open, ok := tx.OpenRenewal(); ok {
			return &ConflictError{ContractID: c.ID, ExistingRenewalID: open.ID}
		}

		now := s.opts.Clock.Now()
		renewal = &model.ContractRenewal{
			ID:                   uuid.New().String(),
			RenewalOpportunityID: strings.TrimSpace(in.RenewalOpportunityID),
			Notes:                in.Notes,
			Status:               model.RenewalPending,
			CreatedBy:            p.ID,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		tx.AddRenewal(renewal)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "renewal created", "renewal_id", renewal.ID)
	emitEvents(ctx, s.opts, []LifecycleEvent{{
		ContractID: contractID, RenewalID: renewal.ID, Action: string(ActionCreateRenewal),
		To: string(model.RenewalPending), Actor: p.ID, At: renewal.CreatedAt,
	}})
	return renewal.Clone(), nil
}

// mutateRenewal locates the renewal's parent and runs fn inside the parent's
// exclusive section with the locked copy of the renewal.
func (s *RenewalService) mutateRenewal(ctx context.Context, renewalID string, fn func(tx *ContractTx, r *model.ContractRenewal) error) (context.Context, error) {
	existing, err := s.store.GetRenewal(ctx, renewalID)
	if err != nil {
		return ctx, err
	}

	ctx = logger.WithContractID(ctx, existing.ContractID)
	err = s.store.WithContract(ctx, existing.ContractID, func(tx *ContractTx) error {
		r, ok := tx.Renewal(renewalID)
		if !ok {
			return notFound("renewal", renewalID)
		}
		return fn(tx, r)
	})
	return ctx, err
}

// StartRenewal marks a Pending renewal as InProgress. Repeating it is a no-op.
func (s *RenewalService) StartRenewal(ctx context.Context, p Principal, renewalID string) (renewal *model.ContractRenewal, err error) {
	defer func() { s.opts.Metrics.observeCommand("start_renewal", err) }()

	if err := p.authorize(ActionCreateRenewal); err != nil {
		return nil, err
	}

	changed := false
	ctx, err = s.mutateRenewal(ctx, renewalID, func(tx *ContractTx, r *model.ContractRenewal) error {
		switch r.Status {
		case model.RenewalInProgress:
		case model.RenewalPending:
			r.Status = model.RenewalInProgress
			r.UpdatedAt = s.opts.Clock.Now()
			tx.SaveRenewal(r)
			changed = true
		default:
			return invalidRenewalState(r, model.RenewalInProgress)
		}
		renewal = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logger.Info(ctx, "renewal started", "renewal_id", renewalID)
		emitEvents(ctx, s.opts, []LifecycleEvent{{
			ContractID: renewal.ContractID, RenewalID: renewalID, Action: "start_renewal",
			From: string(model.RenewalPending), To: string(model.RenewalInProgress),
			Actor: p.ID, At: renewal.UpdatedAt,
		}})
	}
	return renewal, nil
}

// CompleteRenewal closes an open renewal and renews the parent contract in one commit.
func (s *RenewalService) CompleteRenewal(ctx context.Context, p Principal, renewalID string) (renewal *model.ContractRenewal, err error) {
	defer func() { s.opts.Metrics.observeCommand(string(ActionCompleteRenewal), err) }()

	if err := p.authorize(ActionCompleteRenewal); err != nil {
		return nil, err
	}

	var from model.RenewalStatus
	var contractFrom model.ContractStatus
	ctx, err = s.mutateRenewal(ctx, renewalID, func(tx *ContractTx, r *model.ContractRenewal) error {
		if !r.Status.Open() {
			return invalidRenewalState(r, model.RenewalCompleted)
		}
		now := s.opts.Clock.Now()
		contractFrom = EffectiveStatus(tx.Contract(), now)
		if err := s.contracts.renew(tx, now); err != nil {
			return err
		}

		from = r.Status
		r.Status = model.RenewalCompleted
		r.CompletedAt = &now
		r.UpdatedAt = now
		tx.SaveRenewal(r)
		renewal = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "renewal completed", "renewal_id", renewalID)
	emitEvents(ctx, s.opts, []LifecycleEvent{
		{
			ContractID: renewal.ContractID, RenewalID: renewalID, Action: string(ActionCompleteRenewal),
			From: string(from), To: string(model.RenewalCompleted), Actor: p.ID, At: renewal.UpdatedAt,
		},
		{
			ContractID: renewal.ContractID, RenewalID: renewalID, Action: "renew",
			From: string(contractFrom), To: string(model.StatusRenewed), Actor: p.ID, At: renewal.UpdatedAt,
		},
	})
	return renewal, nil
}

// CancelRenewal abandons a Pending or InProgress renewal.
func (s *RenewalService) CancelRenewal(ctx context.Context, p Principal, renewalID string) (renewal *model.ContractRenewal, err error) {
	defer func() { s.opts.Metrics.observeCommand("cancel_renewal", err) }()

	if err := p.authorize(ActionCancel); err != nil {
		return nil, err
	}

	var from model.RenewalStatus
	ctx, err = s.mutateRenewal(ctx, renewalID, func(tx *ContractTx, r *model.ContractRenewal) error {
		if !r.Status.Open() {
			return invalidRenewalState(r, model.RenewalCancelled)
		}
		from = r.Status
		r.Status = model.RenewalCancelled
		r.UpdatedAt = s.opts.Clock.Now()
		tx.SaveRenewal(r)
		renewal = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "renewal cancelled", "renewal_id", renewalID)
	emitEvents(ctx, s.opts, []LifecycleEvent{{
		ContractID: renewal.ContractID, RenewalID: renewalID, Action: "cancel_renewal",
		From: string(from), To: string(model.RenewalCancelled), Actor: p.ID, At: renewal.UpdatedAt,
	}})
	return renewal, nil
}

func (s *RenewalService) GetRenewal(ctx context.Context, id string) (*model.ContractRenewal, error) {
	return s.store.GetRenewal(ctx, id)
}

// ListRenewals returns a contract's renewals, oldest first.
func (s *RenewalService) ListRenewals(ctx context.Context, contractID string) ([]*model.ContractRenewal, error) {
	return s.store.ListRenewals(ctx, contractID)
}
