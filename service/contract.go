package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lethabomaepa11/rocketsales-sub001/model"
	"github.com/lethabomaepa11/rocketsales-sub001/pkg/logger"
)

const (
	defaultNoticeDays = 90
	defaultCurrency   = "USD"
)

// Options configures the services. Zero values fall back to defaults.
type Options struct {
	Clock             Clock
	Events            EventRecorder
	Metrics           *Metrics
	DefaultNoticeDays int
	DefaultCurrency   string
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Events == nil {
		o.Events = LogRecorder{}
	}
	if o.DefaultNoticeDays <= 0 {
		o.DefaultNoticeDays = defaultNoticeDays
	}
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = defaultCurrency
	}
	return o
}

// ContractService owns Contract.status and is the only writer of it, apart
// from the renewal completion it performs on behalf of RenewalService.
type ContractService struct {
	store Store
	opts  Options
}

func NewContractService(store Store, opts Options) *ContractService {
	return &ContractService{store: store, opts: opts.withDefaults()}
}

// ContractInput carries the fields of a new contract.
type ContractInput struct {
	Title                   string    `json:"title"`
	ContractNumber          string    `json:"contract_number"`
	ClientID                string    `json:"client_id"`
	OpportunityID           string    `json:"opportunity_id"`
	ProposalID              string    `json:"proposal_id"`
	Value                   float64   `json:"value"`
	Currency                string    `json:"currency"`
	StartDate               time.Time `json:"start_date"`
	EndDate                 time.Time `json:"end_date"`
	RenewalNoticePeriodDays *int      `json:"renewal_notice_period_days"`
	AutoRenew               bool      `json:"auto_renew"`
	Terms                   string    `json:"terms"`
	OwnerID                 string    `json:"owner_id"`
}

// ContractUpdate is a partial update; nil fields are left unchanged.
type ContractUpdate struct {
	Title                   *string    `json:"title"`
	ContractNumber          *string    `json:"contract_number"`
	ClientID                *string    `json:"client_id"`
	OpportunityID           *string    `json:"opportunity_id"`
	ProposalID              *string    `json:"proposal_id"`
	Value                   *float64   `json:"value"`
	Currency                *string    `json:"currency"`
	StartDate               *time.Time `json:"start_date"`
	EndDate                 *time.Time `json:"end_date"`
	RenewalNoticePeriodDays *int       `json:"renewal_notice_period_days"`
	AutoRenew               *bool      `json:"auto_renew"`
	Terms                   *string    `json:"terms"`
	OwnerID                 *string    `json:"owner_id"`
}

func validateContract(c *model.Contract) error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return &ValidationError{Field: "title", Reason: "is required"}
	case strings.TrimSpace(c.ClientID) == "":
		return &ValidationError{Field: "client_id", Reason: "is required"}
	case c.StartDate.IsZero():
		return &ValidationError{Field: "start_date", Reason: "is required"}
	case c.EndDate.IsZero():
		return &ValidationError{Field: "end_date", Reason: "is required"}
	case c.EndDate.Before(c.StartDate):
		return &ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	case c.RenewalNoticePeriodDays < 0:
		return &ValidationError{Field: "renewal_notice_period_days", Reason: "must not be negative"}
	case c.Value < 0:
		return &ValidationError{Field: "value", Reason: "must not be negative"}
	case len(c.Currency) != 3:
		return &ValidationError{Field: "currency", Reason: "must be a three-letter code"}
	}
	return nil
}

func (s *ContractService) now() time.Time { return s.opts.Clock.Now() }

func (s *ContractService) emit(ctx context.Context, events ...LifecycleEvent) {
	emitEvents(ctx, s.opts, events)
}

func emitEvents(ctx context.Context, opts Options, events []LifecycleEvent) {
	for _, evt := range events {
		if err := opts.Events.Record(ctx, evt); err != nil {
			opts.Metrics.eventFailed()
			logger.Warn(ctx, "failed to record lifecycle event",
				"action", evt.Action, "contract_id", evt.ContractID, "error", err)
		}
	}
}

// CreateContract stores a new contract in Draft.
func (s *ContractService) CreateContract(ctx context.Context, p Principal, in ContractInput) (view *model.ContractView, err error) {
	defer func() { s.opts.Metrics.observeCommand(string(ActionCreate), err) }()

	if err := p.authorize(ActionCreate); err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Contract{
		ID:                      uuid.New().String(),
		Title:                   strings.TrimSpace(in.Title),
		ContractNumber:          strings.TrimSpace(in.ContractNumber),
		ClientID:                strings.TrimSpace(in.ClientID),
		OpportunityID:           in.OpportunityID,
		ProposalID:              in.ProposalID,
		Value:                   in.Value,
		Currency:                strings.ToUpper(strings.TrimSpace(in.Currency)),
		StartDate:               in.StartDate,
		EndDate:                 in.EndDate,
		RenewalNoticePeriodDays: s.opts.DefaultNoticeDays,
		AutoRenew:               in.AutoRenew,
		Terms:                   in.Terms,
		OwnerID:                 in.OwnerID,
		Status:                  model.StatusDraft,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if in.RenewalNoticePeriodDays != nil {
		c.RenewalNoticePeriodDays = *in.RenewalNoticePeriodDays
	}
	if c.Currency == "" {
		c.Currency = s.opts.DefaultCurrency
	}
	if c.OwnerID == "" {
		c.OwnerID = p.ID
	}
	if err := validateContract(c); err != nil {
		return nil, err
	}

	if err := s.store.CreateContract(ctx, c); err != nil {
		return nil, err
	}

	ctx = logger.WithContractID(ctx, c.ID)
	logger.Info(ctx, "contract created", "client_id", c.ClientID)
	s.emit(ctx, LifecycleEvent{
		ContractID: c.ID, Action: string(ActionCreate),
		To: string(model.StatusDraft), Actor: p.ID, At: now,
	})

	v := viewOf(c, now)
	return &v, nil
}

// UpdateContract edits attributes of a Draft or Active contract. Status is never touched.
func (s *ContractService) UpdateContract(ctx context.Context, p Principal, id string, in ContractUpdate) (view *model.ContractView, err error) {
	defer func() { s.opts.Metrics.observeCommand(string(ActionUpdate), err) }()

	if err := p.authorize(ActionUpdate); err != nil {
		return nil, err
	}

	ctx = logger.WithContractID(ctx, id)
	var updated *model.Contract
	err = s.store.WithContract(ctx, id, func(tx *ContractTx) error {
		c := tx.Contract()
		if c.Status.Terminal() {
			return invalidContractState(c, "updated")
		}
		applyUpdate(c, in)
		if err := validateContract(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		tx.SaveContract()
		updated = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "contract updated")
	s.emit(ctx, LifecycleEvent{
		ContractID: id, Action: string(ActionUpdate), Actor: p.ID, At: updated.UpdatedAt,
	})
	v := viewOf(updated, s.now())
	return &v, nil
}

func applyUpdate(c *model.Contract, in ContractUpdate) {
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.ContractNumber != nil {
		c.ContractNumber = strings.TrimSpace(*in.ContractNumber)
	}
	if in.ClientID != nil {
		c.ClientID = strings.TrimSpace(*in.ClientID)
	}
	if in.OpportunityID != nil {
		c.OpportunityID = *in.OpportunityID
	}
	if in.ProposalID != nil {
		c.ProposalID = *in.ProposalID
	}
	if in.Value != nil {
		c.Value = *in.Value
	}
	if in.Currency != nil {
		c.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.StartDate != nil {
		c.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = *in.EndDate
	}
	if in.RenewalNoticePeriodDays != nil {
		c.RenewalNoticePeriodDays = *in.RenewalNoticePeriodDays
	}
	if in.AutoRenew != nil {
		c.AutoRenew = *in.AutoRenew
	}
	if in.Terms != nil {
		c.Terms = *in.Terms
	}
	if in.OwnerID != nil {
		c.OwnerID = *in.OwnerID
	}
}

// DeleteContract removes a contract, which is only possible while it is a Draft.
func (s *ContractService) DeleteContract(ctx context.Context, p Principal, id string) (err error) {
	defer func() { s.opts.Metrics.observeCommand(string(ActionDelete), err) }()

	if err := p.authorize(ActionDelete); err != nil {
		return err
	}

	ctx = logger.WithContractID(ctx, id)
	err = s.store.WithContract(ctx, id, func(tx *ContractTx) error {
		c := tx.Contract()
		if c.Status != model.StatusDraft {
			return invalidContractState(c, "deleted")
		}
		tx.DeleteContract()
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "contract deleted")
	s.emit(ctx, LifecycleEvent{
		ContractID: id, Action: string(ActionDelete),
		From: string(model.StatusDraft), Actor: p.ID, At: s.now(),
	})
	return nil
}

// ActivateContract moves Draft to Active. Activating an Active contract is a no-op.
func (s *ContractService) ActivateContract(ctx context.Context, p Principal, id string) (view *model.ContractView, err error) {
	defer func() { s.opts.Metrics.observeCommand(string(ActionActivate), err) }()

	if err := p.authorize(ActionActivate); err != nil {
		return nil, err
	}

	ctx = logger.WithContractID(ctx, id)
	var (
		result  *model.Contract
		changed bool
	)
	err = s.store.WithContract(ctx, id, func(tx *ContractTx) error {
		c := tx.Contract()
		switch c.Status {
		case model.StatusActive:
		case model.StatusDraft:
			if c.StartDate.IsZero() || c.EndDate.IsZero() {
				return &ValidationError{Field: "start_date/end_date", Reason: "must be set before activation"}
			}
			now := s.now()
			c.Status = model.StatusActive
			c.ActivatedAt = &now
			c.UpdatedAt = now
			tx.SaveContract()
			changed = true
		default:
			return invalidTransition(c, model.StatusActive)
		}
		result = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logger.Info(ctx, "contract activated")
		s.emit(ctx, LifecycleEvent{
			ContractID: id, Action: string(ActionActivate),
			From: string(model.StatusDraft), To: string(model.StatusActive),
			Actor: p.ID, At: result.UpdatedAt,
		})
	}
	v := viewOf(result, s.now())
	return &v, nil
}

// CancelContract moves Active to Cancelled and cancels any open renewal with it.
// Cancelling a Cancelled contract is a no-op.
func (s *ContractService) CancelContract(ctx context.Context, p Principal, id string) (view *model.ContractView, err error) {
	defer func() { s.opts.Metrics.observeCommand(string(ActionCancel), err) }()

	if err := p.authorize(ActionCancel); err != nil {
		return nil, err
	}

	ctx = logger.WithContractID(ctx, id)
	var (
		result *model.Contract
		events []LifecycleEvent
	)
	err = s.store.WithContract(ctx, id, func(tx *ContractTx) error {
		c := tx.Contract()
		switch c.Status {
		case model.StatusCancelled:
		case model.StatusActive:
			now := s.now()
			c.Status = model.StatusCancelled
			c.CancelledAt = &now
			c.UpdatedAt = now
			tx.SaveContract()
			events = append(events, LifecycleEvent{
				ContractID: id, Action: string(ActionCancel),
				From: string(model.StatusActive), To: string(model.StatusCancelled),
				Actor: p.ID, At: now,
			})

			for _, r := range tx.Renewals() {
				if !r.Status.Open() {
					continue
				}
				from := r.Status
				r.Status = model.RenewalCancelled
				r.UpdatedAt = now
				tx.SaveRenewal(r)
				events = append(events, LifecycleEvent{
					ContractID: id, RenewalID: r.ID, Action: "cancel_renewal",
					From: string(from), To: string(model.RenewalCancelled),
					Actor: p.ID, At: now,
				})
			}
		default:
			return invalidTransition(c, model.StatusCancelled)
		}
		result = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(events) > 0 {
		logger.Info(ctx, "contract cancelled", "renewals_cancelled", len(events)-1)
		s.emit(ctx, events...)
	}
	v := viewOf(result, s.now())
	return &v, nil
}

// renew is the Renewed transition, run inside the exclusive section opened by
// RenewalService.CompleteRenewal. The guard reads the stored status, so an
// Active contract past its end date (read as Expired) can still be renewed.
func (s *ContractService) renew(tx *ContractTx, now time.Time) error {
	c := tx.Contract()
	if c.Status != model.StatusActive {
		return invalidTransition(c, model.StatusRenewed)
	}
	c.Status = model.StatusRenewed
	c.RenewedAt = &now
	c.UpdatedAt = now
	tx.SaveContract()
	return nil
}

// GetContract returns a contract with its expiry fields computed now.
func (s *ContractService) GetContract(ctx context.Context, id string) (*model.ContractView, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	v := viewOf(c, s.now())
	return &v, nil
}

// ListContracts returns the contracts matching filter, oldest first.
func (s *ContractService) ListContracts(ctx context.Context, filter model.ContractFilter) ([]model.ContractView, error) {
	contracts, err := s.store.ListContracts(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := make([]model.ContractView, 0, len(contracts))
	for _, c := range contracts {
		v := viewOf(c, now)
		if matches(v, filter) {
			result = append(result, v)
		}
	}
	return result, nil
}

func matches(v model.ContractView, f model.ContractFilter) bool {
	if f.Status != "" && v.EffectiveStatus != f.Status {
		return false
	}
	if f.ClientID != "" && v.ClientID != f.ClientID {
		return false
	}
	if f.OwnerID != "" && v.OwnerID != f.OwnerID {
		return false
	}
	if f.ExpiringSoon != nil && v.IsExpiringSoon != *f.ExpiringSoon {
		return false
	}
	return true
}
