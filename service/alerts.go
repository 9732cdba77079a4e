package service

import (
	"context"
	"sort"
	"time"

	"github.com/lethabomaepa11/rocketsales-sub001/model"
)

// AlertService builds the read-only expiring-soon feed.
type AlertService struct {
	store Store
	opts  Options
}

func NewAlertService(store Store, opts Options) *AlertService {
	return &AlertService{store: store, opts: opts.withDefaults()}
}

// ExpirySummary is the payload handed to dashboards and reports.
type ExpirySummary struct {
	GeneratedAt time.Time            `json:"generated_at"`
	WithinDays  *int                 `json:"within_days,omitempty"`
	Count       int                  `json:"count"`
	TotalValue  map[string]float64   `json:"total_value"`
	Contracts   []model.ContractView `json:"contracts"`
}

// ListExpiringSoon returns stored-Active contracts inside their notice window,
// or inside [0, withinDays] when withinDays is given, most urgent first.
func (s *AlertService) ListExpiringSoon(ctx context.Context, withinDays *int) ([]model.ContractView, error) {
	views, _, err := s.expiring(ctx, withinDays)
	return views, err
}

func (s *AlertService) expiring(ctx context.Context, withinDays *int) ([]model.ContractView, time.Time, error) {
	if withinDays != nil && *withinDays < 0 {
		return nil, time.Time{}, &ValidationError{Field: "within_days", Reason: "must not be negative"}
	}

	contracts, err := s.store.ListContracts(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}

	now := s.opts.Clock.Now()
	result := []model.ContractView{}
	for _, c := range contracts {
		if c.Status != model.StatusActive {
			continue
		}
		v := viewOf(c, now)
		if withinDays != nil {
			if v.DaysUntilExpiry < 0 || v.DaysUntilExpiry > *withinDays {
				continue
			}
		} else if !v.IsExpiringSoon {
			continue
		}
		result = append(result, v)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DaysUntilExpiry != result[j].DaysUntilExpiry {
			return result[i].DaysUntilExpiry < result[j].DaysUntilExpiry
		}
		return result[i].ID < result[j].ID
	})
	s.opts.Metrics.setExpiringSoon(len(result))
	return result, now, nil
}

// Summary wraps the feed with totals for dashboard widgets.
func (s *AlertService) Summary(ctx context.Context, withinDays *int) (*ExpirySummary, error) {
	views, now, err := s.expiring(ctx, withinDays)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	for _, v := range views {
		totals[v.Currency] += v.Value
	}
	return &ExpirySummary{
		GeneratedAt: now,
		WithinDays:  withinDays,
		Count:       len(views),
		TotalValue:  totals,
		Contracts:   views,
	}, nil
}
