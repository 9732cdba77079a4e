package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lethabomaepa11/rocketsales-sub001/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureRecorder struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (r *captureRecorder) Record(ctx context.Context, evt LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *captureRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

var (
	manager = Principal{ID: "maria", Roles: []Role{RoleSalesManager}}
	admin   = Principal{ID: "root", Roles: []Role{RoleAdmin}}
	bdm     = Principal{ID: "ben", Roles: []Role{RoleBusinessDevelopmentManager}}
	rep     = Principal{ID: "sam", Roles: []Role{RoleSalesRep}}
)

type testEnv struct {
	store     *MemoryStore
	clock     *fakeClock
	events    *captureRecorder
	metrics   *Metrics
	contracts *ContractService
	renewals  *RenewalService
	alerts    *AlertService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   NewMemoryStore(),
		clock:   newFakeClock(),
		events:  &captureRecorder{},
		metrics: NewMetrics("test"),
	}
	opts := Options{Clock: env.clock, Events: env.events, Metrics: env.metrics}
	env.contracts = NewContractService(env.store, opts)
	env.renewals = NewRenewalService(env.store, env.contracts, opts)
	env.alerts = NewAlertService(env.store, opts)
	return env
}

func intPtr(v int) *int { return &v }

// input builds a valid contract ending endInDays after the fake clock's now.
func (env *testEnv) input(title string, endInDays int, noticeDays int) ContractInput {
	now := env.clock.Now()
	return ContractInput{
		Title:                   title,
		ClientID:                "client-1",
		Value:                   1000,
		Currency:                "usd",
		StartDate:               now.AddDate(-1, 0, 0),
		EndDate:                 now.Add(time.Duration(endInDays) * day),
		RenewalNoticePeriodDays: intPtr(noticeDays),
	}
}

func (env *testEnv) createDraft(t *testing.T, title string, endInDays, noticeDays int) *model.ContractView {
	t.Helper()
	v, err := env.contracts.CreateContract(context.Background(), manager, env.input(title, endInDays, noticeDays))
	if err != nil {
		t.Fatalf("Failed to create contract: %v", err)
	}
	return v
}

func (env *testEnv) createActive(t *testing.T, title string, endInDays, noticeDays int) *model.ContractView {
	t.Helper()
	draft := env.createDraft(t, title, endInDays, noticeDays)
	v, err := env.contracts.ActivateContract(context.Background(), manager, draft.ID)
	if err != nil {
		t.Fatalf("Failed to activate contract: %v", err)
	}
	return v
}
