package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lethabomaepa11/rocketsales-sub001/model"
)

func TestCreateRenewalOnDraftFails(t *testing.T) {
	env := newTestEnv(t)
	draft := env.createDraft(t, "Draft", 30, 90)

	_, err := env.renewals.CreateRenewal(context.Background(), manager, draft.ID, RenewalInput{})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Expected ErrInvalidState, got %v", err)
	}
}

func TestCreateRenewal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createActive(t, "Contract", 30, 90)

	r, err := env.renewals.CreateRenewal(ctx, bdm, c.ID, RenewalInput{Notes: "offer 5% uplift", RenewalOpportunityID: " opp-9 "})
	if err != nil {
		t.Fatalf("Failed to create renewal: %v", err)
	}
	if r.Status != model.RenewalPending {
		t.Errorf("Expected pending, got %s", r.Status)
	}
	if r.ContractID != c.ID {
		t.Errorf("Expected contract %s, got %s", c.ID, r.ContractID)
	}
	if r.RenewalOpportunityID != "opp-9" {
		t.Errorf("Expected trimmed opportunity id, got %q", r.RenewalOpportunityID)
	}
	if r.CreatedBy != bdm.ID {
		t.Errorf("Expected created_by %s, got %s", bdm.ID, r.CreatedBy)
	}

	_, err = env.renewals.CreateRenewal(ctx, bdm, c.ID, RenewalInput{})
	var cerr *ConflictError
	if !errors.As(err, &cerr) || !errors.Is(err, ErrConflictingRenewal) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
	if cerr.ExistingRenewalID != r.ID {
		t.Errorf("Expected conflict to point at %s, got %s", r.ID, cerr.ExistingRenewalID)
	}
}

func TestCreateRenewalDeniedForSalesRep(t *testing.T) {
	env := newTestEnv(t)
	c := env.createActive(t, "Contract", 30, 90)

	if _, err := env.renewals.CreateRenewal(context.Background(), rep, c.ID, RenewalInput{}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
}

func TestConcurrentCreateRenewal(t *testing.T) {
	env := newTestEnv(t)
	c := env.createActive(t, "Contract", 30, 90)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.renewals.CreateRenewal(context.Background(), manager, c.ID, RenewalInput{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConflictingRenewal):
				conflicts++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("Expected exactly one renewal to be created, got %d", succeeded)
	}
	if conflicts != workers-1 {
		t.Errorf("Expected %d conflicts, got %d", workers-1, conflicts)
	}

	renewals, _ := env.renewals.ListRenewals(context.Background(), c.ID)
	if len(renewals) != 1 {
		t.Errorf("Expected 1 stored renewal, got %d", len(renewals))
	}
}

func TestCompleteRenewal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createActive(t, "Contract", 30, 90)

	r, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{})
	if err != nil {
		t.Fatalf("Failed to create renewal: %v", err)
	}

	done, err := env.renewals.CompleteRenewal(ctx, bdm, r.ID)
	if err != nil {
		t.Fatalf("Failed to complete renewal: %v", err)
	}
	if done.Status != model.RenewalCompleted || done.CompletedAt == nil {
		t.Errorf("Expected completed renewal with completed_at, got %+v", done)
	}

	v, _ := env.contracts.GetContract(ctx, c.ID)
	if v.Status != model.StatusRenewed {
		t.Errorf("Expected contract renewed, got %s", v.Status)
	}
	if v.RenewedAt == nil {
		t.Error("Expected renewed_at to be set")
	}
	if v.IsExpiringSoon {
		t.Error("Expected renewed contract not to be expiring soon")
	}

	_, err = env.renewals.CompleteRenewal(ctx, bdm, r.ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState completing twice, got %v", err)
	}

	if _, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState renewing a renewed contract, got %v", err)
	}
}

func TestCompleteRenewalAfterExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createActive(t, "Contract", 2, 90)

	r, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{})
	if err != nil {
		t.Fatalf("Failed to create renewal: %v", err)
	}
	env.clock.Advance(10 * day)

	v, _ := env.contracts.GetContract(ctx, c.ID)
	if v.EffectiveStatus != model.StatusExpired {
		t.Fatalf("Expected contract to read as expired, got %s", v.EffectiveStatus)
	}

	if _, err := env.renewals.CompleteRenewal(ctx, manager, r.ID); err != nil {
		t.Fatalf("Expected late renewal to succeed, got %v", err)
	}
	v, _ = env.contracts.GetContract(ctx, c.ID)
	if v.EffectiveStatus != model.StatusRenewed {
		t.Errorf("Expected renewed, got %s", v.EffectiveStatus)
	}
}

func TestCreateRenewalOnExpiredContract(t *testing.T) {
	env := newTestEnv(t)
	c := env.createActive(t, "Contract", 1, 90)
	env.clock.Advance(5 * day)

	if _, err := env.renewals.CreateRenewal(context.Background(), manager, c.ID, RenewalInput{}); err != nil {
		t.Fatalf("Expected renewal on an expired contract to be allowed, got %v", err)
	}
}

func TestCompleteRenewalNotFound(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.renewals.CompleteRenewal(context.Background(), manager, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCompleteRenewalIsAtomicForReaders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createActive(t, "Contract", 30, 90)
	r, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{})
	if err != nil {
		t.Fatalf("Failed to create renewal: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := env.store.GetRenewal(ctx, r.ID)
			if err != nil {
				t.Errorf("Failed to read renewal: %v", err)
				return
			}
			if got.Status != model.RenewalCompleted {
				continue
			}
			parent, err := env.store.GetContract(ctx, c.ID)
			if err != nil {
				t.Errorf("Failed to read contract: %v", err)
				return
			}
			if parent.Status != model.StatusRenewed {
				t.Errorf("Observed completed renewal with contract %s", parent.Status)
			}
			return
		}
	}()

	time.Sleep(time.Millisecond)
	if _, err := env.renewals.CompleteRenewal(ctx, manager, r.ID); err != nil {
		t.Fatalf("Failed to complete renewal: %v", err)
	}
	wg.Wait()
	close(stop)
}

func TestStartAndCancelRenewal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createActive(t, "Contract", 30, 90)

	r, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{})
	if err != nil {
		t.Fatalf("Failed to create renewal: %v", err)
	}

	started, err := env.renewals.StartRenewal(ctx, bdm, r.ID)
	if err != nil {
		t.Fatalf("Failed to start renewal: %v", err)
	}
	if started.Status != model.RenewalInProgress {
		t.Errorf("Expected in_progress, got %s", started.Status)
	}
	if _, err := env.renewals.StartRenewal(ctx, bdm, r.ID); err != nil {
		t.Errorf("Expected repeated start to be a no-op, got %v", err)
	}

	if _, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{}); !errors.Is(err, ErrConflictingRenewal) {
		t.Errorf("Expected in-progress renewal to block a new one, got %v", err)
	}

	cancelled, err := env.renewals.CancelRenewal(ctx, bdm, r.ID)
	if err != nil {
		t.Fatalf("Failed to cancel renewal: %v", err)
	}
	if cancelled.Status != model.RenewalCancelled {
		t.Errorf("Expected cancelled, got %s", cancelled.Status)
	}
	if _, err := env.renewals.CancelRenewal(ctx, bdm, r.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState cancelling twice, got %v", err)
	}
	if _, err := env.renewals.StartRenewal(ctx, bdm, r.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState starting a cancelled renewal, got %v", err)
	}
	if _, err := env.renewals.CompleteRenewal(ctx, bdm, r.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState completing a cancelled renewal, got %v", err)
	}

	v, _ := env.contracts.GetContract(ctx, c.ID)
	if v.Status != model.StatusActive {
		t.Errorf("Expected contract to stay active, got %s", v.Status)
	}

	if _, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{}); err != nil {
		t.Errorf("Expected a new renewal after cancelling the open one, got %v", err)
	}
}

func TestListRenewalsOrdered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.createActive(t, "Contract", 30, 90)

	var ids []string
	for i := 0; i < 3; i++ {
		r, err := env.renewals.CreateRenewal(ctx, manager, c.ID, RenewalInput{})
		if err != nil {
			t.Fatalf("Failed to create renewal: %v", err)
		}
		ids = append(ids, r.ID)
		if _, err := env.renewals.CancelRenewal(ctx, manager, r.ID); err != nil {
			t.Fatalf("Failed to cancel renewal: %v", err)
		}
		env.clock.Advance(time.Hour)
	}

	renewals, err := env.renewals.ListRenewals(ctx, c.ID)
	if err != nil {
		t.Fatalf("Failed to list renewals: %v", err)
	}
	if len(renewals) != 3 {
		t.Fatalf("Expected 3 renewals, got %d", len(renewals))
	}
	for i, r := range renewals {
		if r.ID != ids[i] {
			t.Errorf("Expected renewal %d to be %s, got %s", i, ids[i], r.ID)
		}
	}

	if _, err := env.renewals.ListRenewals(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
