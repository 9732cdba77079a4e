package service

import (
	"context"
	"time"

	"github.com/lethabomaepa11/rocketsales-sub001/pkg/logger"
)

// LifecycleEvent describes one committed command.
type LifecycleEvent struct {
	ContractID string    `json:"contract_id"`
	RenewalID  string    `json:"renewal_id,omitempty"`
	Action     string    `json:"action"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

// EventRecorder receives lifecycle events after their command has committed.
type EventRecorder interface {
	Record(ctx context.Context, evt LifecycleEvent) error
}

// LogRecorder writes events to the structured log.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, evt LifecycleEvent) error {
	logger.Info(ctx, "contract lifecycle event",
		"contract_id", evt.ContractID,
		"renewal_id", evt.RenewalID,
		"action", evt.Action,
		"from", evt.From,
		"to", evt.To,
		"actor", evt.Actor,
	)
	return nil
}

// Recorders fans an event out to every recorder, returning the first error.
type Recorders []EventRecorder

func (rs Recorders) Record(ctx context.Context, evt LifecycleEvent) error {
	var first error
	for _, r := range rs {
		if err := r.Record(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
