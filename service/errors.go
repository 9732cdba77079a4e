package service

import (
	"errors"
	"fmt"

	"github.com/lethabomaepa11/rocketsales-sub001/model"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrInvalidState       = errors.New("invalid state")
	ErrConflictingRenewal = errors.New("conflicting renewal")
	ErrNotFound           = errors.New("not found")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StateError reports a guard violation with the status found and the one asked for.
// Kind is ErrInvalidTransition or ErrInvalidState.
type StateError struct {
	Kind      error
	Entity    string
	ID        string
	Current   string
	Requested string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s %s is %s, cannot move to %s", e.Kind, e.Entity, e.ID, e.Current, e.Requested)
}

func (e *StateError) Unwrap() error { return e.Kind }

func invalidTransition(c *model.Contract, requested model.ContractStatus) error {
	return &StateError{
		Kind:      ErrInvalidTransition,
		Entity:    "contract",
		ID:        c.ID,
		Current:   string(c.Status),
		Requested: string(requested),
	}
}

func invalidContractState(c *model.Contract, requested string) error {
	return &StateError{
		Kind:      ErrInvalidState,
		Entity:    "contract",
		ID:        c.ID,
		Current:   string(c.Status),
		Requested: requested,
	}
}

func invalidRenewalState(r *model.ContractRenewal, requested model.RenewalStatus) error {
	return &StateError{
		Kind:      ErrInvalidState,
		Entity:    "renewal",
		ID:        r.ID,
		Current:   string(r.Status),
		Requested: string(requested),
	}
}

// ConflictError points the caller at the renewal that is already open.
type ConflictError struct {
	ContractID        string
	ExistingRenewalID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting renewal: contract %s already has open renewal %s", e.ContractID, e.ExistingRenewalID)
}

func (e *ConflictError) Unwrap() error { return ErrConflictingRenewal }

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}
