package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/lethabomaepa11/rocketsales-sub001/model"
)

// Store is the persistence collaborator for contracts and their renewals.
// Reads return copies. WithContract is the only way to mutate an existing
// contract or its renewals.
type Store interface {
	CreateContract(ctx context.Context, c *model.Contract) error
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	ListContracts(ctx context.Context) ([]*model.Contract, error)
	GetRenewal(ctx context.Context, id string) (*model.ContractRenewal, error)
	ListRenewals(ctx context.Context, contractID string) ([]*model.ContractRenewal, error)

	// WithContract runs fn while holding the contract's exclusive section and
	// commits the writes staged on tx atomically if fn returns nil.
	WithContract(ctx context.Context, id string, fn func(tx *ContractTx) error) error
}

// ContractTx is the locked view of one contract handed to WithContract callbacks.
type ContractTx struct {
	contract *model.Contract
	renewals []*model.ContractRenewal

	contractDirty bool
	deleted       bool
	staged        map[string]*model.ContractRenewal
	inserted      map[string]bool
}

func newContractTx(c *model.Contract, renewals []*model.ContractRenewal) *ContractTx {
	return &ContractTx{
		contract: c,
		renewals: renewals,
		staged:   make(map[string]*model.ContractRenewal),
		inserted: make(map[string]bool),
	}
}

// Contract is the working copy; mutate it and call SaveContract.
func (tx *ContractTx) Contract() *model.Contract { return tx.contract }

// Renewals lists the contract's renewals, including staged ones, by creation time.
func (tx *ContractTx) Renewals() []*model.ContractRenewal {
	return tx.renewals
}

// Renewal finds a renewal of this contract by id.
func (tx *ContractTx) Renewal(id string) (*model.ContractRenewal, bool) {
	for _, r := range tx.renewals {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// OpenRenewal returns the pending or in-progress renewal, if any.
func (tx *ContractTx) OpenRenewal() (*model.ContractRenewal, bool) {
	for _, r := range tx.renewals {
		if r.Status.Open() {
			return r, true
		}
	}
	return nil, false
}

func (tx *ContractTx) SaveContract() { tx.contractDirty = true }

func (tx *ContractTx) DeleteContract() { tx.deleted = true }

// AddRenewal stages a new renewal for insertion.
func (tx *ContractTx) AddRenewal(r *model.ContractRenewal) {
	r.ContractID = tx.contract.ID
	tx.renewals = append(tx.renewals, r)
	tx.staged[r.ID] = r
	tx.inserted[r.ID] = true
}

// SaveRenewal stages an update of a renewal previously returned by the tx.
func (tx *ContractTx) SaveRenewal(r *model.ContractRenewal) {
	tx.staged[r.ID] = r
}

func (tx *ContractTx) stagedRenewals() []*model.ContractRenewal {
	out := make([]*model.ContractRenewal, 0, len(tx.staged))
	for _, r := range tx.staged {
		out = append(out, r)
	}
	sortRenewals(out)
	return out
}

func sortRenewals(rs []*model.ContractRenewal) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

func sortContracts(cs []*model.Contract) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

// MemoryStore keeps contracts in process memory. Each contract has its own
// mutex for the exclusive section; mu guards the maps and makes a commit
// visible to readers all at once.
type MemoryStore struct {
	mu        sync.RWMutex
	contracts map[string]*model.Contract
	renewals  map[string]*model.ContractRenewal
	byParent  map[string][]string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		contracts: make(map[string]*model.Contract),
		renewals:  make(map[string]*model.ContractRenewal),
		byParent:  make(map[string][]string),
		locks:     make(map[string]*sync.Mutex),
	}
	slog.Info("contract store initialized", "driver", "memory")
	return s
}

func (s *MemoryStore) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *MemoryStore) CreateContract(ctx context.Context, c *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contracts[c.ID]; exists {
		return fmt.Errorf("contract %s already exists", c.ID)
	}
	s.contracts[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, notFound("contract", id)
	}
	return c.Clone(), nil
}

func (s *MemoryStore) ListContracts(ctx context.Context) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		result = append(result, c.Clone())
	}
	sortContracts(result)
	return result, nil
}

func (s *MemoryStore) GetRenewal(ctx context.Context, id string) (*model.ContractRenewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.renewals[id]
	if !ok {
		return nil, notFound("renewal", id)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) ListRenewals(ctx context.Context, contractID string) ([]*model.ContractRenewal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.contracts[contractID]; !ok {
		return nil, notFound("contract", contractID)
	}
	return s.renewalsOf(contractID), nil
}

// renewalsOf must be called with mu held.
func (s *MemoryStore) renewalsOf(contractID string) []*model.ContractRenewal {
	ids := s.byParent[contractID]
	result := make([]*model.ContractRenewal, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.renewals[id].Clone())
	}
	sortRenewals(result)
	return result
}

func (s *MemoryStore) WithContract(ctx context.Context, id string, fn func(tx *ContractTx) error) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	c, ok := s.contracts[id]
	var tx *ContractTx
	if ok {
		tx = newContractTx(c.Clone(), s.renewalsOf(id))
	}
	s.mu.RUnlock()
	if !ok {
		return notFound("contract", id)
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.deleted {
		for _, rid := range s.byParent[id] {
			delete(s.renewals, rid)
		}
		delete(s.byParent, id)
		delete(s.contracts, id)
		return nil
	}
	if tx.contractDirty {
		s.contracts[id] = tx.contract.Clone()
	}
	for _, r := range tx.stagedRenewals() {
		if tx.inserted[r.ID] {
			s.byParent[id] = append(s.byParent[id], r.ID)
		}
		s.renewals[r.ID] = r.Clone()
	}
	return nil
}

// Count returns the number of contracts in the store
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contracts)
}
