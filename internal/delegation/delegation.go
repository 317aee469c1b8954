// Package delegation records which authority currently stands behind the
// operational signer. One parent serves all children: a login by authority B
// displaces authority A's delegation for every subsequent request. The store
// is injected everywhere it is read, never ambient process state, and swaps
// are atomic so no caller observes a half-updated delegation.
package delegation

import (
	"context"
	"sync"

	"tourchain/internal/ledger"
	dErrors "tourchain/pkg/domain-errors"
)

// operationalIndex selects the node account used for all signing. The
// delegated identity is an authorization record, not the signing key: signing
// always happens with this fixed account so end-user key material never
// reaches the server.
const operationalIndex = 0

// State is the process-wide delegation record. Active is true iff Parent is
// set.
type State struct {
	Parent ledger.Address
	Active bool
}

// Store mediates access to the delegation record.
type Store interface {
	Set(ctx context.Context, parent ledger.Address) error
	Get(ctx context.Context) (State, error)
	IsActive(ctx context.Context) (bool, error)
}

// MemoryStore holds the delegation for the process lifetime. Deliberately not
// persisted: a restart requires the authority to log in again.
type MemoryStore struct {
	mu    sync.RWMutex
	state State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Set(_ context.Context, parent ledger.Address) error {
	if parent == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "parent address is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Parent: parent, Active: true}
	return nil
}

func (s *MemoryStore) Get(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *MemoryStore) IsActive(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Active, nil
}

// Signer is the resolved operational account plus the authority that
// authorized its use, recorded for audit.
type Signer struct {
	Address      ledger.Address
	AuthorizedBy ledger.Address
}

// Resolver turns an active delegation into the operational signer.
type Resolver struct {
	node  ledger.Node
	store Store
}

func NewResolver(node ledger.Node, store Store) *Resolver {
	return &Resolver{node: node, store: store}
}

// Signer resolves the operational signing account. It must not succeed
// without an active delegation; this is the authorization gate for every
// state-changing operation in the system.
func (r *Resolver) Signer(ctx context.Context) (Signer, error) {
	state, err := r.store.Get(ctx)
	if err != nil {
		return Signer{}, dErrors.Wrap(err, dErrors.CodeInternal, "read delegation state")
	}
	if !state.Active {
		return Signer{}, dErrors.New(dErrors.CodeSignerUnavailable, "no parent wallet connected: authority must log in first")
	}

	accounts, err := r.node.Accounts(ctx)
	if err != nil {
		return Signer{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "list ledger accounts")
	}
	if len(accounts) <= operationalIndex {
		return Signer{}, dErrors.New(dErrors.CodeSignerUnavailable, "ledger exposes no operational account")
	}

	return Signer{
		Address:      accounts[operationalIndex],
		AuthorizedBy: state.Parent,
	}, nil
}
