// Package pending tracks unique ids awaiting a verification decision. The
// index is an optimization over the ledger feed, never authoritative: every
// consumer re-reads the record before acting on membership.
package pending

import (
	"context"
	"sort"
	"sync"

	"tourchain/internal/ledger"
	dErrors "tourchain/pkg/domain-errors"
)

type Index struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewIndex() *Index {
	return &Index{ids: make(map[string]struct{})}
}

func (i *Index) Add(id string) {
	if id == "" {
		return
	}
	i.mu.Lock()
	i.ids[id] = struct{}{}
	i.mu.Unlock()
}

func (i *Index) Remove(id string) {
	i.mu.Lock()
	delete(i.ids, id)
	i.mu.Unlock()
}

// IDs returns a sorted snapshot of tracked ids.
func (i *Index) IDs() []string {
	i.mu.RLock()
	out := make([]string, 0, len(i.ids))
	for id := range i.ids {
		out = append(out, id)
	}
	i.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ids)
}

// Rebuild repopulates the index from the full ledger feed, keeping ids whose
// records are still awaiting a decision. Used after a restart left the index
// empty while the ledger holds registrations.
func (i *Index) Rebuild(ctx context.Context, registry ledger.Registry) error {
	total, err := registry.TotalTourists(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read registry total")
	}

	fresh := make(map[string]struct{})
	for idx := 0; idx < total; idx++ {
		id, err := registry.TouristAt(ctx, idx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read registry feed")
		}
		info, err := registry.TouristInfo(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read tourist record")
		}
		if !info.Verified && info.Active {
			fresh[id] = struct{}{}
		}
	}

	i.mu.Lock()
	i.ids = fresh
	i.mu.Unlock()
	return nil
}
