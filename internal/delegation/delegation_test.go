package delegation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"tourchain/internal/ledger"
	"tourchain/internal/ledger/memory"
	dErrors "tourchain/pkg/domain-errors"
)

type DelegationSuite struct {
	suite.Suite
	store    *MemoryStore
	resolver *Resolver
	node     *memory.Ledger
}

func TestDelegationSuite(t *testing.T) {
	suite.Run(t, new(DelegationSuite))
}

func (s *DelegationSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.node = memory.New()
	s.resolver = NewResolver(s.node, s.store)
}

func (s *DelegationSuite) TestInitiallyInactive() {
	ctx := context.Background()

	active, err := s.store.IsActive(ctx)
	s.NoError(err)
	s.False(active)

	state, err := s.store.Get(ctx)
	s.NoError(err)
	s.Empty(state.Parent)
	s.False(state.Active)
}

func (s *DelegationSuite) TestSignerUnavailableWithoutDelegation() {
	_, err := s.resolver.Signer(context.Background())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSignerUnavailable))
}

func (s *DelegationSuite) TestSetActivatesAndResolves() {
	ctx := context.Background()
	parent := ledger.Address("0xparent")

	s.Require().NoError(s.store.Set(ctx, parent))

	state, err := s.store.Get(ctx)
	s.NoError(err)
	s.Equal(State{Parent: parent, Active: true}, state)

	signer, err := s.resolver.Signer(ctx)
	s.Require().NoError(err)
	s.Equal(parent, signer.AuthorizedBy)

	accounts, _ := s.node.Accounts(ctx)
	s.Equal(accounts[0], signer.Address)
}

func (s *DelegationSuite) TestSetIsIdempotent() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "0xsame"))
	s.Require().NoError(s.store.Set(ctx, "0xsame"))

	state, err := s.store.Get(ctx)
	s.NoError(err)
	s.Equal(State{Parent: "0xsame", Active: true}, state)
}

func (s *DelegationSuite) TestLoginDisplacesPreviousParent() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, "0xalice"))
	s.Require().NoError(s.store.Set(ctx, "0xbob"))

	signer, err := s.resolver.Signer(ctx)
	s.Require().NoError(err)
	s.Equal(ledger.Address("0xbob"), signer.AuthorizedBy)
}

func (s *DelegationSuite) TestSetRejectsEmptyParent() {
	err := s.store.Set(context.Background(), "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// Concurrent swaps must never expose a half-updated state: every observed
// State is either fully one parent or fully the other.
func (s *DelegationSuite) TestConcurrentSwapAtomicity() {
	ctx := context.Background()
	parents := []ledger.Address{"0xalice", "0xbob"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.store.Set(ctx, parents[i%2])
		}(i)
		go func() {
			defer wg.Done()
			state, err := s.store.Get(ctx)
			s.NoError(err)
			if state.Active {
				s.Contains(parents, state.Parent)
			} else {
				s.Empty(state.Parent)
			}
		}()
	}
	wg.Wait()
}
