package pending

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourchain/internal/ledger"
	"tourchain/internal/ledger/memory"
)

func TestIndex(t *testing.T) {
	t.Run("add remove len", func(t *testing.T) {
		idx := NewIndex()
		idx.Add("aaa")
		idx.Add("bbb")
		idx.Add("aaa")
		assert.Equal(t, 2, idx.Len())
		assert.Equal(t, []string{"aaa", "bbb"}, idx.IDs())

		idx.Remove("aaa")
		assert.Equal(t, []string{"bbb"}, idx.IDs())

		idx.Remove("missing")
		assert.Equal(t, 1, idx.Len())
	})

	t.Run("empty id is ignored", func(t *testing.T) {
		idx := NewIndex()
		idx.Add("")
		assert.Zero(t, idx.Len())
	})

	t.Run("concurrent use", func(t *testing.T) {
		idx := NewIndex()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				id := fmt.Sprintf("id-%03d", n)
				idx.Add(id)
				idx.IDs()
				if n%2 == 0 {
					idx.Remove(id)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 25, idx.Len())
	})
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	led := memory.New()
	accounts, err := led.Accounts(ctx)
	require.NoError(t, err)
	signer := accounts[0]

	send := func(call ledger.Call) {
		t.Helper()
		_, err := led.SendTransaction(ctx, signer, call, 1_000_000, 1)
		require.NoError(t, err)
	}

	send(ledger.RegisterTourist("pending0001", "A", "X", "enc", signer))
	send(ledger.RegisterTourist("approved002", "B", "X", "enc", signer))
	send(ledger.RegisterTourist("rejected003", "C", "X", "enc", signer))
	send(ledger.VerifyTourist("approved002", "QR_approved", 30))
	send(ledger.RejectTourist("rejected003"))

	idx := NewIndex()
	idx.Add("stale-entry")

	require.NoError(t, idx.Rebuild(ctx, led))
	assert.Equal(t, []string{"pending0001"}, idx.IDs())
}
