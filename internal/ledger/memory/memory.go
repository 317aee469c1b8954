// Package memory simulates the ledger node and the tourist registry contract
// in-process. It stands in for the external chain during development and in
// tests, and enforces the same state-transition rules the deployed contract
// does (duplicate registration, re-verification and re-rejection all revert).
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"tourchain/internal/ledger"
)

const (
	accountCount = 10
	baseGas      = 21_000
	gasPriceWei  = 20_000_000_000
)

type touristState struct {
	info ledger.TouristInfo
	docs []ledger.DocumentInfo
}

// Ledger implements ledger.Node and ledger.Registry over in-memory state.
type Ledger struct {
	mu          sync.RWMutex
	accounts    []ledger.Address
	authorities map[ledger.Address]bool
	tourists    map[string]*touristState
	order       []string
	blockNumber uint64
	nonce       uint64
	now         func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the block timestamp source. Tests use it to move time
// past credential expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		authorities: make(map[ledger.Address]bool),
		tourists:    make(map[string]*touristState),
		now:         time.Now,
	}
	for i := 0; i < accountCount; i++ {
		sum := sha256.Sum256([]byte(fmt.Sprintf("tourchain-account-%d", i)))
		l.accounts = append(l.accounts, ledger.Address("0x"+hex.EncodeToString(sum[:20])))
	}
	for _, opt := range opts {
		opt(l)
	}
	// The deployer account is an authority from genesis, as the contract's
	// constructor sets it.
	l.authorities[l.accounts[0]] = true
	return l
}

func (l *Ledger) Accounts(_ context.Context) ([]ledger.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ledger.Address, len(l.accounts))
	copy(out, l.accounts)
	return out, nil
}

func (l *Ledger) GasPrice(_ context.Context) (uint64, error) {
	return gasPriceWei, nil
}

// EstimateGas dry-runs the call. Like a real node, estimation fails when the
// call would revert.
func (l *Ledger) EstimateGas(_ context.Context, from ledger.Address, call ledger.Call) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.precheck(from, call); err != nil {
		return 0, err
	}
	return baseGas + uint64(len(call.Method))*1_000, nil
}

func (l *Ledger) SendTransaction(_ context.Context, from ledger.Address, call ledger.Call, gasLimit, gasPrice uint64) (*ledger.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.precheck(from, call); err != nil {
		return nil, err
	}
	needed := baseGas + uint64(len(call.Method))*1_000
	if gasLimit < needed {
		return nil, fmt.Errorf("out of gas: limit %d below required %d", gasLimit, needed)
	}
	if gasPrice == 0 {
		return nil, fmt.Errorf("gas price must be positive")
	}

	if err := l.apply(call); err != nil {
		return nil, err
	}

	l.blockNumber++
	l.nonce++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%v|%d", call.Method, call.Args, l.nonce)))
	return &ledger.Receipt{
		TxHash:      "0x" + hex.EncodeToString(sum[:]),
		BlockNumber: l.blockNumber,
		GasUsed:     needed,
	}, nil
}

// precheck mirrors the contract's require() guards. Callers hold l.mu.
func (l *Ledger) precheck(from ledger.Address, call ledger.Call) error {
	if from == "" {
		return fmt.Errorf("unknown sender")
	}
	switch call.Method {
	case ledger.MethodAddAuthority:
		if !l.authorities[from] {
			return fmt.Errorf("revert: caller is not an authority")
		}
	case ledger.MethodRegisterTourist:
		id := call.Args[0].(string)
		if _, exists := l.tourists[id]; exists {
			return fmt.Errorf("revert: tourist already registered")
		}
	case ledger.MethodUploadDocument:
		id := call.Args[0].(string)
		if _, exists := l.tourists[id]; !exists {
			return fmt.Errorf("revert: tourist not found")
		}
	case ledger.MethodVerifyTourist:
		id := call.Args[0].(string)
		t, exists := l.tourists[id]
		if !exists {
			return fmt.Errorf("revert: tourist not found")
		}
		if t.info.Verified {
			return fmt.Errorf("revert: tourist already verified")
		}
		if !t.info.Active {
			return fmt.Errorf("revert: tourist is not active")
		}
	case ledger.MethodRejectTourist:
		id := call.Args[0].(string)
		t, exists := l.tourists[id]
		if !exists {
			return fmt.Errorf("revert: tourist not found")
		}
		if t.info.Verified {
			return fmt.Errorf("revert: tourist already verified")
		}
		if !t.info.Active {
			return fmt.Errorf("revert: tourist already rejected")
		}
	default:
		return fmt.Errorf("unknown method %q", call.Method)
	}
	return nil
}

// apply commits state. Callers hold l.mu and have passed precheck.
func (l *Ledger) apply(call ledger.Call) error {
	now := l.now().Unix()
	switch call.Method {
	case ledger.MethodAddAuthority:
		l.authorities[call.Args[0].(ledger.Address)] = true
	case ledger.MethodRegisterTourist:
		id := call.Args[0].(string)
		l.tourists[id] = &touristState{info: ledger.TouristInfo{
			Name:             call.Args[1].(string),
			Nationality:      call.Args[2].(string),
			EncryptedDataRef: call.Args[3].(string),
			RegisteredAt:     now,
			Active:           true,
		}}
		l.order = append(l.order, id)
	case ledger.MethodUploadDocument:
		id := call.Args[0].(string)
		l.tourists[id].docs = append(l.tourists[id].docs, ledger.DocumentInfo{
			Type:       call.Args[1].(string),
			StorageRef: call.Args[2].(string),
			UploadedAt: now,
		})
	case ledger.MethodVerifyTourist:
		id := call.Args[0].(string)
		days := call.Args[2].(int)
		t := l.tourists[id]
		t.info.CredentialRef = call.Args[1].(string)
		t.info.Verified = true
		t.info.VerifiedAt = now
		t.info.ExpiresAt = now + int64(days)*86_400
	case ledger.MethodRejectTourist:
		l.tourists[call.Args[0].(string)].info.Active = false
	}
	return nil
}

func (l *Ledger) IsAuthority(_ context.Context, addr ledger.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.authorities[addr], nil
}

func (l *Ledger) TouristInfo(_ context.Context, uniqueID string) (ledger.TouristInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, exists := l.tourists[uniqueID]
	if !exists {
		return ledger.TouristInfo{}, fmt.Errorf("revert: tourist not found")
	}
	return t.info, nil
}

func (l *Ledger) TouristDocuments(_ context.Context, uniqueID string) ([]ledger.DocumentInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, exists := l.tourists[uniqueID]
	if !exists {
		return nil, fmt.Errorf("revert: tourist not found")
	}
	out := make([]ledger.DocumentInfo, len(t.docs))
	copy(out, t.docs)
	return out, nil
}

func (l *Ledger) TotalTourists(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order), nil
}

func (l *Ledger) TouristAt(_ context.Context, index int) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.order) {
		return "", fmt.Errorf("revert: index out of bounds")
	}
	return l.order[index], nil
}
