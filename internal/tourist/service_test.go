package tourist

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourchain/internal/credential"
	"tourchain/internal/crypto/pii"
	"tourchain/internal/delegation"
	"tourchain/internal/ledger"
	"tourchain/internal/ledger/memory"
	"tourchain/internal/ledger/relay"
	"tourchain/internal/tourist/pending"
	dErrors "tourchain/pkg/domain-errors"
	"tourchain/pkg/platform/middleware/requesttime"
)

const testPIIKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type trackerSpy struct {
	mu  sync.Mutex
	ids []string
}

func (t *trackerSpy) Track(id string) {
	t.mu.Lock()
	t.ids = append(t.ids, id)
	t.mu.Unlock()
}

type touristFixture struct {
	service   *Service
	ledger    *memory.Ledger
	index     *pending.Index
	encryptor *pii.Encryptor
	tracker   *trackerSpy
	baseTime  time.Time
	ctx       context.Context
}

func newTouristFixture(t *testing.T) *touristFixture {
	t.Helper()

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	led := memory.New(memory.WithClock(func() time.Time { return base }))
	store := delegation.NewMemoryStore()
	resolver := delegation.NewResolver(led, store)
	r := relay.New(led, resolver)
	index := pending.NewIndex()
	codec := credential.NewCodec("Tourism Authority", "IN", "https://verify.example.org/api/verify")
	enc, err := pii.NewEncryptor(testPIIKey)
	require.NoError(t, err)

	tracker := &trackerSpy{}
	svc, err := New(led, r, resolver, index, codec, enc,
		WithExpiryTracker(tracker),
	)
	require.NoError(t, err)

	ctx := requesttime.WithTime(context.Background(), base)
	accounts, err := led.Accounts(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, accounts[0]))

	return &touristFixture{
		service:   svc,
		ledger:    led,
		index:     index,
		encryptor: enc,
		tracker:   tracker,
		baseTime:  base,
		ctx:       ctx,
	}
}

func (f *touristFixture) register(t *testing.T) RegisterResult {
	t.Helper()
	result, err := f.service.Register(f.ctx, RegisterRequest{
		Name:           "Asha Verma",
		Nationality:    "Indian",
		Email:          "asha@example.org",
		Phone:          "+91-555-0100",
		PassportNumber: "X1234567",
	})
	require.NoError(t, err)
	return result
}

func TestRegister(t *testing.T) {
	t.Run("requires name and nationality", func(t *testing.T) {
		f := newTouristFixture(t)

		_, err := f.service.Register(f.ctx, RegisterRequest{Nationality: "Indian"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = f.service.Register(f.ctx, RegisterRequest{Name: "Asha"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("fails when no delegation is active", func(t *testing.T) {
		f := newTouristFixture(t)
		// Fresh fixture but with the delegation torn down.
		led := memory.New()
		store := delegation.NewMemoryStore()
		resolver := delegation.NewResolver(led, store)
		r := relay.New(led, resolver)
		enc, err := pii.NewEncryptor(testPIIKey)
		require.NoError(t, err)
		svc, err := New(led, r, resolver, pending.NewIndex(),
			credential.NewCodec("Tourism Authority", "IN", "https://verify.example.org"), enc)
		require.NoError(t, err)

		_, err = svc.Register(f.ctx, RegisterRequest{Name: "Asha", Nationality: "Indian"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable))
	})

	t.Run("writes the record with encrypted pii", func(t *testing.T) {
		f := newTouristFixture(t)
		result := f.register(t)

		assert.Len(t, result.UniqueID, 10)
		assert.NotEmpty(t, result.TxHash)
		assert.NotEmpty(t, result.WalletAddress)

		info, err := f.ledger.TouristInfo(f.ctx, result.UniqueID)
		require.NoError(t, err)
		assert.Equal(t, "Asha Verma", info.Name)
		assert.NotContains(t, info.EncryptedDataRef, "X1234567")

		opened, err := f.encryptor.Decrypt(info.EncryptedDataRef)
		require.NoError(t, err)
		var envelope map[string]string
		require.NoError(t, json.Unmarshal(opened, &envelope))
		assert.Equal(t, "X1234567", envelope["passportNumber"])
	})

	t.Run("new registration appears in the pending list", func(t *testing.T) {
		f := newTouristFixture(t)
		result := f.register(t)

		list, err := f.service.ListPending(f.ctx)
		require.NoError(t, err)
		require.Len(t, list.Tourists, 1)
		assert.Equal(t, result.UniqueID, list.Tourists[0].UniqueID)
		assert.Equal(t, 1, list.Total)
		assert.Equal(t, StatusActive, list.Tourists[0].Status)
	})
}

func TestUploadDocument(t *testing.T) {
	f := newTouristFixture(t)
	result := f.register(t)

	t.Run("stores content and anchors the reference", func(t *testing.T) {
		upload, err := f.service.UploadDocument(f.ctx, result.UniqueID, "passport", []byte("scanned-passport-bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(upload.StorageRef, "store://"))
		assert.NotEmpty(t, upload.TxHash)

		docs, err := f.service.Documents(f.ctx, result.UniqueID)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "passport", docs[0].Type)
		assert.Equal(t, upload.StorageRef, docs[0].StorageRef)
	})

	t.Run("unknown tourist fails not_found", func(t *testing.T) {
		_, err := f.service.UploadDocument(f.ctx, "nosuchid99", "passport", []byte("x"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("empty content is invalid", func(t *testing.T) {
		_, err := f.service.UploadDocument(f.ctx, result.UniqueID, "passport", nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestDecide(t *testing.T) {
	t.Run("approval mints a credential and schedules expiry", func(t *testing.T) {
		f := newTouristFixture(t)
		reg := f.register(t)

		decision, err := f.service.Decide(f.ctx, DecideRequest{
			UniqueID:     reg.UniqueID,
			Approved:     true,
			ValidityDays: 30,
		})
		require.NoError(t, err)
		assert.True(t, decision.Approved)
		assert.NotEmpty(t, decision.TxHash)
		assert.True(t, strings.HasPrefix(decision.QRCode, "data:image/png;base64,"))
		assert.Equal(t, 30, decision.ValidityDays)
		assert.Equal(t, f.baseTime.Add(30*24*time.Hour), decision.ExpirationDate)
		assert.Equal(t, []string{reg.UniqueID}, f.tracker.ids)

		record, err := f.service.Info(f.ctx, reg.UniqueID)
		require.NoError(t, err)
		assert.True(t, record.Verified)
		assert.Equal(t, "QR_"+reg.UniqueID[:8], record.CredentialRef)
		assert.Equal(t, StatusActive, record.Status)

		list, err := f.service.ListPending(f.ctx)
		require.NoError(t, err)
		assert.Empty(t, list.Tourists)
	})

	t.Run("validity days are bounded", func(t *testing.T) {
		f := newTouristFixture(t)
		reg := f.register(t)

		for _, days := range []int{0, -1, 3651} {
			_, err := f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: true, ValidityDays: days})
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "days=%d", days)
		}
	})

	t.Run("rejection deactivates the record", func(t *testing.T) {
		f := newTouristFixture(t)
		reg := f.register(t)

		decision, err := f.service.Decide(f.ctx, DecideRequest{
			UniqueID:        reg.UniqueID,
			Approved:        false,
			RejectionReason: "document mismatch",
		})
		require.NoError(t, err)
		assert.False(t, decision.Approved)
		assert.NotEmpty(t, decision.TxHash)

		record, err := f.service.Info(f.ctx, reg.UniqueID)
		require.NoError(t, err)
		assert.False(t, record.Active)
		assert.Equal(t, StatusInactive, record.Status)
	})

	t.Run("second decision fails already_decided", func(t *testing.T) {
		f := newTouristFixture(t)
		reg := f.register(t)

		_, err := f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: false})
		require.NoError(t, err)

		_, err = f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: true, ValidityDays: 30})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))

		_, err = f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: false})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
	})

	t.Run("decision on an approved record fails already_decided", func(t *testing.T) {
		f := newTouristFixture(t)
		reg := f.register(t)

		_, err := f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: true, ValidityDays: 10})
		require.NoError(t, err)

		_, err = f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: false})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
	})

	t.Run("unknown id fails not_found", func(t *testing.T) {
		f := newTouristFixture(t)
		_, err := f.service.Decide(f.ctx, DecideRequest{UniqueID: "nosuchid99", Approved: true, ValidityDays: 30})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestVerifyByCredential(t *testing.T) {
	f := newTouristFixture(t)
	reg := f.register(t)
	_, err := f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: true, ValidityDays: 30})
	require.NoError(t, err)
	credRef := "QR_" + reg.UniqueID[:8]

	t.Run("resolves by credential reference", func(t *testing.T) {
		result, err := f.service.VerifyByCredential(f.ctx, credRef)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, result.Status)
		assert.Equal(t, reg.UniqueID, result.Tourist.UniqueID)
	})

	t.Run("resolves by unique id", func(t *testing.T) {
		result, err := f.service.VerifyByCredential(f.ctx, reg.UniqueID)
		require.NoError(t, err)
		assert.Equal(t, reg.UniqueID, result.Tourist.UniqueID)
	})

	t.Run("unknown credential fails not_found", func(t *testing.T) {
		_, err := f.service.VerifyByCredential(f.ctx, "QR_deadbeef")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestQRCodeAndCard(t *testing.T) {
	f := newTouristFixture(t)
	reg := f.register(t)

	t.Run("unverified record has no credential to render", func(t *testing.T) {
		_, err := f.service.QRCode(f.ctx, reg.UniqueID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	_, err := f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: true, ValidityDays: 30})
	require.NoError(t, err)

	t.Run("verified record re-mints its qr code", func(t *testing.T) {
		url, err := f.service.QRCode(f.ctx, reg.UniqueID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	})

	t.Run("card rendering requires a configured renderer", func(t *testing.T) {
		_, err := f.service.Card(f.ctx, reg.UniqueID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestLifecycleExpiry(t *testing.T) {
	f := newTouristFixture(t)
	reg := f.register(t)
	assert.Len(t, reg.UniqueID, 10)

	_, err := f.service.Decide(f.ctx, DecideRequest{UniqueID: reg.UniqueID, Approved: true, ValidityDays: 30})
	require.NoError(t, err)

	record, err := f.service.Info(f.ctx, reg.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, f.baseTime.Add(30*24*time.Hour).Unix(), record.ExpiresAt)
	assert.Equal(t, StatusActive, record.Status)

	// 31 days later the same ledger record reads as expired.
	future := requesttime.WithTime(context.Background(), f.baseTime.Add(31*24*time.Hour))
	record, err = f.service.Info(future, reg.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, record.Status)

	result, err := f.service.VerifyByCredential(future, reg.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, result.Status)
}

func TestListPendingRebuild(t *testing.T) {
	f := newTouristFixture(t)
	reg := f.register(t)

	// Simulate a restart: a cold index next to a populated ledger.
	cold := pending.NewIndex()
	enc, err := pii.NewEncryptor(testPIIKey)
	require.NoError(t, err)
	store := delegation.NewMemoryStore()
	resolver := delegation.NewResolver(f.ledger, store)
	svc, err := New(f.ledger, relay.New(f.ledger, resolver), resolver, cold,
		credential.NewCodec("Tourism Authority", "IN", "https://verify.example.org"), enc)
	require.NoError(t, err)

	list, err := svc.ListPending(f.ctx)
	require.NoError(t, err)
	require.Len(t, list.Tourists, 1)
	assert.Equal(t, reg.UniqueID, list.Tourists[0].UniqueID)
}

func TestNewUniqueID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := newUniqueID(10)
		require.NoError(t, err)
		require.Len(t, id, 10)
		for _, r := range id {
			assert.Contains(t, idAlphabet, string(r))
		}
		seen[id] = true
	}
	assert.Len(t, seen, 200, "ids should not collide at this sample size")
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		info ledger.TouristInfo
		want Status
	}{
		{"active unverified", ledger.TouristInfo{Active: true}, StatusActive},
		{"rejected", ledger.TouristInfo{Active: false}, StatusInactive},
		{"verified unexpired", ledger.TouristInfo{Active: true, Verified: true, ExpiresAt: now.Add(time.Hour).Unix()}, StatusActive},
		{"expired wins over active", ledger.TouristInfo{Active: true, Verified: true, ExpiresAt: now.Add(-time.Hour).Unix()}, StatusExpired},
		{"expired wins over inactive", ledger.TouristInfo{Active: false, ExpiresAt: now.Add(-time.Hour).Unix()}, StatusExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.info, now))
		})
	}
}
