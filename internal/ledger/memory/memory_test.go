package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tourchain/internal/ledger"
)

type LedgerSuite struct {
	suite.Suite
	ledger *Ledger
	admin  ledger.Address
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ledger = New()
	accounts, err := s.ledger.Accounts(context.Background())
	s.Require().NoError(err)
	s.Require().Len(accounts, 10)
	s.admin = accounts[0]
}

func (s *LedgerSuite) submit(call ledger.Call) (*ledger.Receipt, error) {
	ctx := context.Background()
	gas, err := s.ledger.EstimateGas(ctx, s.admin, call)
	if err != nil {
		return nil, err
	}
	price, err := s.ledger.GasPrice(ctx)
	s.Require().NoError(err)
	return s.ledger.SendTransaction(ctx, s.admin, call, gas, price)
}

func (s *LedgerSuite) TestDeployerIsGenesisAuthority() {
	ok, err := s.ledger.IsAuthority(context.Background(), s.admin)
	s.NoError(err)
	s.True(ok)
}

func (s *LedgerSuite) TestAddAuthority() {
	ctx := context.Background()
	newcomer := ledger.Address("0xfeedface")

	ok, err := s.ledger.IsAuthority(ctx, newcomer)
	s.NoError(err)
	s.False(ok)

	receipt, err := s.submit(ledger.AddAuthority(newcomer))
	s.Require().NoError(err)
	s.NotEmpty(receipt.TxHash)
	s.NotZero(receipt.BlockNumber)

	ok, err = s.ledger.IsAuthority(ctx, newcomer)
	s.NoError(err)
	s.True(ok)
}

func (s *LedgerSuite) TestAddAuthorityRequiresAuthorityCaller() {
	ctx := context.Background()
	accounts, _ := s.ledger.Accounts(ctx)
	outsider := accounts[3]

	_, err := s.ledger.EstimateGas(ctx, outsider, ledger.AddAuthority("0xbeef"))
	s.ErrorContains(err, "not an authority")
}

func (s *LedgerSuite) TestRegisterAndReadBack() {
	receipt, err := s.submit(ledger.RegisterTourist("ABCDEFGHij", "A", "B", "enc-ref", s.admin))
	s.Require().NoError(err)
	s.NotEmpty(receipt.TxHash)

	info, err := s.ledger.TouristInfo(context.Background(), "ABCDEFGHij")
	s.Require().NoError(err)
	s.Equal("A", info.Name)
	s.Equal("B", info.Nationality)
	s.True(info.Active)
	s.False(info.Verified)
	s.NotZero(info.RegisteredAt)

	total, err := s.ledger.TotalTourists(context.Background())
	s.NoError(err)
	s.Equal(1, total)

	id, err := s.ledger.TouristAt(context.Background(), 0)
	s.NoError(err)
	s.Equal("ABCDEFGHij", id)
}

func (s *LedgerSuite) TestDuplicateRegistrationReverts() {
	_, err := s.submit(ledger.RegisterTourist("DUPLICATE0", "A", "B", "enc", s.admin))
	s.Require().NoError(err)

	_, err = s.submit(ledger.RegisterTourist("DUPLICATE0", "A", "B", "enc", s.admin))
	s.ErrorContains(err, "already registered")
}

func (s *LedgerSuite) TestVerifyLifecycle() {
	_, err := s.submit(ledger.RegisterTourist("LIFECYCLE0", "A", "B", "enc", s.admin))
	s.Require().NoError(err)

	_, err = s.submit(ledger.VerifyTourist("LIFECYCLE0", "QR_LIFECYCL", 30))
	s.Require().NoError(err)

	info, err := s.ledger.TouristInfo(context.Background(), "LIFECYCLE0")
	s.Require().NoError(err)
	s.True(info.Verified)
	s.Equal("QR_LIFECYCL", info.CredentialRef)
	s.Equal(info.VerifiedAt+30*86_400, info.ExpiresAt)

	// Re-verification reverts at the contract, not just in the service.
	_, err = s.submit(ledger.VerifyTourist("LIFECYCLE0", "QR_AGAIN", 30))
	s.ErrorContains(err, "already verified")
}

func (s *LedgerSuite) TestRejectIsTerminal() {
	_, err := s.submit(ledger.RegisterTourist("REJECTED00", "A", "B", "enc", s.admin))
	s.Require().NoError(err)

	_, err = s.submit(ledger.RejectTourist("REJECTED00"))
	s.Require().NoError(err)

	info, err := s.ledger.TouristInfo(context.Background(), "REJECTED00")
	s.Require().NoError(err)
	s.False(info.Active)

	// No resurrection: a rejected record cannot be verified.
	_, err = s.submit(ledger.VerifyTourist("REJECTED00", "QR_REJECTED", 30))
	s.ErrorContains(err, "not active")

	_, err = s.submit(ledger.RejectTourist("REJECTED00"))
	s.ErrorContains(err, "already rejected")
}

func (s *LedgerSuite) TestUploadDocument() {
	_, err := s.submit(ledger.RegisterTourist("WITHDOCS00", "A", "B", "enc", s.admin))
	s.Require().NoError(err)

	_, err = s.submit(ledger.UploadDocument("WITHDOCS00", "passport", "Qm123"))
	s.Require().NoError(err)

	docs, err := s.ledger.TouristDocuments(context.Background(), "WITHDOCS00")
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal("passport", docs[0].Type)
	s.Equal("Qm123", docs[0].StorageRef)

	_, err = s.submit(ledger.UploadDocument("NOSUCHID00", "passport", "Qm123"))
	s.ErrorContains(err, "not found")
}

func (s *LedgerSuite) TestOutOfGas() {
	ctx := context.Background()
	call := ledger.RegisterTourist("LOWGAS0000", "A", "B", "enc", s.admin)
	_, err := s.ledger.SendTransaction(ctx, s.admin, call, 100, gasPriceWei)
	s.ErrorContains(err, "out of gas")
}

func (s *LedgerSuite) TestClockOverride() {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	led := New(WithClock(func() time.Time { return fixed }))
	accounts, _ := led.Accounts(context.Background())

	gas, err := led.EstimateGas(context.Background(), accounts[0], ledger.RegisterTourist("CLOCKED000", "A", "B", "enc", accounts[0]))
	s.Require().NoError(err)
	_, err = led.SendTransaction(context.Background(), accounts[0], ledger.RegisterTourist("CLOCKED000", "A", "B", "enc", accounts[0]), gas, gasPriceWei)
	s.Require().NoError(err)

	info, err := led.TouristInfo(context.Background(), "CLOCKED000")
	s.Require().NoError(err)
	s.Equal(fixed.Unix(), info.RegisteredAt)
}
