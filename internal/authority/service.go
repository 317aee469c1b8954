// Package authority implements the login gate that turns a passphrase-bearing
// wallet address into the process-wide parent delegation. Escalation of an
// unrecognized address into a ledger authority is self-service by design:
// the bootstrap account adds the address, then the flag is re-read to
// confirm.
package authority

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"tourchain/internal/audit"
	"tourchain/internal/authority/device"
	"tourchain/internal/authority/guard"
	"tourchain/internal/authority/metrics"
	"tourchain/internal/delegation"
	"tourchain/internal/ledger"
	"tourchain/internal/ledger/relay"
	"tourchain/internal/platform/token"
	dErrors "tourchain/pkg/domain-errors"
)

type LoginRequest struct {
	Address    ledger.Address
	Passphrase string
	Origin     string
	UserAgent  string
}

type LoginResult struct {
	Address   ledger.Address
	Role      string
	Token     string
	ExpiresIn time.Duration
}

type StatusResult struct {
	IsConnected   bool
	ParentAddress ledger.Address
}

// DeniedError carries the attempt budget alongside the domain error so the
// transport can report remaining attempts on a 401.
type DeniedError struct {
	Err       error
	Remaining int
	Banned    bool
}

func (e *DeniedError) Error() string { return e.Err.Error() }
func (e *DeniedError) Unwrap() error { return e.Err }

type Service struct {
	guard      *guard.Service
	verifier   PassphraseVerifier
	registry   ledger.Registry
	node       ledger.Node
	relay      *relay.Relay
	delegation delegation.Store
	tokens     *token.Service

	tokenTTL time.Duration
	logger   *slog.Logger
	auditor  audit.Publisher
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.tokenTTL = ttl
	}
}

func New(
	g *guard.Service,
	verifier PassphraseVerifier,
	registry ledger.Registry,
	node ledger.Node,
	r *relay.Relay,
	store delegation.Store,
	tokens *token.Service,
	opts ...Option,
) (*Service, error) {
	if g == nil || verifier == nil || registry == nil || node == nil || r == nil || store == nil || tokens == nil {
		return nil, errors.New("authority service: all dependencies are required")
	}
	s := &Service{
		guard:      g,
		verifier:   verifier,
		registry:   registry,
		node:       node,
		relay:      r,
		delegation: store,
		tokens:     tokens,
		tokenTTL:   24 * time.Hour,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login validates the authority and installs it as the parent delegation.
// The delegation swap is process-global: a successful login displaces any
// previously delegated authority for all in-flight and subsequent requests.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	if err := s.guard.Check(ctx, req.Origin); err != nil {
		s.audit(ctx, audit.ActionAuthFailure, req, map[string]string{"reason": "banned"})
		return LoginResult{}, err
	}

	if req.Address == "" {
		return LoginResult{}, dErrors.New(dErrors.CodeInvalidInput, "wallet address is required")
	}
	if req.Passphrase == "" {
		return LoginResult{}, dErrors.New(dErrors.CodeInvalidInput, "passphrase is required")
	}

	if err := s.verifier.Verify(req.Passphrase); err != nil {
		return LoginResult{}, s.deny(ctx, req, "invalid_passphrase",
			dErrors.New(dErrors.CodeUnauthorized, "invalid passphrase, access denied"))
	}

	isAuthority, err := s.registry.IsAuthority(ctx, req.Address)
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "query authority flag")
	}

	if !isAuthority {
		if err := s.escalate(ctx, req.Address); err != nil {
			return LoginResult{}, s.deny(ctx, req, "auto_escalation_failed",
				dErrors.Wrap(err, dErrors.CodeEscalationFailed, "not authorized and auto-add failed"))
		}
		s.audit(ctx, audit.ActionAuthorityAutoAdded, req, nil)
		if s.metrics != nil {
			s.metrics.IncrementAutoEscalations()
		}
	}

	if err := s.delegation.Set(ctx, req.Address); err != nil {
		return LoginResult{}, err
	}

	if err := s.guard.Reset(ctx, req.Origin); err != nil {
		// Not worth failing the login over; the budget resets on next success.
		s.logger.WarnContext(ctx, "guard reset failed", "error", err)
	}

	signed, err := s.tokens.Generate(string(req.Address), token.RoleAuthority, s.tokenTTL)
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "issue token")
	}

	s.audit(ctx, audit.ActionAuthSuccess, req, map[string]string{"parent_wallet_set": "true"})
	if s.metrics != nil {
		s.metrics.IncrementLoginSuccesses()
	}
	s.logger.InfoContext(ctx, "authority logged in",
		"address", req.Address,
		"device", device.ParseUserAgent(req.UserAgent),
	)

	return LoginResult{
		Address:   req.Address,
		Role:      token.RoleAuthority,
		Token:     signed,
		ExpiresIn: s.tokenTTL,
	}, nil
}

// escalate grants the authority flag to an address using the ledger's
// bootstrap account, then confirms the flag actually flipped. Kept separate
// from Login so the privilege-granting boundary is testable on its own.
func (s *Service) escalate(ctx context.Context, addr ledger.Address) error {
	accounts, err := s.node.Accounts(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeLedgerFailed, "list ledger accounts")
	}
	if len(accounts) == 0 {
		return dErrors.New(dErrors.CodeLedgerFailed, "ledger exposes no bootstrap account")
	}
	admin := accounts[0]

	if _, err := s.relay.RelayFrom(ctx, admin, ledger.AddAuthority(addr)); err != nil {
		return err
	}

	confirmed, err := s.registry.IsAuthority(ctx, addr)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeLedgerFailed, "confirm authority flag")
	}
	if !confirmed {
		return dErrors.New(dErrors.CodeLedgerFailed, "authority flag still unset after addAuthority")
	}
	return nil
}

// deny records the failed attempt and wraps the cause with the remaining
// budget for the transport layer.
func (s *Service) deny(ctx context.Context, req LoginRequest, reason string, cause error) error {
	res, err := s.guard.RecordFailure(ctx, req.Origin)
	if err != nil {
		s.logger.ErrorContext(ctx, "recording auth failure failed", "error", err)
		res = &guard.Result{}
	}

	s.audit(ctx, audit.ActionAuthFailure, req, map[string]string{
		"reason":    reason,
		"remaining": strconv.Itoa(res.Remaining),
	})
	if s.metrics != nil {
		s.metrics.IncrementLoginFailures()
	}

	return &DeniedError{Err: cause, Remaining: res.Remaining, Banned: res.Banned}
}

// Status reports the current parent-wallet delegation.
func (s *Service) Status(ctx context.Context) (StatusResult, error) {
	state, err := s.delegation.Get(ctx)
	if err != nil {
		return StatusResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "read delegation state")
	}
	return StatusResult{IsConnected: state.Active, ParentAddress: state.Parent}, nil
}

// CheckAuthority re-queries the ledger flag for an address.
func (s *Service) CheckAuthority(ctx context.Context, addr ledger.Address) (bool, error) {
	if addr == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	isAuthority, err := s.registry.IsAuthority(ctx, addr)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "query authority flag")
	}
	return isAuthority, nil
}

func (s *Service) audit(ctx context.Context, action audit.Action, req LoginRequest, detail map[string]string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action: action,
		Actor:  string(req.Address),
		Origin: audit.AnonymizeIP(req.Origin),
		Device: device.ParseUserAgent(req.UserAgent),
		Detail: detail,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
