// Package relay turns an unsigned ledger intent into a submitted, confirmed
// transaction. Estimation runs concurrently; submission is serialized because
// concurrent sends from one signing account collide on the account's
// transaction sequence.
package relay

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tourchain/internal/delegation"
	"tourchain/internal/ledger"
	"tourchain/internal/ledger/relay/metrics"
	dErrors "tourchain/pkg/domain-errors"
)

// Gas safety margin: limit = floor(estimate * 1.2). Tolerates ledger-state
// drift between estimation and inclusion.
const (
	marginNumerator   = 6
	marginDenominator = 5
)

// SignerResolver yields the delegation-gated operational signer.
type SignerResolver interface {
	Signer(ctx context.Context) (delegation.Signer, error)
}

type Relay struct {
	node     ledger.Node
	resolver SignerResolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	// Serializes submission per process. Estimation stays outside the lock.
	submitMu sync.Mutex
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func New(node ledger.Node, resolver SignerResolver, opts ...Option) *Relay {
	r := &Relay{
		node:     node,
		resolver: resolver,
		logger:   slog.Default(),
		tracer:   otel.Tracer("tourchain/ledger/relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Relay signs and submits a call with the operational signer. Fails with
// signer_unavailable when no delegation is active. Estimation and submission
// failures are surfaced verbatim; the caller decides whether a retry is
// idempotent. The relay never retries a state-mutating call on its own.
func (r *Relay) Relay(ctx context.Context, call ledger.Call) (*ledger.Receipt, error) {
	signer, err := r.resolver.Signer(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := r.send(ctx, signer.Address, call)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "transaction confirmed",
		"method", call.Method,
		"tx_hash", receipt.TxHash,
		"block", receipt.BlockNumber,
		"signer", signer.Address,
		"authorized_by", signer.AuthorizedBy,
	)
	return receipt, nil
}

// RelayFrom submits a call from an explicit account, bypassing delegation.
// Used only by the bootstrap escalation path, which runs before any
// delegation exists.
func (r *Relay) RelayFrom(ctx context.Context, from ledger.Address, call ledger.Call) (*ledger.Receipt, error) {
	receipt, err := r.send(ctx, from, call)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "transaction confirmed",
		"method", call.Method,
		"tx_hash", receipt.TxHash,
		"block", receipt.BlockNumber,
		"signer", from,
	)
	return receipt, nil
}

func (r *Relay) send(ctx context.Context, from ledger.Address, call ledger.Call) (*ledger.Receipt, error) {
	ctx, span := r.tracer.Start(ctx, "relay.send",
		trace.WithAttributes(attribute.String("ledger.method", call.Method)))
	defer span.End()

	estimate, err := r.node.EstimateGas(ctx, from, call)
	if err != nil {
		r.fail()
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "gas estimation failed for "+call.Method)
	}
	gasLimit := estimate * marginNumerator / marginDenominator

	gasPrice, err := r.node.GasPrice(ctx)
	if err != nil {
		r.fail()
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "gas price query failed")
	}

	r.submitMu.Lock()
	receipt, err := r.node.SendTransaction(ctx, from, call, gasLimit, gasPrice)
	r.submitMu.Unlock()
	if err != nil {
		r.fail()
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "transaction submission failed for "+call.Method)
	}

	if r.metrics != nil {
		r.metrics.IncrementSubmitted()
		r.metrics.ObserveGasUsed(receipt.GasUsed)
	}
	return receipt, nil
}

func (r *Relay) fail() {
	if r.metrics != nil {
		r.metrics.IncrementFailed()
	}
}
