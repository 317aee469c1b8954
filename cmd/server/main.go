// main wires the ledger, the domain services and the HTTP surface, and owns
// the process lifecycle. Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tourchain/internal/audit"
	auditkafka "tourchain/internal/audit/kafka"
	auditpg "tourchain/internal/audit/postgres"
	"tourchain/internal/authority"
	"tourchain/internal/authority/guard"
	authoritymetrics "tourchain/internal/authority/metrics"
	"tourchain/internal/credential"
	"tourchain/internal/crypto/pii"
	"tourchain/internal/delegation"
	"tourchain/internal/expiry"
	ledgermemory "tourchain/internal/ledger/memory"
	"tourchain/internal/ledger/relay"
	relaymetrics "tourchain/internal/ledger/relay/metrics"
	"tourchain/internal/platform/config"
	"tourchain/internal/platform/httpserver"
	"tourchain/internal/platform/logger"
	platformredis "tourchain/internal/platform/redis"
	"tourchain/internal/platform/token"
	"tourchain/internal/tourist"
	"tourchain/internal/tourist/card"
	touristmetrics "tourchain/internal/tourist/metrics"
	"tourchain/internal/tourist/pending"
	httptransport "tourchain/internal/transport/http"
)

const devPIIKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ledger. Without an RPC endpoint the in-memory simulation serves
	// development and testing; the genesis account is the bootstrap authority.
	if cfg.LedgerRPC != "" {
		log.Warn("external ledger RPC is not wired yet, using the in-memory simulation", "rpc", cfg.LedgerRPC)
	}
	led := ledgermemory.New()

	// Audit pipeline. Events fan into a channel worker so request latency
	// never waits on the sink; the sink is kafka, postgres or memory in that
	// order of preference.
	auditSink, cleanupSink, err := buildAuditSink(ctx, cfg, log)
	if err != nil {
		log.Error("audit sink init failed", "error", err)
		os.Exit(1)
	}
	defer cleanupSink()

	inbox := make(chan audit.Event, 1024)
	worker := audit.NewWorker(auditSink, inbox, log)
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go func() {
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()
	publisher := audit.NewChannelPublisher(inbox, log)

	// Guard store: redis when configured, else in-process.
	var guardStore guard.Store = guard.NewMemoryStore()
	var healthCheckers []httptransport.HealthChecker
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guardStore = guard.NewRedisStore(redisClient.Client)
		healthCheckers = append(healthCheckers, redisClient)
		log.Info("brute-force guard backed by redis")
	}

	g, err := guard.New(guardStore,
		guard.WithLogger(log),
		guard.WithPolicy(guard.Policy{
			MaxAttempts: cfg.GuardMaxAttempts,
			Window:      cfg.GuardWindow,
			BanDuration: cfg.GuardBanDuration,
		}),
	)
	if err != nil {
		log.Error("guard init failed", "error", err)
		os.Exit(1)
	}

	// Core wiring: delegation, relay, tokens, gate.
	delegationStore := delegation.NewMemoryStore()
	resolver := delegation.NewResolver(led, delegationStore)
	txRelay := relay.New(led, resolver,
		relay.WithLogger(log),
		relay.WithMetrics(relaymetrics.New()),
	)
	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	var verifier authority.PassphraseVerifier
	if cfg.PassphraseHash != "" {
		verifier = authority.NewBcryptVerifier(cfg.PassphraseHash)
	} else {
		log.Warn("no passphrase hash configured, using plaintext comparison")
		verifier = authority.NewStaticVerifier(cfg.Passphrase)
	}

	gate, err := authority.New(g, verifier, led, led, txRelay, delegationStore, tokens,
		authority.WithLogger(log),
		authority.WithAuditPublisher(publisher),
		authority.WithMetrics(authoritymetrics.New()),
		authority.WithTokenTTL(cfg.TokenTTL),
	)
	if err != nil {
		log.Error("authority gate init failed", "error", err)
		os.Exit(1)
	}

	// Tourist lifecycle.
	keyHex := cfg.PIIKeyHex
	if keyHex == "" {
		log.Warn("no PII key configured, using the development key")
		keyHex = devPIIKey
	}
	encryptor, err := pii.NewEncryptor(keyHex)
	if err != nil {
		log.Error("pii encryptor init failed", "error", err)
		os.Exit(1)
	}

	tracker := expiry.New(led,
		expiry.WithLogger(log),
		expiry.WithAuditPublisher(publisher),
		expiry.WithInterval(cfg.ExpiryCheckInterval),
	)
	go tracker.Run(ctx)

	codec := credential.NewCodec(cfg.IssuerLabel, cfg.CountryCode, cfg.VerificationURL)
	tourists, err := tourist.New(led, txRelay, resolver, pending.NewIndex(), codec, encryptor,
		tourist.WithLogger(log),
		tourist.WithAuditPublisher(publisher),
		tourist.WithMetrics(touristmetrics.New()),
		tourist.WithCardRenderer(card.NewRenderer()),
		tourist.WithExpiryTracker(tracker),
		tourist.WithUniqueIDLength(cfg.UniqueIDLength),
	)
	if err != nil {
		log.Error("tourist service init failed", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Gate:     gate,
		Tourists: tourists,
		Tokens:   tokens,
		Health:   healthCheckers,
	})
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildAuditSink picks the configured audit backend. The returned cleanup is
// always safe to call.
func buildAuditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Store, func(), error) {
	noop := func() {}

	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return nil, noop, err
		}
		store := auditpg.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		log.Info("audit events persisted to postgres")
		return store, func() { db.Close() }, nil
	}

	if cfg.KafkaBrokers != "" {
		pub, err := auditkafka.New(ctx, strings.Split(cfg.KafkaBrokers, ","), cfg.AuditTopic, log)
		if err != nil {
			return nil, noop, err
		}
		log.Info("audit events published to kafka", "topic", cfg.AuditTopic)
		return publisherStore{pub}, func() { pub.Close() }, nil
	}

	log.Info("audit events kept in memory")
	return audit.NewMemoryStore(), noop, nil
}

// publisherStore adapts a fire-and-forget publisher to the worker's Store
// interface. List is unsupported for remote sinks.
type publisherStore struct {
	pub audit.Publisher
}

func (s publisherStore) Append(ctx context.Context, event audit.Event) error {
	return s.pub.Emit(ctx, event)
}

func (s publisherStore) List(context.Context) ([]audit.Event, error) {
	return nil, errors.New("listing is not supported by this audit sink")
}
