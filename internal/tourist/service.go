// Package tourist drives a registry record through its lifecycle: registered,
// then exactly one of verified or rejected, with expiry derived lazily from
// the ledger timestamps. The ledger is the only source of truth; everything
// the service keeps in memory is an optimization it is prepared to rebuild.
package tourist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"tourchain/internal/audit"
	"tourchain/internal/credential"
	"tourchain/internal/crypto/pii"
	"tourchain/internal/ledger"
	"tourchain/internal/ledger/relay"
	"tourchain/internal/tourist/metrics"
	"tourchain/internal/tourist/pending"
	dErrors "tourchain/pkg/domain-errors"
	"tourchain/pkg/platform/middleware/requesttime"
)

const (
	minValidityDays = 1
	maxValidityDays = 3650

	credentialRefPrefix = "QR_"
	credentialRefIDLen  = 8

	// Concurrent ledger reads while assembling the pending list.
	pendingReadConcurrency = 8
)

// ExpiryTracker registers a credential for proactive expiry watching.
type ExpiryTracker interface {
	Track(uniqueID string)
}

// CardRenderer produces the printable card bytes for a verified record.
type CardRenderer interface {
	Render(ctx context.Context, payload credential.Payload, record Record) ([]byte, error)
}

type RegisterRequest struct {
	Name           string `json:"name"`
	Nationality    string `json:"nationality"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	PassportNumber string `json:"passportNumber"`
	DateOfBirth    string `json:"dateOfBirth"`
	Address        string `json:"address"`
}

type RegisterResult struct {
	UniqueID      string         `json:"uniqueId"`
	TxHash        string         `json:"transactionHash"`
	WalletAddress ledger.Address `json:"walletAddress"`
}

type UploadResult struct {
	StorageRef string `json:"storageRef"`
	TxHash     string `json:"transactionHash"`
}

type PendingList struct {
	Tourists []Record `json:"tourists"`
	Total    int      `json:"total"`
}

type DecideRequest struct {
	UniqueID        string `json:"uniqueId"`
	Approved        bool   `json:"approved"`
	ValidityDays    int    `json:"validityDays"`
	RejectionReason string `json:"rejectionReason"`
}

type DecideResult struct {
	Approved       bool      `json:"approved"`
	TxHash         string    `json:"transactionHash"`
	QRCode         string    `json:"qrCode,omitempty"`
	ValidityDays   int       `json:"validityDays,omitempty"`
	ExpirationDate time.Time `json:"expirationDate,omitempty"`
}

type VerifyResult struct {
	Status  Status `json:"status"`
	Tourist Record `json:"tourist"`
}

type Service struct {
	registry  ledger.Registry
	relay     *relay.Relay
	resolver  relay.SignerResolver
	index     *pending.Index
	codec     *credential.Codec
	encryptor *pii.Encryptor

	docs     DocumentStore
	cards    CardRenderer
	tracker  ExpiryTracker
	idLength int

	logger  *slog.Logger
	auditor audit.Publisher
	metrics *metrics.Metrics
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

func WithDocumentStore(store DocumentStore) Option {
	return func(s *Service) {
		s.docs = store
	}
}

func WithCardRenderer(renderer CardRenderer) Option {
	return func(s *Service) {
		s.cards = renderer
	}
}

func WithExpiryTracker(tracker ExpiryTracker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

func WithUniqueIDLength(length int) Option {
	return func(s *Service) {
		s.idLength = length
	}
}

func New(
	registry ledger.Registry,
	r *relay.Relay,
	resolver relay.SignerResolver,
	index *pending.Index,
	codec *credential.Codec,
	encryptor *pii.Encryptor,
	opts ...Option,
) (*Service, error) {
	if registry == nil || r == nil || resolver == nil || index == nil || codec == nil || encryptor == nil {
		return nil, errors.New("tourist service: all dependencies are required")
	}
	s := &Service{
		registry:  registry,
		relay:     r,
		resolver:  resolver,
		index:     index,
		codec:     codec,
		encryptor: encryptor,
		docs:      NewMemoryDocumentStore(),
		idLength:  10,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register writes a new tourist record to the ledger. PII beyond name and
// nationality never reaches the ledger in the clear; it travels inside the
// encrypted envelope reference.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if req.Name == "" {
		return RegisterResult{}, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if req.Nationality == "" {
		return RegisterResult{}, dErrors.New(dErrors.CodeInvalidInput, "nationality is required")
	}

	uniqueID, err := newUniqueID(s.idLength)
	if err != nil {
		return RegisterResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate unique id")
	}

	envelope, err := json.Marshal(map[string]string{
		"email":          req.Email,
		"phone":          req.Phone,
		"passportNumber": req.PassportNumber,
		"dateOfBirth":    req.DateOfBirth,
		"address":        req.Address,
	})
	if err != nil {
		return RegisterResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "marshal pii envelope")
	}
	encryptedRef, err := s.encryptor.Encrypt(envelope)
	if err != nil {
		return RegisterResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "encrypt pii envelope")
	}

	signer, err := s.resolver.Signer(ctx)
	if err != nil {
		return RegisterResult{}, err
	}

	receipt, err := s.relay.Relay(ctx, ledger.RegisterTourist(uniqueID, req.Name, req.Nationality, encryptedRef, signer.Address))
	if err != nil {
		return RegisterResult{}, err
	}

	s.index.Add(uniqueID)
	s.audit(ctx, audit.ActionDataModification, uniqueID, map[string]string{"operation": "register"})
	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}
	s.logger.InfoContext(ctx, "tourist registered",
		"unique_id", uniqueID,
		"tx_hash", receipt.TxHash,
	)

	return RegisterResult{
		UniqueID:      uniqueID,
		TxHash:        receipt.TxHash,
		WalletAddress: signer.Address,
	}, nil
}

// UploadDocument stores the content off-ledger and anchors the reference on
// the registry record.
func (s *Service) UploadDocument(ctx context.Context, uniqueID, docType string, content []byte) (UploadResult, error) {
	if uniqueID == "" || docType == "" {
		return UploadResult{}, dErrors.New(dErrors.CodeInvalidInput, "unique id and document type are required")
	}
	if len(content) == 0 {
		return UploadResult{}, dErrors.New(dErrors.CodeInvalidInput, "document content is empty")
	}

	if _, err := s.registry.TouristInfo(ctx, uniqueID); err != nil {
		return UploadResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "tourist not found")
	}

	ref, err := s.docs.Put(ctx, content)
	if err != nil {
		return UploadResult{}, err
	}

	receipt, err := s.relay.Relay(ctx, ledger.UploadDocument(uniqueID, docType, ref))
	if err != nil {
		return UploadResult{}, err
	}

	s.audit(ctx, audit.ActionDataModification, uniqueID, map[string]string{
		"operation": "upload_document",
		"doc_type":  docType,
	})
	return UploadResult{StorageRef: ref, TxHash: receipt.TxHash}, nil
}

// Info reads a single record.
func (s *Service) Info(ctx context.Context, uniqueID string) (Record, error) {
	if uniqueID == "" {
		return Record{}, dErrors.New(dErrors.CodeInvalidInput, "unique id is required")
	}
	info, err := s.registry.TouristInfo(ctx, uniqueID)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeNotFound, "tourist not found")
	}
	s.audit(ctx, audit.ActionDataAccess, uniqueID, map[string]string{"operation": "info"})
	return recordFrom(uniqueID, info, requesttime.Now(ctx)), nil
}

// Documents reads a record's document list.
func (s *Service) Documents(ctx context.Context, uniqueID string) ([]Document, error) {
	if uniqueID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unique id is required")
	}
	infos, err := s.registry.TouristDocuments(ctx, uniqueID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "tourist not found")
	}
	return documentsFrom(infos), nil
}

// ListPending returns records still awaiting a decision. Index membership is
// a hint only: every id is re-read and filtered against the ledger record.
func (s *Service) ListPending(ctx context.Context) (PendingList, error) {
	total, err := s.registry.TotalTourists(ctx)
	if err != nil {
		return PendingList{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read registry total")
	}

	// A cold index next to a populated ledger means we restarted; rebuild
	// from the feed before answering.
	if s.index.Len() == 0 && total > 0 {
		if err := s.index.Rebuild(ctx, s.registry); err != nil {
			return PendingList{}, err
		}
	}

	ids := s.index.IDs()
	now := requesttime.Now(ctx)
	records := make([]*Record, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pendingReadConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			info, err := s.registry.TouristInfo(gctx, id)
			if err != nil {
				// The id may have never committed; drop it from the index.
				s.index.Remove(id)
				return nil
			}
			if info.Verified || !info.Active {
				s.index.Remove(id)
				return nil
			}
			rec := recordFrom(id, info, now)
			records[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PendingList{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read pending records")
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return PendingList{Tourists: out, Total: total}, nil
}

// Decide settles a pending record. Each record gets exactly one decision;
// anything already verified or deactivated fails with already_decided before
// a transaction is attempted. The simulated contract enforces the same rule,
// so a race between two deciders loses at the ledger as well.
func (s *Service) Decide(ctx context.Context, req DecideRequest) (DecideResult, error) {
	if req.UniqueID == "" {
		return DecideResult{}, dErrors.New(dErrors.CodeInvalidInput, "unique id is required")
	}

	info, err := s.registry.TouristInfo(ctx, req.UniqueID)
	if err != nil {
		return DecideResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "tourist not found")
	}
	if info.Verified || !info.Active {
		return DecideResult{}, dErrors.New(dErrors.CodeAlreadyDecided, "tourist already has a decision")
	}

	if !req.Approved {
		return s.reject(ctx, req)
	}
	return s.approve(ctx, req)
}

func (s *Service) reject(ctx context.Context, req DecideRequest) (DecideResult, error) {
	receipt, err := s.relay.Relay(ctx, ledger.RejectTourist(req.UniqueID))
	if err != nil {
		return DecideResult{}, err
	}

	s.index.Remove(req.UniqueID)
	s.audit(ctx, audit.ActionDataModification, req.UniqueID, map[string]string{
		"operation": "reject",
		"reason":    req.RejectionReason,
	})
	if s.metrics != nil {
		s.metrics.IncrementRejections()
	}
	s.logger.InfoContext(ctx, "tourist rejected",
		"unique_id", req.UniqueID,
		"tx_hash", receipt.TxHash,
	)
	return DecideResult{Approved: false, TxHash: receipt.TxHash}, nil
}

func (s *Service) approve(ctx context.Context, req DecideRequest) (DecideResult, error) {
	if req.ValidityDays < minValidityDays || req.ValidityDays > maxValidityDays {
		return DecideResult{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"validity days must be between %d and %d", minValidityDays, maxValidityDays)
	}
	if len(req.UniqueID) < credentialRefIDLen {
		return DecideResult{}, dErrors.New(dErrors.CodeInvalidInput, "unique id is too short")
	}
	credentialRef := credentialRefPrefix + req.UniqueID[:credentialRefIDLen]

	receipt, err := s.relay.Relay(ctx, ledger.VerifyTourist(req.UniqueID, credentialRef, req.ValidityDays))
	if err != nil {
		return DecideResult{}, err
	}

	// Re-read for the ledger's authoritative timestamps.
	info, err := s.registry.TouristInfo(ctx, req.UniqueID)
	if err != nil {
		return DecideResult{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "re-read verified record")
	}

	payload := s.codec.Mint(credential.MintInput{
		UniqueID:      req.UniqueID,
		CredentialRef: credentialRef,
		Name:          info.Name,
		Nationality:   info.Nationality,
		IssuedAt:      info.VerifiedAt,
		ExpiresAt:     info.ExpiresAt,
	}, requesttime.Now(ctx))
	qrCode, err := credential.DataURL(payload)
	if err != nil {
		return DecideResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "render credential qr")
	}

	s.index.Remove(req.UniqueID)
	if s.tracker != nil {
		s.tracker.Track(req.UniqueID)
	}
	s.audit(ctx, audit.ActionDataModification, req.UniqueID, map[string]string{
		"operation":     "approve",
		"validity_days": strconv.Itoa(req.ValidityDays),
	})
	if s.metrics != nil {
		s.metrics.IncrementApprovals()
	}
	s.logger.InfoContext(ctx, "tourist verified",
		"unique_id", req.UniqueID,
		"tx_hash", receipt.TxHash,
		"validity_days", req.ValidityDays,
	)

	return DecideResult{
		Approved:       true,
		TxHash:         receipt.TxHash,
		QRCode:         qrCode,
		ValidityDays:   req.ValidityDays,
		ExpirationDate: time.Unix(info.ExpiresAt, 0).UTC(),
	}, nil
}

// VerifyByCredential resolves a scanned credential reference or unique id to
// its record by walking the registry feed. O(total) and unauthenticated;
// acceptable at registry scale.
func (s *Service) VerifyByCredential(ctx context.Context, credentialOrID string) (VerifyResult, error) {
	if credentialOrID == "" {
		return VerifyResult{}, dErrors.New(dErrors.CodeInvalidInput, "credential is required")
	}
	if s.metrics != nil {
		s.metrics.IncrementVerificationScans()
	}

	total, err := s.registry.TotalTourists(ctx)
	if err != nil {
		return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read registry total")
	}

	now := requesttime.Now(ctx)
	for i := 0; i < total; i++ {
		id, err := s.registry.TouristAt(ctx, i)
		if err != nil {
			return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read registry feed")
		}
		info, err := s.registry.TouristInfo(ctx, id)
		if err != nil {
			return VerifyResult{}, dErrors.Wrap(err, dErrors.CodeLedgerFailed, "read tourist record")
		}
		if id != credentialOrID && (info.CredentialRef == "" || info.CredentialRef != credentialOrID) {
			continue
		}

		s.audit(ctx, audit.ActionDataAccess, id, map[string]string{"operation": "public_verify"})
		return VerifyResult{
			Status:  DeriveStatus(info, now),
			Tourist: recordFrom(id, info, now),
		}, nil
	}
	return VerifyResult{}, dErrors.New(dErrors.CodeNotFound, "no record matches this credential")
}

// Card renders the printable card for a verified record.
func (s *Service) Card(ctx context.Context, uniqueID string) ([]byte, error) {
	if s.cards == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "card rendering is not configured")
	}
	payload, record, err := s.mintedPayload(ctx, uniqueID)
	if err != nil {
		return nil, err
	}
	return s.cards.Render(ctx, payload, record)
}

// QRCode re-mints the credential image for an already verified record.
func (s *Service) QRCode(ctx context.Context, uniqueID string) (string, error) {
	payload, _, err := s.mintedPayload(ctx, uniqueID)
	if err != nil {
		return "", err
	}
	return credential.DataURL(payload)
}

func (s *Service) mintedPayload(ctx context.Context, uniqueID string) (credential.Payload, Record, error) {
	if uniqueID == "" {
		return credential.Payload{}, Record{}, dErrors.New(dErrors.CodeInvalidInput, "unique id is required")
	}
	info, err := s.registry.TouristInfo(ctx, uniqueID)
	if err != nil {
		return credential.Payload{}, Record{}, dErrors.Wrap(err, dErrors.CodeNotFound, "tourist not found")
	}
	if !info.Verified {
		return credential.Payload{}, Record{}, dErrors.New(dErrors.CodeInvalidInput, "tourist is not verified yet")
	}

	now := requesttime.Now(ctx)
	payload := s.codec.Mint(credential.MintInput{
		UniqueID:      uniqueID,
		CredentialRef: info.CredentialRef,
		Name:          info.Name,
		Nationality:   info.Nationality,
		IssuedAt:      info.VerifiedAt,
		ExpiresAt:     info.ExpiresAt,
	}, now)
	return payload, recordFrom(uniqueID, info, now), nil
}

func (s *Service) audit(ctx context.Context, action audit.Action, uniqueID string, detail map[string]string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action: action,
		Actor:  uniqueID,
		Detail: detail,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
