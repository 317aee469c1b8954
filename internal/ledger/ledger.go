// Package ledger defines the ports through which the application consumes the
// external tourist-registry contract. The ledger runtime itself is a
// collaborator: reads and writes are consumed here, never reimplemented.
package ledger

import "context"

// Address identifies an external account (0x-prefixed hex).
type Address string

// Contract method names as exposed by the registry.
const (
	MethodAddAuthority    = "addAuthority"
	MethodRegisterTourist = "registerTourist"
	MethodUploadDocument  = "uploadDocument"
	MethodVerifyTourist   = "verifyTourist"
	MethodRejectTourist   = "rejectTourist"
)

// Call is an unsigned ledger intent: a contract method bound to its
// arguments. Calls are built by the constructors below and carried to the
// relay, which estimates, signs and submits them.
type Call struct {
	Method string
	Args   []any
}

// Receipt is returned for every confirmed transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// TouristInfo mirrors the registry's getTouristInfo tuple.
type TouristInfo struct {
	Name             string
	Nationality      string
	EncryptedDataRef string
	CredentialRef    string
	Verified         bool
	RegisteredAt     int64
	VerifiedAt       int64
	ExpiresAt        int64
	Active           bool
}

// DocumentInfo mirrors one entry of getTouristDocuments.
type DocumentInfo struct {
	Type       string
	StorageRef string
	UploadedAt int64
	Verified   bool
}

// Node exposes the account and transaction primitives of the ledger client.
type Node interface {
	Accounts(ctx context.Context) ([]Address, error)
	GasPrice(ctx context.Context) (uint64, error)
	EstimateGas(ctx context.Context, from Address, call Call) (uint64, error)
	SendTransaction(ctx context.Context, from Address, call Call, gasLimit, gasPrice uint64) (*Receipt, error)
}

// Registry exposes the read surface of the tourist registry contract.
type Registry interface {
	IsAuthority(ctx context.Context, addr Address) (bool, error)
	TouristInfo(ctx context.Context, uniqueID string) (TouristInfo, error)
	TouristDocuments(ctx context.Context, uniqueID string) ([]DocumentInfo, error)
	TotalTourists(ctx context.Context) (int, error)
	TouristAt(ctx context.Context, index int) (string, error)
}

func AddAuthority(addr Address) Call {
	return Call{Method: MethodAddAuthority, Args: []any{addr}}
}

func RegisterTourist(uniqueID, name, nationality, encryptedRef string, owner Address) Call {
	return Call{Method: MethodRegisterTourist, Args: []any{uniqueID, name, nationality, encryptedRef, owner}}
}

func UploadDocument(uniqueID, docType, storageRef string) Call {
	return Call{Method: MethodUploadDocument, Args: []any{uniqueID, docType, storageRef}}
}

func VerifyTourist(uniqueID, credentialRef string, validityDays int) Call {
	return Call{Method: MethodVerifyTourist, Args: []any{uniqueID, credentialRef, validityDays}}
}

func RejectTourist(uniqueID string) Call {
	return Call{Method: MethodRejectTourist, Args: []any{uniqueID}}
}
