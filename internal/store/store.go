package store

import (
	"context"
	"errors"

	"mint-sale-go/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultEscrowAccount is the ledger account holding deposited funds and unissued items.
const DefaultEscrowAccount = "sales:escrow"

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrSessionNotFound        = errors.New("session not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrNotItemOwner           = errors.New("item not owned by sender")
	ErrCollectionInUse        = errors.New("item collection already bound to a session")
)

// SaleStore persists sessions, user deposits, rewards balances and issued items.
// Reads outside InTx observe committed state only.
type SaleStore interface {
	// --- Sessions ---
	CreateSession(ctx context.Context, cfg models.SessionConfig) (*models.Session, error)
	GetSession(ctx context.Context, sessionId int64) (*models.Session, error)
	ListSessions(ctx context.Context) ([]models.Session, error)

	// --- Deposits ---
	GetDeposit(ctx context.Context, userId string, sessionId int64) (*models.UserDeposit, error)
	ListDeposits(ctx context.Context, sessionId int64) ([]models.UserDeposit, error)

	// --- Rewards ---
	GetRewards(ctx context.Context, coordinator, asset string) (decimal.Decimal, error)
	ListRewards(ctx context.Context) ([]models.RewardsBalance, error)

	// --- Items and audit ---
	ListItems(ctx context.Context, sessionId int64) ([]models.Item, error)
	ListEntries(ctx context.Context, sessionId int64, limit, offset int) ([]models.SaleEntry, error)

	// InTx runs fn inside a single serializable transaction. The transaction
	// commits only if fn returns nil.
	InTx(ctx context.Context, fn func(tx SaleTx) error) error

	// --- Lifecycle ---
	Close()
}

// SaleTx is the mutating view of a SaleStore inside InTx.
type SaleTx interface {
	GetSession(ctx context.Context, sessionId int64) (*models.Session, error)
	UpdateSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, sessionId int64) error

	// GetDeposit returns a zero deposit when the user has never deposited.
	GetDeposit(ctx context.Context, userId string, sessionId int64) (*models.UserDeposit, error)
	SaveDeposit(ctx context.Context, deposit *models.UserDeposit) error
	SumDeposits(ctx context.Context, sessionId int64) (decimal.Decimal, error)

	AddRewards(ctx context.Context, coordinator, asset string, amount decimal.Decimal) error
	// TakeRewards returns the balance and zeroes it.
	TakeRewards(ctx context.Context, coordinator, asset string) (decimal.Decimal, error)

	RecordItems(ctx context.Context, sessionId, epoch int64, owner string, itemIds []int64) error
	RecordEntry(ctx context.Context, entry models.SaleEntry) error
}

// AssetLedger moves the fungible deposit asset between users and the sale escrow.
// Implementations must either move the full amount or fail without effect.
type AssetLedger interface {
	TransferIn(ctx context.Context, from, asset string, amount decimal.Decimal, reference string) error
	TransferOut(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error
}

// ItemLedger records ownership of collection items.
type ItemLedger interface {
	TransferItems(ctx context.Context, collection, from, to string, itemIds []int64) error
	// Issued counts the collection's items held outside escrow.
	Issued(ctx context.Context, collection string) (int64, error)
}

// Payout disburses coordinator rewards.
type Payout interface {
	Disburse(ctx context.Context, to, asset string, amount decimal.Decimal, reference string) error
}
