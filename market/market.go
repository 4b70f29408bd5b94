// Package market implements the time-delayed "market order" queue (§4.4):
// a request is stored with the block time it was created, then either
// cancelled (refunding any escrow) or executed once an off-chain executor
// calls in, subject to a single expiry window. Unlike orderbook's
// conditional orders, requests carry no trigger price — the only gate is
// whether maxTimeDelay has elapsed.
package market

import (
	"context"
	"errors"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"

	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// ErrRequestExpired is pinned verbatim by the external interface contract
// (§6) and must be reproduced exactly.
var ErrRequestExpired = errors.New("Market::executeIncreasePosition Request has expired")

// Other failures raised by this package.
var (
	ErrAccountEmpty = errors.New("market: account is empty")
	ErrTokenEmpty   = errors.New("market: token is empty")
	ErrZeroAmount   = errors.New("market: amount must be greater than zero")
	ErrNotOwner     = errors.New("market: caller is not the owner")
)

// DefaultMaxTimeDelay is the default request expiry window (§4.4, "300s in
// tests").
const DefaultMaxTimeDelay = 300

// Vault is the narrow slice of vault.Vault this package calls as a
// registered plugin.
type Vault interface {
	IncreasePosition(ctx context.Context, caller, account string, token currency.Token, amountIn, sizeDelta *uint256.Int, isLong bool) error
	DecreasePosition(ctx context.Context, caller, account string, token currency.Token, collateralDelta, sizeDelta *uint256.Int, isLong bool) (*uint256.Int, error)
}

// Ledger escrows collateral pulled at createIncreasePosition time, mirroring
// orderbook's collaborator of the same name.
type Ledger interface {
	TransferIn(caller string, amount *uint256.Int) (*uint256.Int, error)
	TransferOut(account string, amount *uint256.Int) error
}

// EventSink is the narrow slice of dispatch.Mux this package publishes
// lifecycle events onto.
type EventSink interface {
	Publish(data interface{}, ids ...uuid.UUID) error
}

// Clock abstracts "now" so tests can advance time deterministically instead
// of sleeping past a 300-second expiry window.
type Clock func() int64

// IncreaseRequest is a delayed request to open or grow a position (§3).
type IncreaseRequest struct {
	Account   string
	Token     currency.Token
	Amount    *uint256.Int
	SizeDelta *uint256.Int
	IsLong    bool
	BlockTime int64
}

// DecreaseRequest is a delayed request to shrink or close a position (§3).
// Unlike IncreaseRequest it escrows nothing.
type DecreaseRequest struct {
	Account         string
	Token           currency.Token
	CollateralDelta *uint256.Int
	SizeDelta       *uint256.Int
	IsLong          bool
	BlockTime       int64
}

// Market is the Vault plugin that queues, expires and forwards delayed
// requests. The zero value is not usable; construct with New.
type Market struct {
	mu sync.Mutex

	owner     string
	pluginID  string
	vault     Vault
	ledger    Ledger
	clock     Clock
	sink      EventSink
	topic     uuid.UUID

	maxTimeDelay int64

	increaseIndex map[string]uint64
	decreaseIndex map[string]uint64
	increaseReqs  map[key.Request]*IncreaseRequest
	decreaseReqs  map[key.Request]*DecreaseRequest
}

// New constructs a Market owned by owner, identifying itself to the Vault
// as pluginID, with the default 300-second expiry window.
func New(owner, pluginID string, vault Vault, ledger Ledger, clock Clock) (*Market, error) {
	if owner == "" {
		return nil, ErrAccountEmpty
	}
	if pluginID == "" {
		return nil, ErrAccountEmpty
	}
	if vault == nil || ledger == nil {
		return nil, errors.New("market: nil collaborator")
	}
	if clock == nil {
		return nil, errors.New("market: nil clock")
	}
	return &Market{
		owner:         owner,
		pluginID:      pluginID,
		vault:         vault,
		ledger:        ledger,
		clock:         clock,
		maxTimeDelay:  DefaultMaxTimeDelay,
		increaseIndex: make(map[string]uint64),
		decreaseIndex: make(map[string]uint64),
		increaseReqs:  make(map[key.Request]*IncreaseRequest),
		decreaseReqs:  make(map[key.Request]*DecreaseRequest),
	}, nil
}

// SetEventSink wires sink to receive every event this Market publishes,
// tagged with topic.
func (m *Market) SetEventSink(sink EventSink, topic uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
	m.topic = topic
}

func (m *Market) publish(e interface{}) {
	if m.sink == nil {
		return
	}
	_ = m.sink.Publish(e, m.topic)
}

// SetMaxTimeDelay changes the expiry window. Expiry is checked against the
// current window at execution time, so the change applies to requests
// already pending as well as to later ones. Owner only. Emits SetMaxTimeDelay.
func (m *Market) SetMaxTimeDelay(caller string, seconds int64) error {
	if caller != m.owner {
		return ErrNotOwner
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxTimeDelay = seconds
	m.publish(SetMaxTimeDelayEvent{Seconds: seconds})
	return nil
}

// RequestKey derives the map key a (account, perAccountIndex) pair is
// stored under — shared between the increase and decrease queues.
func (m *Market) RequestKey(account string, index uint64) (key.Request, error) {
	return key.GenerateRequestKey(account, index)
}

// IncreaseRequestsIndex returns the count of increase requests account has
// ever created.
func (m *Market) IncreaseRequestsIndex(account string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.increaseIndex[account]
}

// DecreaseRequestsIndex is IncreaseRequestsIndex's decrease counterpart.
func (m *Market) DecreaseRequestsIndex(account string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decreaseIndex[account]
}

// IncreaseRequestAt returns a copy of the increase request stored at k, or
// false if none exists there.
func (m *Market) IncreaseRequestAt(k key.Request) (IncreaseRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.increaseReqs[k]
	if !ok {
		return IncreaseRequest{}, false
	}
	return *req, true
}

// DecreaseRequestAt is IncreaseRequestAt's decrease counterpart.
func (m *Market) DecreaseRequestAt(k key.Request) (DecreaseRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.decreaseReqs[k]
	if !ok {
		return DecreaseRequest{}, false
	}
	return *req, true
}

// PendingIncreaseKeys returns the key of every currently-queued increase
// request, in no particular order. The executor polls this to find
// requests worth an expiry/execute attempt (§2's "off-chain executor").
func (m *Market) PendingIncreaseKeys() []key.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]key.Request, 0, len(m.increaseReqs))
	for k := range m.increaseReqs {
		keys = append(keys, k)
	}
	return keys
}

// PendingDecreaseKeys is PendingIncreaseKeys' decrease-request counterpart.
func (m *Market) PendingDecreaseKeys() []key.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]key.Request, 0, len(m.decreaseReqs))
	for k := range m.decreaseReqs {
		keys = append(keys, k)
	}
	return keys
}

func validateRequestArgs(account string, token currency.Token) error {
	if account == "" {
		return ErrAccountEmpty
	}
	if token.IsEmpty() {
		return ErrTokenEmpty
	}
	return nil
}
