// Package vault implements the settlement engine's core: per-user leveraged
// positions on whitelisted index tokens, a shared dollar pool that backs
// them, a utilization-based funding-rate accumulator, and the liquidation
// predicate that lets anyone close an under-collateralized position. See
// the package-level spec this module was built from for the authoritative
// behavioural contract; this file holds the Vault type itself, its
// constructor and its admin surface.
package vault

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/holiman/uint256"
	"github.com/kat-co/vala"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/currency"
)

// FundingInterval is the funding accumulator's step size (§3).
const FundingInterval = 28_800 * time.Second

// Vault is the settlement engine's core state machine. The zero value is
// not usable; construct with New.
type Vault struct {
	mu      sync.Mutex
	entered atomic.Bool

	owner     string
	ledger    Ledger
	usdg      Usdg
	priceFeed PriceFeed
	clock     func() time.Time

	sink        EventSink
	eventsTopic uuid.UUID

	positions map[key.Position]*Position

	poolAmount     *uint256.Int
	reservedAmount *uint256.Int
	feeReserves    *uint256.Int

	cumulativeFundingRate            *uint256.Int
	lastRefreshFundingRateTimestamp  int64
	fundingRateFactor                *uint256.Int

	whitelistedTokens map[currency.Token]bool
	plugins           map[string]bool
	paused            bool

	liquidationFee       *uint256.Int
	marginFee            *uint256.Int
	maxLeverage          *uint256.Int
	minProfitTime        int64
	minProfitBasisPoints map[currency.Token]*uint256.Int
}

// Option configures a Vault at construction time.
type Option func(*Vault)

// WithFundingRateFactor overrides the default zero funding-rate factor.
func WithFundingRateFactor(factor *uint256.Int) Option {
	return func(v *Vault) { v.fundingRateFactor = factor }
}

// WithMarginFee overrides the default zero margin-fee factor (PRECISION-scaled).
func WithMarginFee(fee *uint256.Int) Option {
	return func(v *Vault) { v.marginFee = fee }
}

// WithLiquidationFee overrides the default zero flat liquidation fee (18-decimal).
func WithLiquidationFee(fee *uint256.Int) Option {
	return func(v *Vault) { v.liquidationFee = fee }
}

// WithMaxLeverage overrides the default (50x) per-position leverage ceiling.
func WithMaxLeverage(max *uint256.Int) Option {
	return func(v *Vault) { v.maxLeverage = max }
}

// WithMinProfitTime overrides the default zero anti-front-running window.
func WithMinProfitTime(seconds int64) Option {
	return func(v *Vault) { v.minProfitTime = seconds }
}

// WithClock overrides the Vault's notion of "now", for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(v *Vault) { v.clock = clock }
}

// WithUsdg wires the liquidity-token collaborator buyUSDG/sellUSDG mint and
// burn against. Without this option, New wires an InMemoryUsdg.
func WithUsdg(u Usdg) Option {
	return func(v *Vault) { v.usdg = u }
}

// New constructs a Vault owned by owner, settling against ledger (the
// "dollar" token collaborator) and priced by priceFeed. This collapses the
// Solidity original's `(weth, dollar, usdg, priceFeed)` constructor
// argument list (§6) into Go-idiomatic required parameters plus functional
// options for the admin defaults, since this port has no constructor-time
// immutable-address pattern to preserve.
func New(owner string, ledger Ledger, priceFeed PriceFeed, opts ...Option) (*Vault, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty{owner, "owner"},
	).Check(); err != nil {
		return nil, ErrAccountEmpty
	}
	if ledger == nil {
		return nil, ErrNilLedger
	}
	if priceFeed == nil {
		return nil, ErrNilPriceFeed
	}

	v := &Vault{
		owner:                owner,
		ledger:               ledger,
		priceFeed:            priceFeed,
		clock:                time.Now,
		positions:            make(map[key.Position]*Position),
		poolAmount:           fixedpoint.Zero(),
		reservedAmount:       fixedpoint.Zero(),
		feeReserves:          fixedpoint.Zero(),
		cumulativeFundingRate: fixedpoint.Zero(),
		fundingRateFactor:    fixedpoint.Zero(),
		whitelistedTokens:    make(map[currency.Token]bool),
		plugins:              make(map[string]bool),
		liquidationFee:       fixedpoint.Zero(),
		marginFee:            fixedpoint.Zero(),
		maxLeverage:          fixedpoint.New(50),
		minProfitBasisPoints: make(map[currency.Token]*uint256.Int),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.lastRefreshFundingRateTimestamp = v.clock().Unix()
	return v, nil
}

func (v *Vault) now() int64 { return v.clock().Unix() }

// guard rejects a mutative call that arrives while another is already in
// flight on this Vault (§5's explicit non-reentrancy guard — never relied
// upon for mutual exclusion by itself, since individual fields are still
// protected by v.mu; this catches a misbehaving Ledger/Usdg hook calling
// back into the Vault mid-operation, which a plain mutex would instead
// deadlock on). Every exported mutative method calls this first and defers
// the returned release.
func (v *Vault) guard() (func(), error) {
	if !v.entered.CompareAndSwap(false, true) {
		return nil, ErrReentrant
	}
	return func() { v.entered.Store(false) }, nil
}

// --- Admin surface (§3 Admin state, §4.5) ---

// SetPlugin registers or deregisters plugin as authorised to call
// IncreasePosition/DecreasePosition/LiquidatePosition on behalf of users.
// Owner only.
func (v *Vault) SetPlugin(caller, plugin string, active bool) error {
	if caller != v.owner {
		return ErrNotOwner
	}
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty{plugin, "plugin"}).Check(); err != nil {
		return ErrNotRegistered
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if active {
		v.plugins[plugin] = true
	} else {
		delete(v.plugins, plugin)
	}
	v.publish(SetPluginEvent{Plugin: plugin, Active: active})
	return nil
}

// IsPlugin reports whether plugin may call the position mutators.
func (v *Vault) IsPlugin(plugin string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.plugins[plugin]
}

// SetWhitelistedToken whitelists or delists token as an index market.
// Owner only.
func (v *Vault) SetWhitelistedToken(caller string, token currency.Token, active bool, minProfitBasisPoints *uint256.Int) error {
	if caller != v.owner {
		return ErrNotOwner
	}
	if token.IsEmpty() {
		return ErrTokenEmpty
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if active {
		v.whitelistedTokens[token] = true
		if minProfitBasisPoints != nil {
			v.minProfitBasisPoints[token] = new(uint256.Int).Set(minProfitBasisPoints)
		} else if _, ok := v.minProfitBasisPoints[token]; !ok {
			v.minProfitBasisPoints[token] = fixedpoint.Zero()
		}
	} else {
		delete(v.whitelistedTokens, token)
	}
	v.publish(SetWhitelistedTokenEvent{Token: token, Active: active})
	return nil
}

// IsWhitelisted reports whether token may be used as an index market.
func (v *Vault) IsWhitelisted(token currency.Token) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.whitelistedTokens[token]
}

// Pause disables every mutative operation annotated whenNotPaused in §4.5.
// Owner only.
func (v *Vault) Pause(caller string) error {
	if caller != v.owner {
		return ErrNotOwner
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = true
	return nil
}

// Unpause re-enables mutative operations. Owner only.
func (v *Vault) Unpause(caller string) error {
	if caller != v.owner {
		return ErrNotOwner
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = false
	return nil
}

// Paused reports the current pause state.
func (v *Vault) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// --- Public state accessors (§6) ---

// GetPositionKey derives the map key a (account, indexToken, isLong) triple
// is stored under.
func (v *Vault) GetPositionKey(account string, token currency.Token, isLong bool) (key.Position, error) {
	return key.GeneratePositionKey(account, token.String(), isLong)
}

// Position returns a defensive copy of the position stored at k, or a
// fresh zero-valued Position (size == 0) if none exists.
func (v *Vault) Position(k key.Position) *Position {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positions[k].clone()
}

// PoolAmount returns the dollar pool's current size.
func (v *Vault) PoolAmount() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(uint256.Int).Set(v.poolAmount)
}

// ReservedAmount returns the portion of the pool currently locked against
// open positions.
func (v *Vault) ReservedAmount() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(uint256.Int).Set(v.reservedAmount)
}

// FeeReserves returns accumulated margin/funding fees not part of the pool.
func (v *Vault) FeeReserves() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(uint256.Int).Set(v.feeReserves)
}

// CumulativeFundingRate returns the funding accumulator's current value.
func (v *Vault) CumulativeFundingRate() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(uint256.Int).Set(v.cumulativeFundingRate)
}

func (v *Vault) checkPlugin(caller string) error {
	if !v.plugins[caller] {
		return ErrNotPlugin
	}
	return nil
}

func (v *Vault) checkWhitelisted(token currency.Token) error {
	if !v.whitelistedTokens[token] {
		return ErrNotWhitelisted
	}
	return nil
}

func (v *Vault) checkNotPaused() error {
	if v.paused {
		return ErrPaused
	}
	return nil
}
