// Package engine owns the settlement process: one Vault, one OrderBook,
// one Market and one PriceFeed, wired together and exposed over REST and
// WebSocket. It registers OrderBook and Market as Vault plugins at
// startup, subscribes a dispatch.Mux to each collaborator's event stream,
// and runs an executor loop that scans for triggerable orders and
// non-expired requests (§2 "Data flow", §12).
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/config"
	"github.com/thrasher-corp/perpvault/currency"
	"github.com/thrasher-corp/perpvault/database"
	"github.com/thrasher-corp/perpvault/database/drivers/sqlite3"
	"github.com/thrasher-corp/perpvault/database/repository"
	"github.com/thrasher-corp/perpvault/dispatch"
	"github.com/thrasher-corp/perpvault/glpmanager"
	"github.com/thrasher-corp/perpvault/market"
	"github.com/thrasher-corp/perpvault/orderbook"
	"github.com/thrasher-corp/perpvault/pricefeed"
	"github.com/thrasher-corp/perpvault/vault"
)

const (
	orderbookPluginID = "orderbook"
	marketPluginID    = "market"
)

// Engine is the process-level object wiring the core packages together.
// The zero value is not usable; construct with New.
type Engine struct {
	Config *config.Config

	Vault      *vault.Vault
	OrderBook  *orderbook.OrderBook
	Market     *market.Market
	PriceFeed  *pricefeed.Feed
	GLPManager *glpmanager.Manager
	Ledger     *vault.InMemoryLedger

	mux    *dispatch.Mux
	topics []uuid.UUID

	executorMu      sync.Mutex
	executorCancel  context.CancelFunc
	executorRunning bool

	knownAccounts   map[string]struct{}
	knownAccountsMu sync.Mutex
}

// New builds every core collaborator from cfg, registers OrderBook/Market
// as Vault plugins, and wires a shared event sink. It does not start the
// executor loop or any network listener: StartExecutor starts the loop, and
// cmd/perpvaultd starts the REST and WebSocket listeners.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine: nil config")
	}

	resolvedVault, err := cfg.Vault.Resolve()
	if err != nil {
		return nil, fmt.Errorf("engine: resolving vault config: %w", err)
	}

	ledger := vault.NewInMemoryLedger()
	feed := pricefeed.New()
	for _, t := range cfg.Vault.WhitelistedTokens {
		if err := feed.ConfigToken(currency.Token(t.Token), t.FeedSource, t.FeedDecimals, t.TokenDecimals); err != nil {
			return nil, fmt.Errorf("engine: configuring price feed for %s: %w", t.Token, err)
		}
	}

	v, err := vault.New(resolvedVault.Owner, ledger, feed,
		vault.WithFundingRateFactor(resolvedVault.FundingRateFactor),
		vault.WithMarginFee(resolvedVault.MarginFee),
		vault.WithLiquidationFee(resolvedVault.LiquidationFee),
		vault.WithMaxLeverage(resolvedVault.MaxLeverage),
		vault.WithMinProfitTime(resolvedVault.MinProfitTime),
	)
	if err != nil {
		return nil, fmt.Errorf("engine: constructing vault: %w", err)
	}
	for _, tc := range cfg.Vault.WhitelistedTokens {
		bps := fixedpoint.New(tc.MinProfitBasisPoints)
		if err := v.SetWhitelistedToken(resolvedVault.Owner, currency.Token(tc.Token), true, bps); err != nil {
			return nil, fmt.Errorf("engine: whitelisting %s: %w", tc.Token, err)
		}
	}

	ob, err := orderbook.New(orderbookPluginID, v, feed, ledger)
	if err != nil {
		return nil, fmt.Errorf("engine: constructing orderbook: %w", err)
	}
	if err := v.SetPlugin(resolvedVault.Owner, orderbookPluginID, true); err != nil {
		return nil, fmt.Errorf("engine: registering orderbook plugin: %w", err)
	}

	m, err := market.New(resolvedVault.Owner, marketPluginID, v, ledger, func() int64 { return time.Now().Unix() })
	if err != nil {
		return nil, fmt.Errorf("engine: constructing market: %w", err)
	}
	if err := m.SetMaxTimeDelay(resolvedVault.Owner, cfg.Market.MaxTimeDelay); err != nil {
		return nil, fmt.Errorf("engine: setting max time delay: %w", err)
	}
	if err := v.SetPlugin(resolvedVault.Owner, marketPluginID, true); err != nil {
		return nil, fmt.Errorf("engine: registering market plugin: %w", err)
	}

	glp, err := glpmanager.New(v)
	if err != nil {
		return nil, fmt.Errorf("engine: constructing glpmanager: %w", err)
	}

	e := &Engine{
		Config:        cfg,
		Vault:         v,
		OrderBook:     ob,
		Market:        m,
		PriceFeed:     feed,
		GLPManager:    glp,
		Ledger:        ledger,
		knownAccounts: make(map[string]struct{}),
	}

	mux := dispatch.GetNewMux(dispatch.GetDispatcher())
	e.mux = mux
	if err := e.wireEventSinks(); err != nil {
		return nil, err
	}

	return e, nil
}

// wireEventSinks reserves one dispatch subscription per collaborator and
// wires it as that collaborator's EventSink, so REST/WS layers can Subscribe
// to Vault/OrderBook/Market activity without those packages knowing about
// dispatch directly.
func (e *Engine) wireEventSinks() error {
	vaultTopic, err := e.mux.GetID()
	if err != nil {
		return fmt.Errorf("engine: reserving vault event topic: %w", err)
	}
	e.Vault.SetEventSink(e.mux, vaultTopic)

	obTopic, err := e.mux.GetID()
	if err != nil {
		return fmt.Errorf("engine: reserving orderbook event topic: %w", err)
	}
	e.OrderBook.SetEventSink(e.mux, obTopic)

	marketTopic, err := e.mux.GetID()
	if err != nil {
		return fmt.Errorf("engine: reserving market event topic: %w", err)
	}
	e.Market.SetEventSink(e.mux, marketTopic)

	e.topics = []uuid.UUID{vaultTopic, obTopic, marketTopic}
	return nil
}

// Topics returns the dispatch subscription IDs carrying Vault, OrderBook
// and Market lifecycle events, in that order — what engine/stream
// subscribes a WebSocket broadcaster to.
func (e *Engine) Topics() []uuid.UUID { return e.topics }

// Mux exposes the engine's dispatch.Mux so the stream package can subscribe
// WebSocket clients to it.
func (e *Engine) Mux() *dispatch.Mux { return e.mux }

// OpenAuditLog opens (or creates) the SQLite-backed audit log named by
// cfg.Database and runs its migration. Safe to skip in tests that have no
// durable-storage requirement.
func (e *Engine) OpenAuditLog() error {
	if e.Config.Database.Driver != database.DBSQLite3 && e.Config.Database.Driver != database.DBSQLite {
		return fmt.Errorf("engine: unsupported database driver %q", e.Config.Database.Driver)
	}
	instance, err := sqlite3.Connect(e.Config.Database.DataSource)
	if err != nil {
		return fmt.Errorf("engine: opening audit log: %w", err)
	}
	database.DB = instance
	if err := database.DB.SetConfig(&database.Config{Enabled: true, Driver: database.DBSQLite3}); err != nil {
		return err
	}
	database.DB.SetConnected(true)
	if err := repository.Migrate(database.DB.SQL); err != nil {
		return fmt.Errorf("engine: migrating audit log: %w", err)
	}
	return nil
}
