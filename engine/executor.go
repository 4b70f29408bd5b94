package engine

import (
	"context"
	"errors"
	"time"

	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/common/log"
	"github.com/thrasher-corp/perpvault/market"
	"github.com/thrasher-corp/perpvault/orderbook"
)

var executorLog = log.NewSubLogger("Executor")

// StartExecutor launches the off-chain executor loop described in §2's
// data flow: a ticking goroutine that scans OrderBook for triggerable
// conditional orders and Market for non-expired delayed requests, calling
// their executor entries. It is idempotent — calling it twice is a no-op
// until the first loop is stopped.
func (e *Engine) StartExecutor(ctx context.Context) {
	e.executorMu.Lock()
	defer e.executorMu.Unlock()
	if e.executorRunning {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	e.executorCancel = cancel
	e.executorRunning = true

	interval := e.Config.Executor.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	go e.runExecutor(loopCtx, interval)
}

// StopExecutor cancels the running executor loop. Safe to call when no
// loop is running.
func (e *Engine) StopExecutor() {
	e.executorMu.Lock()
	defer e.executorMu.Unlock()
	if !e.executorRunning {
		return
	}
	e.executorCancel()
	e.executorRunning = false
}

func (e *Engine) runExecutor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.executeOnce(ctx)
		}
	}
}

// executeOnce runs a single pass over every pending order and request.
// Tests in this package call it directly for deterministic single-tick
// behaviour instead of waiting on the poll interval.
func (e *Engine) executeOnce(ctx context.Context) {
	e.scanOrderBook(ctx)
	e.scanMarket(ctx)
}

func (e *Engine) scanOrderBook(ctx context.Context) {
	for _, ref := range e.OrderBook.PendingIncreaseOrders() {
		if err := e.OrderBook.ExecuteIncreaseOrder(ctx, ref.Account, ref.Index); err != nil {
			if !errors.Is(err, orderbook.ErrInvalidPriceForExecution) {
				executorLog.Warnf("execute increase order %s/%d: %v", ref.Account, ref.Index, err)
			}
		}
	}
	for _, ref := range e.OrderBook.PendingDecreaseOrders() {
		if err := e.OrderBook.ExecuteDecreaseOrder(ctx, ref.Account, ref.Index); err != nil {
			if !errors.Is(err, orderbook.ErrInvalidPriceForExecution) {
				executorLog.Warnf("execute decrease order %s/%d: %v", ref.Account, ref.Index, err)
			}
		}
	}
}

func (e *Engine) scanMarket(ctx context.Context) {
	for _, k := range e.Market.PendingIncreaseKeys() {
		if err := e.Market.ExecuteIncreasePosition(ctx, k); err != nil {
			e.reapExpiredIncrease(k, err)
		}
	}
	for _, k := range e.Market.PendingDecreaseKeys() {
		if err := e.Market.ExecuteDecreasePosition(ctx, k); err != nil {
			e.reapExpiredDecrease(k, err)
		}
	}
}

// reapExpiredIncrease cancels a request the executor found expired, since
// nothing else will ever execute it and the creator deserves their escrow
// back (§4.4: "Expired requests may be executed by no one; they may still
// be cancelled").
func (e *Engine) reapExpiredIncrease(k key.Request, cause error) {
	if !errors.Is(cause, market.ErrRequestExpired) {
		executorLog.Warnf("execute increase request %x: %v", k, cause)
		return
	}
	if _, ok := e.Market.IncreaseRequestAt(k); !ok {
		return
	}
	if err := e.Market.CancelIncreasePosition(k); err != nil {
		executorLog.Warnf("reap expired increase request %x: %v", k, err)
	}
}

func (e *Engine) reapExpiredDecrease(k key.Request, cause error) {
	if !errors.Is(cause, market.ErrRequestExpired) {
		executorLog.Warnf("execute decrease request %x: %v", k, cause)
		return
	}
	if _, ok := e.Market.DecreaseRequestAt(k); !ok {
		return
	}
	if err := e.Market.CancelDecreasePosition(k); err != nil {
		executorLog.Warnf("reap expired decrease request %x: %v", k, err)
	}
}
