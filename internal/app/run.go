package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("mode", string(a.cfg.Mode)),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	time.Sleep(100 * time.Millisecond)

	if err := a.streamGateway.Connect(a.ctx); err != nil {
		return err
	}
	if err := a.rpcGateway.Connect(a.ctx); err != nil {
		return err
	}

	marketIDs := a.symbolTable.NativeIDs()
	if err := a.streamGateway.Subscribe(a.ctx, marketIDs[types.VenueStream]); err != nil {
		return err
	}
	if err := a.rpcGateway.Subscribe(a.ctx, marketIDs[types.VenueRPC]); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.runReceiveLoop(a.streamGateway)
	a.wg.Add(1)
	go a.runReceiveLoop(a.rpcGateway)

	a.wg.Add(1)
	go a.runGatePipeline()

	a.wg.Add(1)
	go a.runSnapshotSweeper()

	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	if a.executor != nil {
		a.wg.Add(1)
		go a.runExecutor()
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runReceiveLoop pulls raw events off one venue gateway, normalizes and
// assembles them into full ticks, and feeds the Central Order Book.
func (a *App) runReceiveLoop(gw gateway.Gateway) {
	defer a.wg.Done()

	venue := gw.Venue()
	assembler := a.assemblers[venue]

	for {
		ev, err := gw.Receive(a.ctx)
		if err != nil {
			if errors.Is(err, a.ctx.Err()) {
				return
			}
			a.logger.Warn("gateway-receive-error", zap.String("venue", string(venue)), zap.Error(err))
			continue
		}

		half, ok := normalizeEvent(ev, a.symbolTable)
		if !ok {
			continue
		}

		tick, ready := assembler.Ingest(half)
		if !ready {
			continue
		}

		a.obManager.Update(tick)
	}
}

// runGatePipeline drains detected opportunities off the order book's queue,
// applies the Opportunity Gate, persists every accepted one, and in live
// mode (execCh set) also forwards it to the executor.
func (a *App) runGatePipeline() {
	defer a.wg.Done()
	defer func() {
		if a.execCh != nil {
			close(a.execCh)
		}
	}()

	for {
		opp, ok := a.opps.Get(a.ctx)
		if !ok {
			return
		}

		tickA, tickB, ok := a.latestTicks(opp.Symbol)
		if !ok {
			continue
		}

		sized, reason := a.gate.Evaluate(opp, tickA, tickB, time.Now())
		if reason != "" {
			a.logger.Debug("opportunity-rejected", zap.String("symbol", opp.Symbol), zap.String("reason", string(reason)))
			continue
		}

		if err := a.store.RecordOpportunity(a.ctx, *sized); err != nil {
			a.logger.Error("opportunity-persist-failed", zap.Error(err))
		}

		if a.execCh != nil {
			select {
			case a.execCh <- sized:
			case <-a.ctx.Done():
				return
			}
		}
	}
}

func (a *App) latestTicks(symbol string) (types.NormalizedTick, types.NormalizedTick, bool) {
	book, ok := a.obManager.Snapshot(symbol)
	if !ok || book.Stream == nil || book.RPC == nil {
		return types.NormalizedTick{}, types.NormalizedTick{}, false
	}
	return *book.Stream, *book.RPC, true
}

func (a *App) runExecutor() {
	defer a.wg.Done()
	a.executor.Run(a.ctx, a.execCh)
}

// runSnapshotSweeper periodically records the current parity gap for every
// tracked symbol, independent of whether an opportunity fired.
func (a *App) runSnapshotSweeper() {
	defer a.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.sweepSnapshots()
		}
	}
}

func (a *App) sweepSnapshots() {
	for _, symbol := range a.obManager.AllSymbols() {
		book, ok := a.obManager.Snapshot(symbol)
		if !ok || book.Stream == nil || book.RPC == nil {
			continue
		}
		snap := buildSnapshot(symbol, *book.Stream, *book.RPC)
		if err := a.store.RecordSnapshot(a.ctx, snap); err != nil {
			a.logger.Error("snapshot-persist-failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
