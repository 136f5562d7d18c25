// Package app wires the gateways, order book, sizing gate, executor,
// storage and HTTP surface into one running process. Grounded on the
// teacher's App orchestrator shape (a struct holding every long-lived
// component plus a cancel-context and WaitGroup, split across app.go,
// setup.go, run.go and shutdown.go), generalized from one venue's
// websocket pool and discovery service to two independent venue gateways
// feeding a shared symbol table.
package app

import (
	"context"
	"sync"

	"github.com/parityarb/xvenue-arb/internal/circuitbreaker"
	"github.com/parityarb/xvenue-arb/internal/execution"
	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/internal/ledger"
	"github.com/parityarb/xvenue-arb/internal/normalize"
	"github.com/parityarb/xvenue-arb/internal/orderbook"
	"github.com/parityarb/xvenue-arb/internal/sizing"
	"github.com/parityarb/xvenue-arb/internal/storage"
	"github.com/parityarb/xvenue-arb/pkg/cache"
	"github.com/parityarb/xvenue-arb/pkg/config"
	"github.com/parityarb/xvenue-arb/pkg/healthprobe"
	"github.com/parityarb/xvenue-arb/pkg/httpserver"
	"github.com/parityarb/xvenue-arb/pkg/queue"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	streamGateway gateway.Gateway
	rpcGateway    gateway.Gateway
	symbolTable   *normalize.SymbolTable
	assemblers    map[types.Venue]*normalize.Assembler

	obManager *orderbook.Manager
	opps      *queue.BoundedEventQueue[*types.Opportunity]
	gate      *sizing.Gate
	ledger    *ledger.Ledger
	breaker   *circuitbreaker.BalanceCircuitBreaker
	executor  *execution.Executor
	store     storage.Storage
	cooldown  cache.Cache

	execCh chan *types.Opportunity

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
