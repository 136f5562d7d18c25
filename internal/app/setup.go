package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/parityarb/xvenue-arb/internal/arbitrage"
	"github.com/parityarb/xvenue-arb/internal/circuitbreaker"
	"github.com/parityarb/xvenue-arb/internal/execution"
	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/internal/gateway/vrpc"
	"github.com/parityarb/xvenue-arb/internal/gateway/vstream"
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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	mappings, err := loadSymbolMappings(cfg.SymbolMappingPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load symbol mappings: %w", err)
	}
	execCfg, err := loadExecutionConfig(cfg.ExecutionConfigPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load execution config: %w", err)
	}

	feeCfg, err := parseFees(cfg.Fees)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parse fee config: %w", err)
	}

	l, err := setupLedger(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ledger: %w", err)
	}

	healthChecker := healthprobe.New()

	cooldown, err := setupCooldownCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cooldown cache: %w", err)
	}

	maxCapital, err := decimalField("max_capital_per_market", execCfg.MaxCapitalPerMarket)
	if err != nil {
		cancel()
		return nil, err
	}
	minNetProfit, err := decimalField("min_net_profit", execCfg.MinNetProfit)
	if err != nil {
		cancel()
		return nil, err
	}

	gate := sizing.New(sizing.Config{
		MaxStaleSeconds:      execCfg.MaxStaleSeconds,
		MaxCapitalPerMarket:  maxCapital,
		MaxContractsPerEvent: execCfg.MaxContractsPerEvent,
		MinNetProfit:         minNetProfit,
		StreamRate:           feeCfg.streamRate,
		RPCPerContractFee:    feeCfg.rpcPerContractFee,
		SlippagePerContract:  feeCfg.slippageBuffer,
		Cooldown:             cooldown,
		CooldownPeriod:       secondsToDuration(execCfg.CooldownSeconds),
	}, l)

	opps := newOpportunityQueue()
	obManager := setupOrderbookManager(logger, feeCfg, opps)

	streamGW := vstream.New(vstream.Config{
		WSURL:                 cfg.Stream.WSURL,
		RESTBaseURL:           cfg.Stream.RESTBaseURL,
		APIKey:                cfg.Stream.APIKey,
		DialTimeout:           cfg.Stream.DialTimeout,
		PongTimeout:           cfg.Stream.PongTimeout,
		PingInterval:          cfg.Stream.PingInterval,
		ReconnectInitialDelay: cfg.Stream.ReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.Stream.ReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.Stream.ReconnectBackoffMult,
		EventBufferSize:       cfg.Stream.EventBufferSize,
		Logger:                logger,
	})
	rpcGW := vrpc.New(vrpc.Config{
		BaseURL:         cfg.RPC.BaseURL,
		APIKey:          cfg.RPC.APIKey,
		PollInterval:    cfg.RPC.PollInterval,
		RequestsPerSec:  cfg.RPC.RequestsPerSec,
		Burst:           cfg.RPC.Burst,
		EventBufferSize: cfg.RPC.EventBufferSize,
		Logger:          logger,
	})

	var breaker *circuitbreaker.BalanceCircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		breaker, err = circuitbreaker.New(&circuitbreaker.Config{
			CheckInterval:   cfg.CircuitBreaker.CheckInterval,
			TradeMultiplier: cfg.CircuitBreaker.TradeMultiplier,
			MinAbsolute:     cfg.CircuitBreaker.MinAbsolute,
			HysteresisRatio: cfg.CircuitBreaker.HysteresisRatio,
			Ledger:          l,
			Logger:          logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("create circuit breaker: %w", err)
		}
	}

	sessionID := uuid.NewString()
	store, err := setupStorage(cfg, sessionID, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	var executor *execution.Executor
	var execCh chan *types.Opportunity
	if execCfg.Mode == types.ModeLive {
		hedgePrice, hpErr := decimalField("execution.hedge_price", cfg.Execution.HedgePrice)
		if hpErr != nil {
			cancel()
			return nil, hpErr
		}
		execCh = make(chan *types.Opportunity, 64)
		executor = execution.New(execution.Config{
			Gateways: map[types.Venue]gateway.Gateway{
				types.VenueStream: streamGW,
				types.VenueRPC:    rpcGW,
			},
			Ledger:         l,
			CircuitBreaker: breaker,
			Sink:           store,
			Logger:         logger,
			PollInterval:   cfg.Execution.PollInterval,
			LegTimeout:     cfg.Execution.LegTimeout,
			HedgePrice:     hedgePrice,
			HedgeTimeout:   cfg.Execution.HedgeTimeout,
		})
	} else {
		logger.Info("executor-disabled-dry-mode",
			zap.String("mode", string(execCfg.Mode)),
			zap.String("note", "opportunities will be detected, sized and logged only"))
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		HealthChecker:    healthChecker,
		OrderbookManager: obManager,
		CircuitBreaker:   breaker,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		streamGateway: streamGW,
		rpcGateway:    rpcGW,
		symbolTable:   normalize.NewSymbolTable(mappings),
		assemblers: map[types.Venue]*normalize.Assembler{
			types.VenueStream: normalize.NewAssembler(types.VenueStream),
			types.VenueRPC:    normalize.NewAssembler(types.VenueRPC),
		},
		obManager: obManager,
		opps:      opps,
		gate:      gate,
		ledger:    l,
		breaker:   breaker,
		executor:  executor,
		store:     store,
		cooldown:  cooldown,
		execCh:    execCh,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func setupLedger(cfg *config.Config) (*ledger.Ledger, error) {
	streamBalance, err := decimal.NewFromString(cfg.InitialBalanceStream)
	if err != nil {
		return nil, fmt.Errorf("parse initial_balance_stream: %w", err)
	}
	rpcBalance, err := decimal.NewFromString(cfg.InitialBalanceRPC)
	if err != nil {
		return nil, fmt.Errorf("parse initial_balance_rpc: %w", err)
	}

	return ledger.New(map[types.Venue]*ledger.CapitalAccount{
		types.VenueStream: ledger.NewAccount(types.VenueStream, streamBalance),
		types.VenueRPC:    ledger.NewAccount(types.VenueRPC, rpcBalance),
	}), nil
}

func setupCooldownCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupOrderbookManager(logger *zap.Logger, fees feeRates, opps *queue.BoundedEventQueue[*types.Opportunity]) *orderbook.Manager {
	return orderbook.New(logger, arbitrage.Config{
		StreamRate:        fees.streamRate,
		RPCPerContractFee: fees.rpcPerContractFee,
		SlippageBuffer:    fees.slippageBuffer,
		MinProfit:         fees.minProfit,
	}, opps)
}

func setupStorage(cfg *config.Config, sessionID string, logger *zap.Logger) (storage.Storage, error) {
	if cfg.Storage.Mode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:      cfg.Storage.Postgres.Host,
			Port:      cfg.Storage.Postgres.Port,
			User:      cfg.Storage.Postgres.User,
			Password:  cfg.Storage.Postgres.Password,
			Database:  cfg.Storage.Postgres.Database,
			SSLMode:   cfg.Storage.Postgres.SSLMode,
			SessionID: sessionID,
			Logger:    logger,
		})
	}
	return storage.NewConsoleStorage(sessionID, logger), nil
}

type feeRates struct {
	streamRate        decimal.Decimal
	rpcPerContractFee decimal.Decimal
	slippageBuffer    decimal.Decimal
	minProfit         decimal.Decimal
}

func parseFees(cfg config.FeeConfig) (feeRates, error) {
	streamRate, err := decimal.NewFromString(cfg.StreamRate)
	if err != nil {
		return feeRates{}, fmt.Errorf("parse fees.stream_rate: %w", err)
	}
	rpcFee, err := decimal.NewFromString(cfg.RPCPerContractFee)
	if err != nil {
		return feeRates{}, fmt.Errorf("parse fees.rpc_per_contract_fee: %w", err)
	}
	slippage := decimal.Zero
	if cfg.SlippageBuffer != "" {
		slippage, err = decimal.NewFromString(cfg.SlippageBuffer)
		if err != nil {
			return feeRates{}, fmt.Errorf("parse fees.slippage_buffer: %w", err)
		}
	}
	minProfit := decimal.Zero
	if cfg.MinProfit != "" {
		minProfit, err = decimal.NewFromString(cfg.MinProfit)
		if err != nil {
			return feeRates{}, fmt.Errorf("parse fees.min_profit: %w", err)
		}
	}
	return feeRates{streamRate: streamRate, rpcPerContractFee: rpcFee, slippageBuffer: slippage, minProfit: minProfit}, nil
}

func decimalField(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s %q: %w", name, s, err)
	}
	return d, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func newOpportunityQueue() *queue.BoundedEventQueue[*types.Opportunity] {
	return queue.New[*types.Opportunity](256, queue.DropOldest)
}

func loadSymbolMappings(path string) ([]types.SymbolMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mappings []types.SymbolMapping
	if err := json.Unmarshal(raw, &mappings); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return mappings, nil
}

func loadExecutionConfig(path string) (types.ExecutionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.ExecutionConfig{}, err
	}
	var cfg types.ExecutionConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return types.ExecutionConfig{}, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
