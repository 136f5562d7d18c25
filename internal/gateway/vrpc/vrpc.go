// Package vrpc implements the request/reply venue gateway: a venue that
// exposes no streaming feed, so market data is obtained by polling a REST
// endpoint on a fixed interval through a resty client, with a token-bucket
// limiter bounding the poll rate.
package vrpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/relvacode/iso8601"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the connection parameters for a V-RPC gateway.
type Config struct {
	BaseURL         string
	APIKey          string
	PollInterval    time.Duration
	RequestsPerSec  float64
	Burst           int
	EventBufferSize int
	Logger          *zap.Logger
}

// quoteResponse is one market's current NO and YES quotes as returned by
// the venue's polling endpoint.
type quoteResponse struct {
	MarketID   string `json:"market_id"`
	YesAsk     string `json:"yes_ask"`
	YesAskSize string `json:"yes_ask_size"`
	YesBid     string `json:"yes_bid"`
	YesBidSize string `json:"yes_bid_size"`
	NoAsk      string `json:"no_ask"`
	NoAskSize  string `json:"no_ask_size"`
	NoBid      string `json:"no_bid"`
	NoBidSize  string `json:"no_bid_size"`
	AsOf       string `json:"as_of"` // RFC3339/ISO8601
}

// Gateway implements gateway.Gateway by polling a REST API at a bounded
// rate instead of consuming a push feed.
type Gateway struct {
	cfg     Config
	logger  *zap.Logger
	rest    *resty.Client
	limiter *rate.Limiter

	mu         sync.RWMutex
	subscribed map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	events chan gateway.RawEvent
}

// New creates a V-RPC gateway.
func New(cfg Config) *Gateway {
	return &Gateway{
		cfg:        cfg,
		logger:     cfg.Logger,
		rest:       resty.New().SetBaseURL(cfg.BaseURL).SetHeader("Authorization", "Bearer "+cfg.APIKey).SetTimeout(10 * time.Second),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		subscribed: make(map[string]bool),
		events:     make(chan gateway.RawEvent, cfg.EventBufferSize),
	}
}

func (g *Gateway) Venue() types.Venue { return types.VenueRPC }

// Connect starts the poll loop. There is no persistent connection to
// establish; "connected" means the loop is running.
func (g *Gateway) Connect(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.wg.Add(1)
	go g.pollLoop()
	return nil
}

func (g *Gateway) Disconnect(_ context.Context) error {
	if g.cancel != nil {
		g.cancel()
	}
	g.wg.Wait()
	return nil
}

func (g *Gateway) Subscribe(_ context.Context, marketIDs []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range marketIDs {
		g.subscribed[id] = true
	}
	subscriptionsActive.Set(float64(len(g.subscribed)))
	return nil
}

func (g *Gateway) Unsubscribe(_ context.Context, marketIDs []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range marketIDs {
		delete(g.subscribed, id)
	}
	subscriptionsActive.Set(float64(len(g.subscribed)))
	return nil
}

func (g *Gateway) Receive(ctx context.Context) (gateway.RawEvent, error) {
	select {
	case ev, ok := <-g.events:
		if !ok {
			return gateway.RawEvent{}, fmt.Errorf("vrpc: event stream closed")
		}
		return ev, nil
	case <-ctx.Done():
		return gateway.RawEvent{}, ctx.Err()
	}
}

// pollLoop walks the subscribed market set once per PollInterval, rate
// limited independently of the tick interval so a large market set never
// bursts past the venue's request budget.
func (g *Gateway) pollLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			g.pollOnce()
		}
	}
}

func (g *Gateway) pollOnce() {
	g.mu.RLock()
	ids := make([]string, 0, len(g.subscribed))
	for id := range g.subscribed {
		ids = append(ids, id)
	}
	g.mu.RUnlock()

	for _, id := range ids {
		if err := g.limiter.Wait(g.ctx); err != nil {
			return
		}
		g.pollMarket(id)
	}
}

func (g *Gateway) pollMarket(marketID string) {
	var out quoteResponse
	resp, err := g.rest.R().SetContext(g.ctx).SetResult(&out).Get("/quotes/" + marketID)
	if err != nil {
		pollErrorsTotal.Inc()
		g.logger.Warn("vrpc-poll-error", zap.String("market", marketID), zap.Error(err))
		return
	}
	if resp.IsError() {
		pollErrorsTotal.Inc()
		g.logger.Warn("vrpc-poll-http-error", zap.String("market", marketID), zap.Int("status", resp.StatusCode()))
		return
	}

	asOf := parseISO8601(out.AsOf)
	polledTotal.Inc()

	g.emit(gateway.RawEvent{
		Kind: gateway.EventTick, Venue: types.VenueRPC, Symbol: marketID, Side: types.SideYes,
		Ask: parseDecimal(out.YesAsk), AskSize: parseDecimal(out.YesAskSize),
		Bid: parseDecimal(out.YesBid), BidSize: parseDecimal(out.YesBidSize),
		VenueTime: asOf,
	})
	g.emit(gateway.RawEvent{
		Kind: gateway.EventTick, Venue: types.VenueRPC, Symbol: marketID, Side: types.SideNo,
		Ask: parseDecimal(out.NoAsk), AskSize: parseDecimal(out.NoAskSize),
		Bid: parseDecimal(out.NoBid), BidSize: parseDecimal(out.NoBidSize),
		VenueTime: asOf,
	})
}

func (g *Gateway) emit(ev gateway.RawEvent) {
	select {
	case g.events <- ev:
	default:
		g.logger.Warn("vrpc-event-buffer-full", zap.String("symbol", ev.Symbol))
	}
}

type orderRequest struct {
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
	Qty      int64  `json:"qty"`
	Price    string `json:"limit_price"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (g *Gateway) PlaceOrder(ctx context.Context, marketID string, side types.Side, qty int64, limitPrice decimal.Decimal) (gateway.OrderHandle, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return gateway.OrderHandle{}, err
	}

	var out orderResponse
	resp, err := g.rest.R().
		SetContext(ctx).
		SetBody(orderRequest{MarketID: marketID, Side: string(side), Qty: qty, Price: limitPrice.String()}).
		SetResult(&out).
		Post("/orders")
	if err != nil {
		return gateway.OrderHandle{}, fmt.Errorf("vrpc place order: %w", err)
	}
	if resp.IsError() {
		return gateway.OrderHandle{}, fmt.Errorf("vrpc place order: http %d: %s", resp.StatusCode(), resp.String())
	}
	return gateway.OrderHandle{OrderID: out.OrderID, Status: parseOrderStatus(out.Status)}, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID string) (types.OrderStatus, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	var out orderResponse
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Delete("/orders/" + orderID)
	if err != nil {
		return "", fmt.Errorf("vrpc cancel order: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("vrpc cancel order: http %d: %s", resp.StatusCode(), resp.String())
	}
	return parseOrderStatus(out.Status), nil
}

func (g *Gateway) GetOrder(ctx context.Context, orderID string) (gateway.OrderState, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return gateway.OrderState{}, err
	}
	var out struct {
		Status    string `json:"status"`
		FilledQty int64  `json:"filled_qty"`
		FillPrice string `json:"fill_price"`
	}
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Get("/orders/" + orderID)
	if err != nil {
		return gateway.OrderState{}, fmt.Errorf("vrpc get order: %w", err)
	}
	if resp.IsError() {
		return gateway.OrderState{}, fmt.Errorf("vrpc get order: http %d: %s", resp.StatusCode(), resp.String())
	}
	return gateway.OrderState{
		Status:    parseOrderStatus(out.Status),
		FilledQty: out.FilledQty,
		FillPrice: parseDecimal(out.FillPrice),
	}, nil
}

func (g *Gateway) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}
	var out struct {
		Available string `json:"available_cash"`
	}
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Get("/balance")
	if err != nil {
		return decimal.Zero, fmt.Errorf("vrpc get balance: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("vrpc get balance: http %d: %s", resp.StatusCode(), resp.String())
	}
	return parseDecimal(out.Available), nil
}

func (g *Gateway) GetPositions(ctx context.Context) ([]gateway.Position, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var out []struct {
		MarketID string `json:"market_id"`
		Side     string `json:"side"`
		Qty      int64  `json:"qty"`
	}
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Get("/positions")
	if err != nil {
		return nil, fmt.Errorf("vrpc get positions: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vrpc get positions: http %d: %s", resp.StatusCode(), resp.String())
	}

	positions := make([]gateway.Position, 0, len(out))
	for _, p := range out {
		positions = append(positions, gateway.Position{Symbol: p.MarketID, Side: parseSide(p.Side), Qty: p.Qty})
	}
	return positions, nil
}

func parseSide(s string) types.Side {
	if s == string(types.SideNo) {
		return types.SideNo
	}
	return types.SideYes
}

func parseOrderStatus(s string) types.OrderStatus {
	switch types.OrderStatus(s) {
	case types.OrderFilled, types.OrderPartiallyFilled, types.OrderCancelled, types.OrderRejected, types.OrderTimeout:
		return types.OrderStatus(s)
	default:
		return types.OrderOpen
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseISO8601(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	t, err := iso8601.ParseString(s)
	if err != nil {
		return time.Now()
	}
	return t
}
