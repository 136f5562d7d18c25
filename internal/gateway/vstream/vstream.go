package vstream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the connection parameters for a V-Stream gateway.
type Config struct {
	WSURL                 string
	RESTBaseURL           string
	APIKey                string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	EventBufferSize       int
	Logger                *zap.Logger
}

// wireMessage is one entry of the array V-Stream pushes per frame. A venue
// that streams YES and NO as separate messages emits one wireMessage per
// side; the Partial-Tick Assembler downstream reassembles them.
type wireMessage struct {
	EventType   string `json:"event_type"`
	AssetID     string `json:"asset_id"`
	Side        string `json:"side"`
	BestAsk     string `json:"best_ask"`
	BestAskSize string `json:"best_ask_size"`
	BestBid     string `json:"best_bid"`
	BestBidSize string `json:"best_bid_size"`
	Timestamp   string `json:"timestamp"` // unix millis, as a string
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
}

// Gateway implements gateway.Gateway over a persistent WebSocket market-data
// feed plus a REST order-entry API: connect/readLoop/pingLoop/reconnectLoop
// over the socket, with order placement layered on top via a resty client.
type Gateway struct {
	cfg    Config
	logger *zap.Logger
	rest   *resty.Client

	reconnectMgr *ReconnectManager

	mu         sync.RWMutex
	conn       *websocket.Conn
	subscribed map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	events chan gateway.RawEvent

	connected       atomic.Bool
	connectionStart atomic.Int64
}

// New creates a V-Stream gateway. Connect must be called before Receive or
// Subscribe will do anything useful.
func New(cfg Config) *Gateway {
	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Gateway{
		cfg:          cfg,
		logger:       cfg.Logger,
		rest:         resty.New().SetBaseURL(cfg.RESTBaseURL).SetHeader("Authorization", "Bearer "+cfg.APIKey).SetTimeout(10 * time.Second),
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		subscribed:   make(map[string]bool),
		events:       make(chan gateway.RawEvent, cfg.EventBufferSize),
	}
}

func (g *Gateway) Venue() types.Venue { return types.VenueStream }

// Connect dials the WebSocket endpoint and starts the read, ping and
// reconnect loops.
func (g *Gateway) Connect(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)

	if err := g.dial(g.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	g.wg.Add(3)
	go g.readLoop()
	go g.pingLoop()
	go g.reconnectLoop()

	return nil
}

func (g *Gateway) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: g.cfg.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, g.cfg.WSURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error { return nil })

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	g.connected.Store(true)
	g.connectionStart.Store(time.Now().Unix())
	connectedGauge.Set(1)

	g.logger.Info("vstream-connected", zap.String("url", g.cfg.WSURL))
	return nil
}

func (g *Gateway) Disconnect(_ context.Context) error {
	g.logger.Info("vstream-disconnecting")
	if g.cancel != nil {
		g.cancel()
	}

	g.mu.RLock()
	conn := g.conn
	g.mu.RUnlock()
	if conn != nil {
		_ = conn.Close()
	}

	g.wg.Wait()
	connectedGauge.Set(0)
	return nil
}

// Subscribe adds marketIDs to the live subscription set, following the
// teacher's split between the initial subscribe frame and incremental
// subscribe frames once a connection already has active subscriptions.
func (g *Gateway) Subscribe(_ context.Context, marketIDs []string) error {
	if len(marketIDs) == 0 {
		return nil
	}

	g.mu.Lock()
	fresh := make([]string, 0, len(marketIDs))
	for _, id := range marketIDs {
		if !g.subscribed[id] {
			fresh = append(fresh, id)
			g.subscribed[id] = true
		}
	}
	if len(fresh) == 0 {
		g.mu.Unlock()
		return nil
	}
	total := len(g.subscribed)
	initial := total == len(fresh)
	g.mu.Unlock()

	msg := map[string]interface{}{"assets_ids": fresh}
	if initial {
		msg["type"] = "market"
	} else {
		msg["operation"] = "subscribe"
	}

	g.mu.RLock()
	conn := g.conn
	g.mu.RUnlock()
	if conn == nil {
		g.mu.Lock()
		for _, id := range fresh {
			delete(g.subscribed, id)
		}
		g.mu.Unlock()
		return fmt.Errorf("vstream: not connected")
	}

	if err := conn.WriteJSON(msg); err != nil {
		g.mu.Lock()
		for _, id := range fresh {
			delete(g.subscribed, id)
		}
		g.mu.Unlock()
		return fmt.Errorf("write subscribe: %w", err)
	}

	subscriptionsActive.Set(float64(total))
	return nil
}

func (g *Gateway) Unsubscribe(_ context.Context, marketIDs []string) error {
	if len(marketIDs) == 0 {
		return nil
	}

	g.mu.Lock()
	toDrop := make([]string, 0, len(marketIDs))
	for _, id := range marketIDs {
		if g.subscribed[id] {
			toDrop = append(toDrop, id)
			delete(g.subscribed, id)
		}
	}
	remaining := len(g.subscribed)
	g.mu.Unlock()

	if len(toDrop) == 0 {
		return nil
	}

	g.mu.RLock()
	conn := g.conn
	g.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("vstream: not connected")
	}

	msg := map[string]interface{}{"assets_ids": toDrop, "operation": "unsubscribe"}
	if err := conn.WriteJSON(msg); err != nil {
		g.mu.Lock()
		for _, id := range toDrop {
			g.subscribed[id] = true
		}
		g.mu.Unlock()
		return fmt.Errorf("write unsubscribe: %w", err)
	}

	subscriptionsActive.Set(float64(remaining))
	return nil
}

func (g *Gateway) Receive(ctx context.Context) (gateway.RawEvent, error) {
	select {
	case ev, ok := <-g.events:
		if !ok {
			return gateway.RawEvent{}, fmt.Errorf("vstream: event stream closed")
		}
		return ev, nil
	case <-ctx.Done():
		return gateway.RawEvent{}, ctx.Err()
	}
}

func (g *Gateway) readLoop() {
	defer g.wg.Done()

	for {
		select {
		case <-g.ctx.Done():
			return
		default:
		}

		g.mu.RLock()
		conn := g.conn
		g.mu.RUnlock()
		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			g.logger.Warn("vstream-read-error", zap.Error(err))
			g.connected.Store(false)
			connectedGauge.Set(0)
			return
		}

		var msgs []wireMessage
		if err := json.Unmarshal(raw, &msgs); err != nil {
			if len(raw) < 10 {
				messagesReceivedTotal.WithLabelValues("heartbeat").Inc()
				continue
			}
			g.logger.Debug("vstream-unparseable-message", zap.Error(err), zap.Int("bytes", len(raw)))
			continue
		}

		for i := range msgs {
			g.dispatch(msgs[i])
		}
	}
}

func (g *Gateway) dispatch(m wireMessage) {
	ev := gateway.RawEvent{Venue: types.VenueStream, Symbol: m.AssetID, OrderID: m.OrderID}

	switch m.EventType {
	case "order_ack", "order_update":
		ev.Kind = gateway.EventOrderAck
		ev.Status = parseOrderStatus(m.Status)
	case "subscription_ack":
		ev.Kind = gateway.EventSubscriptionAck
	case "heartbeat":
		ev.Kind = gateway.EventHeartbeat
	default:
		ev.Kind = gateway.EventTick
		ev.Side = parseSide(m.Side)
		ev.Ask = parseDecimal(m.BestAsk)
		ev.AskSize = parseDecimal(m.BestAskSize)
		ev.Bid = parseDecimal(m.BestBid)
		ev.BidSize = parseDecimal(m.BestBidSize)
		ev.VenueTime = parseVenueTime(m.Timestamp)
	}

	messagesReceivedTotal.WithLabelValues(m.EventType).Inc()

	select {
	case g.events <- ev:
	default:
		g.logger.Warn("vstream-event-buffer-full", zap.String("symbol", m.AssetID))
	}
}

func (g *Gateway) pingLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			if !g.connected.Load() {
				continue
			}
			g.mu.RLock()
			conn := g.conn
			g.mu.RUnlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				g.logger.Warn("vstream-ping-error", zap.Error(err))
			}
		}
	}
}

func (g *Gateway) reconnectLoop() {
	defer g.wg.Done()

	for {
		select {
		case <-g.ctx.Done():
			return
		default:
		}

		if g.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		g.logger.Warn("vstream-connection-lost")

		if err := g.reconnectMgr.Reconnect(g.ctx, g.dial); err != nil {
			return
		}

		if err := g.resubscribeAll(g.ctx); err != nil {
			g.logger.Error("vstream-resubscribe-failed", zap.Error(err))
			g.connected.Store(false)
			continue
		}

		g.wg.Add(1)
		go g.readLoop()
	}
}

func (g *Gateway) resubscribeAll(_ context.Context) error {
	g.mu.RLock()
	ids := make([]string, 0, len(g.subscribed))
	for id := range g.subscribed {
		ids = append(ids, id)
	}
	conn := g.conn
	g.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}

	return conn.WriteJSON(map[string]interface{}{"assets_ids": ids, "type": "market"})
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
	var out orderResponse
	resp, err := g.rest.R().
		SetContext(ctx).
		SetBody(orderRequest{MarketID: marketID, Side: string(side), Qty: qty, Price: limitPrice.String()}).
		SetResult(&out).
		Post("/orders")
	if err != nil {
		return gateway.OrderHandle{}, fmt.Errorf("vstream place order: %w", err)
	}
	if resp.IsError() {
		return gateway.OrderHandle{}, fmt.Errorf("vstream place order: http %d: %s", resp.StatusCode(), resp.String())
	}
	return gateway.OrderHandle{OrderID: out.OrderID, Status: parseOrderStatus(out.Status)}, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID string) (types.OrderStatus, error) {
	var out orderResponse
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Delete("/orders/" + orderID)
	if err != nil {
		return "", fmt.Errorf("vstream cancel order: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("vstream cancel order: http %d: %s", resp.StatusCode(), resp.String())
	}
	return parseOrderStatus(out.Status), nil
}

func (g *Gateway) GetOrder(ctx context.Context, orderID string) (gateway.OrderState, error) {
	var out struct {
		Status    string `json:"status"`
		FilledQty int64  `json:"filled_qty"`
		FillPrice string `json:"fill_price"`
	}
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Get("/orders/" + orderID)
	if err != nil {
		return gateway.OrderState{}, fmt.Errorf("vstream get order: %w", err)
	}
	if resp.IsError() {
		return gateway.OrderState{}, fmt.Errorf("vstream get order: http %d: %s", resp.StatusCode(), resp.String())
	}
	return gateway.OrderState{
		Status:    parseOrderStatus(out.Status),
		FilledQty: out.FilledQty,
		FillPrice: parseDecimal(out.FillPrice),
	}, nil
}

func (g *Gateway) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Available string `json:"available_cash"`
	}
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Get("/balance")
	if err != nil {
		return decimal.Zero, fmt.Errorf("vstream get balance: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("vstream get balance: http %d: %s", resp.StatusCode(), resp.String())
	}
	return parseDecimal(out.Available), nil
}

func (g *Gateway) GetPositions(ctx context.Context) ([]gateway.Position, error) {
	var out []struct {
		MarketID string `json:"market_id"`
		Side     string `json:"side"`
		Qty      int64  `json:"qty"`
	}
	resp, err := g.rest.R().SetContext(ctx).SetResult(&out).Get("/positions")
	if err != nil {
		return nil, fmt.Errorf("vstream get positions: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("vstream get positions: http %d: %s", resp.StatusCode(), resp.String())
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
	status := types.OrderStatus(strings.ToUpper(s))
	switch status {
	case types.OrderFilled, types.OrderPartiallyFilled, types.OrderCancelled, types.OrderRejected, types.OrderTimeout:
		return status
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

func parseVenueTime(unixMillis string) time.Time {
	if unixMillis == "" {
		return time.Now()
	}
	d, err := decimal.NewFromString(unixMillis)
	if err != nil {
		return time.Now()
	}
	ms := d.IntPart()
	return time.UnixMilli(ms)
}
