package vrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parityarb/xvenue-arb/internal/gateway"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testGatewayAgainst(srv *httptest.Server) *Gateway {
	return New(Config{
		BaseURL:         srv.URL,
		PollInterval:    10 * time.Millisecond,
		RequestsPerSec:  1000,
		Burst:           10,
		EventBufferSize: 16,
		Logger:          zap.NewNop(),
	})
}

func TestPollOnce_EmitsBothSidesAsSeparateEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(quoteResponse{
			MarketID: "MKT-1",
			YesAsk:   "0.55", YesAskSize: "100",
			NoAsk: "0.40", NoAskSize: "90",
			AsOf: "2026-01-01T00:00:00Z",
		})
	}))
	defer srv.Close()

	g := testGatewayAgainst(srv)
	require.NoError(t, g.Subscribe(context.Background(), []string{"MKT-1"}))

	g.ctx = context.Background()
	g.pollOnce()

	ev1 := <-g.events
	ev2 := <-g.events

	assert.Equal(t, types.VenueRPC, ev1.Venue)
	assert.Equal(t, "MKT-1", ev1.Symbol)
	assert.ElementsMatch(t, []types.Side{types.SideYes, types.SideNo}, []types.Side{ev1.Side, ev2.Side})
}

func TestPollMarket_HTTPErrorDoesNotEmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := testGatewayAgainst(srv)
	g.ctx = context.Background()
	g.pollMarket("MKT-1")

	select {
	case ev := <-g.events:
		t.Fatalf("expected no event on HTTP error, got %+v", ev)
	default:
	}
}

func TestSubscribeUnsubscribe_TracksSet(t *testing.T) {
	g := New(Config{BaseURL: "http://example.invalid", PollInterval: time.Second, RequestsPerSec: 1, Burst: 1, Logger: zap.NewNop()})

	require.NoError(t, g.Subscribe(context.Background(), []string{"A", "B"}))
	g.mu.RLock()
	assert.Len(t, g.subscribed, 2)
	g.mu.RUnlock()

	require.NoError(t, g.Unsubscribe(context.Background(), []string{"A"}))
	g.mu.RLock()
	_, stillThere := g.subscribed["A"]
	g.mu.RUnlock()
	assert.False(t, stillThere)
}

func TestPlaceOrder_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(orderResponse{OrderID: "ord-9", Status: "open"})
	}))
	defer srv.Close()

	g := testGatewayAgainst(srv)
	handle, err := g.PlaceOrder(context.Background(), "MKT-1", types.SideYes, 10, decimal.RequireFromString("0.55"))
	require.NoError(t, err)
	assert.Equal(t, "ord-9", handle.OrderID)
	assert.Equal(t, types.OrderOpen, handle.Status)
}

var _ gateway.Gateway = (*Gateway)(nil)
