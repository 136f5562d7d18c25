package storage

import (
	"context"
	"fmt"

	"github.com/parityarb/xvenue-arb/pkg/types"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console. Useful
// for the paper-trading mode where there is no database to stand up.
type ConsoleStorage struct {
	sessionID string
	logger    *zap.Logger
}

// NewConsoleStorage creates a console storage tagging every row with
// sessionID.
func NewConsoleStorage(sessionID string, logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized", zap.String("session_id", sessionID))
	return &ConsoleStorage{sessionID: sessionID, logger: logger}
}

// RecordOpportunity pretty-prints a detected opportunity to console.
func (c *ConsoleStorage) RecordOpportunity(ctx context.Context, opp types.Opportunity) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ARBITRAGE OPPORTUNITY DETECTED  [%s]\n", c.sessionID[:8])
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", opp.ID)
	fmt.Printf("Symbol:   %s\n", opp.Symbol)
	fmt.Printf("Time:     %s\n", opp.Ts.Format("2006-01-02 15:04:05"))
	fmt.Printf("Leg A:    %s %s @ %s\n", opp.LegA.Venue, opp.LegA.Side, opp.LegA.Price.StringFixed(4))
	fmt.Printf("Leg B:    %s %s @ %s\n", opp.LegB.Venue, opp.LegB.Side, opp.LegB.Price.StringFixed(4))
	fmt.Printf("Quantity: %d\n", opp.Quantity)
	fmt.Println("  ───────────────────────────────")
	fmt.Printf("  Gross Profit:  %s\n", opp.GrossProfit.StringFixed(4))
	fmt.Printf("  Fees (A+B):    %s\n", opp.FeeA.Add(opp.FeeB).StringFixed(4))
	fmt.Printf("  Slippage buf:  %s\n", opp.SlippageBuffer.StringFixed(4))
	fmt.Printf("  Net Profit:    %s\n", opp.NetProfit.StringFixed(4))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	return nil
}

// RecordExecution pretty-prints a terminal execution result to console.
func (c *ConsoleStorage) RecordExecution(ctx context.Context, result types.ExecutionResult) error {
	fmt.Println("\n" + "──────────────────────────────────────────────────────────────────────")
	fmt.Printf("EXECUTION %s  outcome=%s\n", result.OpportunityID, result.Outcome)
	fmt.Printf("  Symbol:       %s\n", result.Symbol)
	fmt.Printf("  Leg A:        %s %s qty=%d status=%s fill=%s\n",
		result.LegA.Venue, result.LegA.Side, result.LegA.FillQty, result.LegA.Status, result.LegA.FillPrice.StringFixed(4))
	fmt.Printf("  Leg B:        %s %s qty=%d status=%s fill=%s\n",
		result.LegB.Venue, result.LegB.Side, result.LegB.FillQty, result.LegB.Status, result.LegB.FillPrice.StringFixed(4))
	if result.Hedge != nil {
		fmt.Printf("  Hedge:        %s %s qty=%d status=%s filled=%t\n",
			result.Hedge.Venue, result.Hedge.Side, result.Hedge.FillQty, result.Hedge.Status, result.Hedge.Filled)
	}
	fmt.Printf("  Net Profit:   %s\n", result.NetProfit.StringFixed(4))
	if result.ManualIntervention {
		fmt.Printf("  ⚠ MANUAL INTERVENTION REQUIRED: %s\n", result.Error)
	} else if result.Error != "" {
		fmt.Printf("  Error:        %s\n", result.Error)
	}
	fmt.Println("──────────────────────────────────────────────────────────────────────")
	return nil
}

// RecordSnapshot logs a periodic spread snapshot at debug level rather than
// printing it, since snapshots fire far more often than trades.
func (c *ConsoleStorage) RecordSnapshot(ctx context.Context, snap types.SpreadSnapshot) error {
	c.logger.Debug("spread-snapshot",
		zap.String("symbol", snap.Symbol),
		zap.Time("taken_at", snap.TakenAt),
		zap.String("venue_a_sum", snap.VenueASum.StringFixed(4)),
		zap.String("venue_b_sum", snap.VenueBSum.StringFixed(4)),
		zap.String("parity_gap_a", snap.ParityGapA.StringFixed(4)),
		zap.String("parity_gap_b", snap.ParityGapB.StringFixed(4)))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

var _ Storage = (*ConsoleStorage)(nil)
