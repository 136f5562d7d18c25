package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/parityarb/xvenue-arb/pkg/types"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL. Schema: see
// migrations/0001_init.sql — opportunities, executions, and
// spread_snapshots tables, each carrying a session_id column so that
// multiple runs against the same database stay distinguishable.
type PostgresStorage struct {
	db        *sql.DB
	sessionID string
	logger    *zap.Logger
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	Database  string
	SSLMode   string
	SessionID string
	Logger    *zap.Logger
}

// NewPostgresStorage opens and pings a PostgreSQL connection.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.String("session_id", cfg.SessionID))

	return &PostgresStorage{db: db, sessionID: cfg.SessionID, logger: cfg.Logger}, nil
}

const insertOpportunityQuery = `
	INSERT INTO opportunities (
		session_id, opportunity_id, symbol, detected_at,
		leg_a_venue, leg_a_side, leg_a_price,
		leg_b_venue, leg_b_side, leg_b_price,
		quantity, gross_profit, fee_a, fee_b, slippage_buffer, net_profit
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

// RecordOpportunity persists a detector output row.
func (p *PostgresStorage) RecordOpportunity(ctx context.Context, opp types.Opportunity) error {
	_, err := p.db.ExecContext(ctx, insertOpportunityQuery,
		p.sessionID,
		opp.ID,
		opp.Symbol,
		opp.Ts,
		string(opp.LegA.Venue), string(opp.LegA.Side), opp.LegA.Price.String(),
		string(opp.LegB.Venue), string(opp.LegB.Side), opp.LegB.Price.String(),
		opp.Quantity,
		opp.GrossProfit.String(),
		opp.FeeA.String(),
		opp.FeeB.String(),
		opp.SlippageBuffer.String(),
		opp.NetProfit.String(),
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	p.logger.Debug("opportunity-stored", zap.String("opportunity_id", opp.ID), zap.String("symbol", opp.Symbol))
	return nil
}

const insertExecutionQuery = `
	INSERT INTO executions (
		session_id, opportunity_id, symbol, executed_at,
		leg_a_venue, leg_a_side, leg_a_order_id, leg_a_status, leg_a_fill_price, leg_a_fill_qty,
		leg_b_venue, leg_b_side, leg_b_order_id, leg_b_status, leg_b_fill_price, leg_b_fill_qty,
		hedge_venue, hedge_side, hedge_order_id, hedge_status, hedge_fill_price, hedge_fill_qty, hedge_filled,
		total_cost, actual_fees, net_profit, outcome, manual_intervention, error
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
	)
`

// RecordExecution persists one terminal execution result, satisfying
// internal/execution's Sink interface.
func (p *PostgresStorage) RecordExecution(ctx context.Context, result types.ExecutionResult) error {
	var hedgeVenue, hedgeSide, hedgeOrderID, hedgeStatus sql.NullString
	var hedgeFillPrice sql.NullString
	var hedgeFillQty sql.NullInt64
	var hedgeFilled sql.NullBool
	if result.Hedge != nil {
		hedgeVenue = sql.NullString{String: string(result.Hedge.Venue), Valid: true}
		hedgeSide = sql.NullString{String: string(result.Hedge.Side), Valid: true}
		hedgeOrderID = sql.NullString{String: result.Hedge.OrderID, Valid: true}
		hedgeStatus = sql.NullString{String: string(result.Hedge.Status), Valid: true}
		hedgeFillPrice = sql.NullString{String: result.Hedge.FillPrice.String(), Valid: true}
		hedgeFillQty = sql.NullInt64{Int64: result.Hedge.FillQty, Valid: true}
		hedgeFilled = sql.NullBool{Bool: result.Hedge.Filled, Valid: true}
	}

	_, err := p.db.ExecContext(ctx, insertExecutionQuery,
		p.sessionID,
		result.OpportunityID,
		result.Symbol,
		result.ExecutedAt,
		string(result.LegA.Venue), string(result.LegA.Side), result.LegA.OrderID, string(result.LegA.Status), result.LegA.FillPrice.String(), result.LegA.FillQty,
		string(result.LegB.Venue), string(result.LegB.Side), result.LegB.OrderID, string(result.LegB.Status), result.LegB.FillPrice.String(), result.LegB.FillQty,
		hedgeVenue, hedgeSide, hedgeOrderID, hedgeStatus, hedgeFillPrice, hedgeFillQty, hedgeFilled,
		result.TotalCost.String(),
		result.ActualFees.String(),
		result.NetProfit.String(),
		string(result.Outcome),
		result.ManualIntervention,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	p.logger.Debug("execution-stored",
		zap.String("opportunity_id", result.OpportunityID),
		zap.String("outcome", string(result.Outcome)))
	return nil
}

const insertSnapshotQuery = `
	INSERT INTO spread_snapshots (
		session_id, symbol, taken_at,
		venue_a_yes_ask, venue_a_no_ask, venue_b_yes_ask, venue_b_no_ask,
		venue_a_sum, venue_b_sum, parity_gap_a, parity_gap_b
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// RecordSnapshot persists one periodic cross-venue spread sample.
func (p *PostgresStorage) RecordSnapshot(ctx context.Context, snap types.SpreadSnapshot) error {
	_, err := p.db.ExecContext(ctx, insertSnapshotQuery,
		p.sessionID,
		snap.Symbol,
		snap.TakenAt,
		snap.VenueAYesAsk.String(), snap.VenueANoAsk.String(),
		snap.VenueBYesAsk.String(), snap.VenueBNoAsk.String(),
		snap.VenueASum.String(), snap.VenueBSum.String(),
		snap.ParityGapA.String(), snap.ParityGapB.String(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

var _ Storage = (*PostgresStorage)(nil)
