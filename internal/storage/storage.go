// Package storage implements the persistence sink: opportunities,
// execution results, and periodic spread snapshots, each tagged with a
// session id, behind a console and a Postgres implementation of the same
// interface.
package storage

import (
	"context"

	"github.com/parityarb/xvenue-arb/pkg/types"
)

// Storage is the persistence sink. internal/execution's Sink interface is
// satisfied structurally by RecordExecution alone; the Detector/Gate path
// and the periodic snapshot sweeper use the other two methods.
type Storage interface {
	RecordOpportunity(ctx context.Context, opp types.Opportunity) error
	RecordExecution(ctx context.Context, result types.ExecutionResult) error
	RecordSnapshot(ctx context.Context, snap types.SpreadSnapshot) error
	Close() error
}
