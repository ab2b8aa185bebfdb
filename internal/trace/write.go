package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/tensorlane/tensorlane/internal/vm"
)

// WriteExecution inserts one execution record.
// Uses ON CONFLICT DO NOTHING for idempotency: re-recording the same
// (run, seq) or the same instruction within a run is silently ignored,
// so replaying a recorder stream into an existing trace is safe.
func (s *Store) WriteExecution(ctx context.Context, x vm.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(run_id, seq, instr_id, label, op, routing, worker, at, err)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		x.RunID,
		x.Seq,
		x.InstrID,
		x.Label,
		x.Op,
		x.Routing.String(),
		x.Worker,
		x.At.UTC().Format(time.RFC3339Nano),
		x.Err,
	)
	if err != nil {
		return fmt.Errorf("write execution: %w", err)
	}
	return nil
}

// RecordExecution implements vm.Recorder, so a Store can be handed to a
// run directly via vm.WithRecorder.
func (s *Store) RecordExecution(x vm.Execution) error {
	return s.WriteExecution(context.Background(), x)
}
