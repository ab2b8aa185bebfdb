package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/tensorlane/tensorlane/internal/instr"
	"github.com/tensorlane/tensorlane/internal/vm"
)

// Executions returns the recorded executions matching a filter, ordered
// by run and sequence number.
func (s *Store) Executions(ctx context.Context, f Filter) ([]vm.Execution, error) {
	q, params, err := compileFilter(f)
	if err != nil {
		return nil, fmt.Errorf("read executions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, fmt.Errorf("read executions: %w", err)
	}
	defer rows.Close()

	var out []vm.Execution
	for rows.Next() {
		var x vm.Execution
		var routing, at string
		if err := rows.Scan(&x.RunID, &x.Seq, &x.InstrID, &x.Label,
			&x.Op, &routing, &x.Worker, &at, &x.Err); err != nil {
			return nil, fmt.Errorf("read executions: %w", err)
		}
		x.Routing, err = instr.ParseRouting(routing)
		if err != nil {
			return nil, fmt.Errorf("read executions: row seq %d: %w", x.Seq, err)
		}
		x.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("read executions: row seq %d: %w", x.Seq, err)
		}
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read executions: %w", err)
	}
	return out, nil
}

// RunSummary aggregates one run's trace.
type RunSummary struct {
	RunID    string
	Steps    int64
	Failures int64
	LastSeq  int64
}

// Runs lists the recorded runs, most recently sequenced last.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id,
		       COUNT(*),
		       SUM(CASE WHEN err != '' THEN 1 ELSE 0 END),
		       MAX(seq)
		FROM executions
		GROUP BY run_id
		ORDER BY run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Steps, &r.Failures, &r.LastSeq); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}
