package trace

import (
	"fmt"
	"strings"
)

// Filter narrows an execution query. Zero value selects everything.
type Filter struct {
	RunID      string
	Op         string
	Routing    string // "local", "remote", or "" for both
	FailedOnly bool
	Limit      int
}

// compileFilter builds the parameterized query for a filter.
//
// Every query includes ORDER BY (run_id, seq) so results are
// deterministic; values are always bound as parameters, never
// interpolated.
func compileFilter(f Filter) (string, []any, error) {
	if f.Routing != "" && f.Routing != "local" && f.Routing != "remote" {
		return "", nil, fmt.Errorf("unrecognized routing filter %q", f.Routing)
	}

	var conds []string
	var params []any
	if f.RunID != "" {
		conds = append(conds, "run_id = ?")
		params = append(params, f.RunID)
	}
	if f.Op != "" {
		conds = append(conds, "op = ?")
		params = append(params, f.Op)
	}
	if f.Routing != "" {
		conds = append(conds, "routing = ?")
		params = append(params, f.Routing)
	}
	if f.FailedOnly {
		conds = append(conds, "err != ''")
	}

	q := "SELECT run_id, seq, instr_id, label, op, routing, worker, at, err FROM executions"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY run_id COLLATE BINARY ASC, seq ASC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		params = append(params, f.Limit)
	}
	return q, params, nil
}
