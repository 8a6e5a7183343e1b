package rtags

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xenodium/rtags/internal/buildlog"
	"github.com/xenodium/rtags/internal/deps"
	"github.com/xenodium/rtags/internal/index"
)

// walkParallel walks translation units concurrently. Each worker collects
// into a private table; the private tables are merged into the shared one
// serially, in command order, so the dedup outcome matches the serial path.
func (e *Engine) walkParallel(ctx context.Context, table *index.Table, cmds []buildlog.Command) ([]deps.Record, error) {
	type result struct {
		table  *index.Table
		record deps.Record
		ok     bool
	}
	results := make([]result, len(cmds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, cmd := range cmds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			private := index.NewTable()
			rec, ok := e.walkUnit(ctx, private, cmd)
			results[i] = result{table: private, record: rec, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []deps.Record
	for _, r := range results {
		if !r.ok {
			continue
		}
		table.Merge(r.table)
		records = append(records, r.record)
	}
	return records, nil
}
