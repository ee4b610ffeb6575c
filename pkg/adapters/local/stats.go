package local

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// shardMinRows keeps small tables on a single goroutine.
const shardMinRows = 4096

// countDuplicates counts rows whose projection onto cols repeats an earlier row.
// An empty cols means every column. Large tables are split across shards and
// the per-shard key sets are merged afterwards.
func countDuplicates(ctx context.Context, f *frame, cols []string) (int, error) {
	if len(cols) == 0 {
		cols = f.Cols
	}
	for _, c := range cols {
		if _, err := f.column(c); err != nil {
			return 0, err
		}
	}
	if f.Rows == 0 {
		return 0, nil
	}

	workers := 1
	if f.Rows >= shardMinRows {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (f.Rows + workers - 1) / workers

	type shard struct {
		seen map[string]struct{}
		dups int
	}
	shards := make([]shard, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, f.Rows)
		if start >= end {
			break
		}
		g.Go(func() error {
			s := shard{seen: make(map[string]struct{}, end-start)}
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				k := key(f.row(i, cols))
				if _, ok := s.seen[k]; ok {
					s.dups++
					continue
				}
				s.seen[k] = struct{}{}
			}
			shards[w] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	global := make(map[string]struct{})
	for _, s := range shards {
		total += s.dups
		for k := range s.seen {
			if _, ok := global[k]; ok {
				total++
				continue
			}
			global[k] = struct{}{}
		}
	}
	return total, nil
}

func countDistinct(ctx context.Context, f *frame, cols []string) (int, error) {
	dups, err := countDuplicates(ctx, f, cols)
	if err != nil {
		return 0, err
	}
	return f.Rows - dups, nil
}

// collect returns the values of col, or an empty list when the column does not exist.
func collect(f *frame, col string) []any {
	values, ok := f.Data[col]
	if !ok {
		return []any{}
	}
	return values
}
