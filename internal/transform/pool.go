package transform

import (
	"context"

	"golang.org/x/sync/errgroup"

	"vcfdb/internal/vcf"
)

// Job pairs a record with its assigned primary key.
type Job struct {
	Rec *vcf.Record
	ID  int64
}

type result struct {
	row *Row
	err error
}

// Stream transforms jobs on a bounded worker pool while preserving input
// order on the output channel: primary keys leave in exactly the order they
// arrived, so the loader never reorders rows across a batch boundary.
//
// Ordering uses a channel-of-channels relay: the dispatcher hands every job a
// one-shot result slot and queues the slots in input order; workers fill
// their slot whenever they finish; the collector drains slots in queue order.
// The wait function reports the first error after the output channel closes.
func (t *Transformer) Stream(ctx context.Context, workers int, jobs <-chan Job) (<-chan *Row, func() error) {
	if workers < 1 {
		workers = 1
	}
	out := make(chan *Row, workers)
	slots := make(chan chan result, workers)

	g, ctx := errgroup.WithContext(ctx)

	var pool errgroup.Group
	pool.SetLimit(workers)

	g.Go(func() error {
		defer close(slots)
		for {
			var (
				job Job
				ok  bool
			)
			select {
			case job, ok = <-jobs:
				if !ok {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			}
			slot := make(chan result, 1)
			select {
			case slots <- slot:
			case <-ctx.Done():
				return ctx.Err()
			}
			pool.Go(func() error {
				row, err := t.Transform(job.Rec, job.ID)
				slot <- result{row: row, err: err}
				return nil
			})
		}
	})

	g.Go(func() error {
		defer close(out)
		for slot := range slots {
			r := <-slot
			if r.err != nil {
				return r.err
			}
			select {
			case out <- r.row:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	wait := func() error {
		err := g.Wait()
		_ = pool.Wait()
		return err
	}
	return out, wait
}
