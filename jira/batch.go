package jira

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchWorkers is the number of requests a Batch runs at once
// unless told otherwise.
const DefaultBatchWorkers = 10

// A Batch runs queued requests concurrently.
// The first failure cancels requests not yet started.
type Batch struct {
	c       *Client
	workers int
	jobs    []func(context.Context) error
}

// NewBatch returns a batch running at most workers requests at once.
// Workers less than 1 means DefaultBatchWorkers.
func (c *Client) NewBatch(workers int) *Batch {
	if workers < 1 {
		workers = DefaultBatchWorkers
	}
	return &Batch{c: c, workers: workers}
}

// Go queues fn.
func (b *Batch) Go(fn func(ctx context.Context) error) {
	b.jobs = append(b.jobs, fn)
}

// Delete queues the deletion of the resource at u.
func (b *Batch) Delete(u string) {
	b.Go(func(ctx context.Context) error {
		return b.c.call(ctx, http.MethodDelete, rebase(u, b.c.Server), nil, nil, nil)
	})
}

// Put queues an update of the resource at u.
func (b *Batch) Put(u string, body map[string]any) {
	b.Go(func(ctx context.Context) error {
		return b.c.update(ctx, rebase(u, b.c.Server), body, true)
	})
}

// Wait runs the queued requests and returns the first error.
// The queue is empty afterwards.
func (b *Batch) Wait(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	jobs := b.jobs
	b.jobs = nil
	for _, fn := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx)
		})
	}
	return g.Wait()
}
