package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work handed to an executor.
type Task func(ctx context.Context) error

// ParallelExecutor 并行执行器
//
// Runs tasks with at most maxWorkers in flight. Every task is attempted; a
// failing task does not cancel its siblings.
type ParallelExecutor struct {
	maxWorkers int
}

// NewParallelExecutor 创建并行执行器
func NewParallelExecutor(maxWorkers int) *ParallelExecutor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &ParallelExecutor{
		maxWorkers: maxWorkers,
	}
}

// Workers returns the concurrency bound.
func (p *ParallelExecutor) Workers() int {
	return p.maxWorkers
}

// Execute 并行执行
//
// The returned slice is index-aligned with tasks. A task that had not started
// when ctx was cancelled reports ctx.Err().
func (p *ParallelExecutor) Execute(ctx context.Context, tasks []Task) []error {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]error, len(tasks))

	// 顺序执行，避免无谓的 goroutine
	if p.maxWorkers == 1 || len(tasks) == 1 {
		for i, task := range tasks {
			results[i] = run(ctx, task)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(p.maxWorkers)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = run(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func run(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return task(ctx)
}
