package processor

import "sync"

// Progress is a snapshot of batch progress handed to a ProgressFunc.
type Progress struct {
	Index     int
	Completed int
	Failed    int
	Total     int
	Err       error
}

// Percentage returns (completed+failed)/total in percent.
func (p Progress) Percentage() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed+p.Failed) / float64(p.Total) * 100
}

// ProgressFunc is called once per finished batch item. Calls are serialized.
type ProgressFunc func(Progress)

// progressTracker 进度追踪器
type progressTracker struct {
	mu        sync.Mutex
	total     int
	completed int
	failed    int
	notify    ProgressFunc
}

func newProgressTracker(total int, notify ProgressFunc) *progressTracker {
	return &progressTracker{total: total, notify: notify}
}

// done records the outcome of item index and notifies under the lock so
// callbacks observe a monotonic count.
func (t *progressTracker) done(index int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.failed++
	} else {
		t.completed++
	}
	if t.notify != nil {
		t.notify(Progress{
			Index:     index,
			Completed: t.completed,
			Failed:    t.failed,
			Total:     t.total,
			Err:       err,
		})
	}
}
