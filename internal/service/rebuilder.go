package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/everkeep/backend/pkg/logger"
)

type rebuildJob struct {
	memorialID string
	enqAt      time.Time
}

// LaneRebuilder runs memorial-lane rebuilds off the request path. Write-path
// handlers enqueue after bulk changes (memorial created, post removed);
// failures are logged and never escalated, since an absent cache key is
// always recoverable by lazy rebuild on the next read.
type LaneRebuilder struct {
	feed *FeedService
	ch   chan rebuildJob
}

func NewLaneRebuilder(feed *FeedService, queueSize int) *LaneRebuilder {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &LaneRebuilder{feed: feed, ch: make(chan rebuildJob, queueSize)}
}

// Start launches the worker pool and returns a stop function that drains the
// queue for a short grace period.
func (r *LaneRebuilder) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-r.ch:
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					if err := r.feed.RebuildMemorialLane(ctx, job.memorialID); err != nil {
						logger.Warn("lane rebuild failed",
							zap.String("memorial", job.memorialID),
							zap.Duration("queued", time.Since(job.enqAt)),
							zap.Error(err))
					}
					cancel()
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		timeout := time.After(2 * time.Second)
		for {
			select {
			case <-timeout:
				return nil
			default:
				if len(r.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

// Enqueue schedules a rebuild. Queue-full drops with a warning; the lane
// self-heals on the next read.
func (r *LaneRebuilder) Enqueue(memorialID string) {
	select {
	case r.ch <- rebuildJob{memorialID: memorialID, enqAt: time.Now()}:
	default:
		logger.Warn("rebuild queue full, drop", zap.String("memorial", memorialID))
	}
}

// QueueLen samples the current queue depth.
func (r *LaneRebuilder) QueueLen() int { return len(r.ch) }
