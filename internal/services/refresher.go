package services

import (
	"context"
	"sync"
	"time"
)

const (
	refreshQueueSize = 64
	refreshBatchSize = 8
)

// Refresher 异步重建统计缓存。写操作只负责失效，
// 后台 worker 合并请求后重新计算，读请求通常命中热缓存
type Refresher struct {
	stats    *StatsService
	queue    chan string // 待重建的缓存 key
	pending  map[string]bool
	mu       sync.Mutex
	interval time.Duration
}

func newRefresher(stats *StatsService, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Refresher{
		stats:    stats,
		queue:    make(chan string, refreshQueueSize),
		pending:  make(map[string]bool),
		interval: interval,
	}
}

// Schedule 将 key 加入重建队列，已在队列中的 key 会被跳过
func (r *Refresher) Schedule(key string) {
	r.mu.Lock()
	if r.pending[key] {
		r.mu.Unlock()
		return
	}
	r.pending[key] = true
	r.mu.Unlock()

	select {
	case r.queue <- key:
	default:
		// 队列满了，下一次读取时同步计算
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
		r.stats.logger.Warn("stats refresh queue full, skipping", "key", key)
	}
}

// Pending reports how many keys are waiting to be rebuilt.
func (r *Refresher) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Run processes the queue until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	batch := make([]string, 0, refreshBatchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case key := <-r.queue:
			batch = append(batch, key)
			if len(batch) >= refreshBatchSize {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Refresher) processBatch(ctx context.Context, keys []string) {
	for _, key := range keys {
		// 先清除 pending，期间的新失效会重新入队
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()

		if err := r.refresh(ctx, key); err != nil {
			r.stats.logger.WarnContext(ctx, "stats refresh failed", "key", key, "error", err)
		}
	}
}

// refresh 直接重新计算，不读缓存，确保旧值被覆盖
func (r *Refresher) refresh(ctx context.Context, key string) error {
	return r.stats.rebuild(ctx, key)
}
