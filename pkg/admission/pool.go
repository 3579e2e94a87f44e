package admission

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"cdpsession/pkg/model"
)

// Pool 计数许可准入池，限制同时活跃的出站连接/会话数
//
// Acquire 是核心层唯一可能长时间挂起调用方的操作。等待者按先来先得的顺序获得许可；
// 调用方 context 结束时放弃等待且不占用许可；Close 会以 ErrPoolClosed 唤醒所有等待者。
type Pool struct {
	capacity int
	sem      *semaphore.Weighted

	done   context.Context
	cancel context.CancelFunc

	outstanding atomic.Int64
	waiting     atomic.Int64
	peak        atomic.Int64
}

// New 创建容量为 capacity 的准入池
func New(capacity int) (*Pool, error) {
	if capacity <= 0 {
		return nil, &model.ConfigurationError{
			Component: "admission",
			Field:     "capacity",
			Value:     capacity,
			Reason:    "must be a positive integer",
		}
	}
	done, cancel := context.WithCancel(context.Background())
	return &Pool{
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
		done:     done,
		cancel:   cancel,
	}, nil
}

// Acquire 阻塞直到获得一个许可
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.done.Err() != nil {
		return nil, model.ErrPoolClosed
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.done, cancel)
	defer stop()

	p.waiting.Add(1)
	err := p.sem.Acquire(waitCtx, 1)
	p.waiting.Add(-1)
	if err != nil {
		if p.done.Err() != nil {
			return nil, model.ErrPoolClosed
		}
		return nil, ctx.Err()
	}
	if p.done.Err() != nil {
		p.sem.Release(1)
		return nil, model.ErrPoolClosed
	}

	n := p.outstanding.Add(1)
	for {
		cur := p.peak.Load()
		if n <= cur || p.peak.CompareAndSwap(cur, n) {
			break
		}
	}
	return &Lease{id: uuid.NewString(), pool: p}, nil
}

// Do 在持有许可期间执行 fn，fn 返回（包括 panic）后归还许可
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(ctx)
}

// Close 关闭准入池，唤醒全部等待者；已发放的许可仍可正常归还
func (p *Pool) Close() {
	p.cancel()
}

func (p *Pool) Closed() bool { return p.done.Err() != nil }

func (p *Pool) Capacity() int { return p.capacity }

// Outstanding 当前已发放未归还的许可数
func (p *Pool) Outstanding() int64 { return p.outstanding.Load() }

// Waiting 当前挂起等待的调用方数量
func (p *Pool) Waiting() int64 { return p.waiting.Load() }

func (p *Pool) Stats() model.PoolStats {
	return model.PoolStats{
		Capacity:    p.capacity,
		Outstanding: p.outstanding.Load(),
		Waiting:     p.waiting.Load(),
		Peak:        p.peak.Load(),
		Closed:      p.Closed(),
	}
}

func (p *Pool) release() {
	p.outstanding.Add(-1)
	p.sem.Release(1)
}

// Lease 一个已准入的并发单位
type Lease struct {
	id   string
	pool *Pool
	once sync.Once
}

func (l *Lease) ID() string { return l.id }

// Release 归还许可，重复调用无副作用
func (l *Lease) Release() {
	l.once.Do(l.pool.release)
}
