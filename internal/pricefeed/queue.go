package pricefeed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mrz1836/embersend/internal/unit"
	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// HistoricalFunc fetches one asset's quote at a past point in time.
// *Client.Historical satisfies it.
type HistoricalFunc func(ctx context.Context, symbol, currency string, at time.Time) (unit.NativeAmount, error)

// historyTask is one queued lookup with its delivery callback.
type historyTask struct {
	symbol   string
	currency string
	at       time.Time
	deliver  func(unit.NativeAmount, error)
}

// HistoryQueueConfig wires a HistoryQueue.
type HistoryQueueConfig struct {
	Fetch HistoricalFunc
	// Workers bounds concurrent lookups. Zero selects one worker, which
	// keeps lookups strictly ordered.
	Workers int
	// RatePerSecond paces item starts. Zero selects 2/s with burst 1.
	RatePerSecond float64
	// Depth bounds the number of queued lookups. Zero selects 64.
	Depth int
	Log   zerolog.Logger
}

// HistoryQueue runs historical price lookups for past transactions with
// bounded concurrency and a per-item pacing delay, so a freshly opened
// transaction list does not burst requests against the price API.
type HistoryQueue struct {
	cfg     HistoryQueueConfig
	limiter *rate.Limiter
	tasks   chan historyTask
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewHistoryQueue creates and starts a history queue.
func NewHistoryQueue(cfg HistoryQueueConfig) *HistoryQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &HistoryQueue{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), defaultBurst),
		tasks:   make(chan historyTask, cfg.Depth),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue schedules one historical lookup. The deliver callback runs on a
// worker goroutine once the lookup completes; it is never invoked after
// Close returns with a successful result.
func (q *HistoryQueue) Enqueue(symbol, currency string, at time.Time, deliver func(unit.NativeAmount, error)) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return embererr.ErrFlowClosed
	}
	q.mu.Unlock()

	task := historyTask{symbol: symbol, currency: currency, at: at, deliver: deliver}
	select {
	case q.tasks <- task:
		return nil
	default:
		return embererr.WithDetails(embererr.ErrNetworkError, map[string]string{
			"reason": "history queue full",
		})
	}
}

// Close stops the workers and waits for them to unwind. Queued lookups
// that have not started are dropped.
func (q *HistoryQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

func (q *HistoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			// The limiter wait is the per-item stagger delay.
			if err := q.limiter.Wait(q.ctx); err != nil {
				return
			}

			price, err := q.cfg.Fetch(q.ctx, task.symbol, task.currency, task.at)
			if q.ctx.Err() != nil {
				return
			}
			if err != nil {
				q.cfg.Log.Debug().Err(err).
					Str("symbol", task.symbol).
					Time("at", task.at).
					Msg("historical price lookup failed")
			}
			task.deliver(price, err)
		}
	}
}
