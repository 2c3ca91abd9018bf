package pricefeed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/embersend/internal/unit"
)

// DefaultPollInterval is how often the native-price table refreshes while
// an account is active.
const DefaultPollInterval = 30 * time.Second

// SpotFunc fetches current quotes for a symbol set in one currency.
// *Client.Spot satisfies it.
type SpotFunc func(ctx context.Context, symbols []string, currency string) (map[string]unit.PriceEntry, error)

// PollerConfig wires a Poller.
type PollerConfig struct {
	Fetch    SpotFunc
	Symbols  []string
	Currency string
	// Interval between polls. Zero selects DefaultPollInterval.
	Interval time.Duration
	// OnUpdate receives each freshly built table. Called from the poll
	// goroutine, never concurrently with itself.
	OnUpdate func(*unit.PriceTable)
	Log      zerolog.Logger
}

// Poller refreshes the native price table on an interval. Polls are
// single-flight: a tick while a fetch is in flight is skipped rather than
// stacked. A currency change mid-flight invalidates the response, which
// is discarded instead of being applied to the wrong currency.
type Poller struct {
	cfg PollerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	currency string
	symbols  []string
	inFlight bool
	pending  bool
	gen      uint64
	table    *unit.PriceTable
}

// NewPoller creates a poller. Call Start to begin polling.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		currency: cfg.Currency,
		symbols:  append([]string(nil), cfg.Symbols...),
	}
}

// Start polls immediately and then on every interval tick until Close.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.poll()
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.poll()
			}
		}
	}()
}

// Close stops polling and waits for any in-flight fetch to unwind. The
// closed flag is set under the mutex so no poll can add to the wait
// group once waiting has begun.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// Table returns the most recently applied price table, nil before the
// first successful poll.
func (p *Poller) Table() *unit.PriceTable {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table
}

// SetCurrency switches the selected display currency and forces an
// immediate refresh. Any response from a poll started under the previous
// currency is discarded when it lands.
func (p *Poller) SetCurrency(currency string) {
	p.mu.Lock()
	p.currency = currency
	p.gen++
	p.mu.Unlock()
	p.poll()
}

// SetSymbols replaces the tracked symbol set, effective on the next poll.
func (p *Poller) SetSymbols(symbols []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbols = append([]string(nil), symbols...)
}

// poll runs one fetch unless one is already in flight, in which case a
// follow-up poll is queued so a currency change never goes unrefreshed.
func (p *Poller) poll() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.inFlight {
		p.pending = true
		p.mu.Unlock()
		p.cfg.Log.Debug().Msg("price poll already in flight, deferring")
		return
	}
	p.inFlight = true
	gen := p.gen
	currency := p.currency
	symbols := append([]string(nil), p.symbols...)
	// Add while holding the mutex; Close sets closed before waiting, so
	// the wait group can never grow after Wait begins.
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		entries, err := p.cfg.Fetch(p.ctx, symbols, currency)

		p.mu.Lock()
		p.inFlight = false
		repoll := p.pending
		p.pending = false
		stale := gen != p.gen || currency != p.currency || p.ctx.Err() != nil
		p.mu.Unlock()

		if repoll {
			defer p.poll()
		}
		if err != nil {
			p.cfg.Log.Warn().Err(err).Str("currency", currency).Msg("price poll failed")
			return
		}
		if stale {
			p.cfg.Log.Debug().Str("currency", currency).Msg("discarding superseded price poll")
			return
		}

		table := unit.NewPriceTable(currency, map[string]map[string]unit.PriceEntry{
			currency: entries,
		})
		p.mu.Lock()
		p.table = table
		p.mu.Unlock()

		if p.cfg.OnUpdate != nil {
			p.cfg.OnUpdate(table)
		}
	}()
}
