package router

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"main/internal/schema"
	"main/pkg/exception"
)

// SimConfig controls the simulated router behavior. Failure rates inject
// deterministic faults when combined with a fixed seed.
type SimConfig struct {
	Seed            int64
	BasePrices      map[string]float64
	MinQuoteLatency time.Duration
	MaxQuoteLatency time.Duration
	MinSwapLatency  time.Duration
	MaxSwapLatency  time.Duration
	QuoteFailRate   float64
	SwapRejectRate  float64
	SwapNetworkRate float64
	MaxSlippage     float64
}

// DefaultSimConfig mirrors observed devnet behavior: 200-300ms quotes,
// 1.5-2.5s settlement, up to 0.5% slippage.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		BasePrices:      map[string]float64{"SOL": 150.00},
		MinQuoteLatency: 200 * time.Millisecond,
		MaxQuoteLatency: 300 * time.Millisecond,
		MinSwapLatency:  1500 * time.Millisecond,
		MaxSwapLatency:  2500 * time.Millisecond,
		MaxSlippage:     0.005,
	}
}

// Validate ensures the config is within supported ranges.
func (c SimConfig) Validate() error {
	for name, rate := range map[string]float64{
		"quoteFailRate":   c.QuoteFailRate,
		"swapRejectRate":  c.SwapRejectRate,
		"swapNetworkRate": c.SwapNetworkRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.MinQuoteLatency < 0 || c.MaxQuoteLatency < c.MinQuoteLatency {
		return fmt.Errorf("quote latency range is invalid")
	}
	if c.MinSwapLatency < 0 || c.MaxSwapLatency < c.MinSwapLatency {
		return fmt.Errorf("swap latency range is invalid")
	}
	if c.MaxSlippage < 0 || c.MaxSlippage > 1 {
		return fmt.Errorf("maxSlippage must be between 0 and 1")
	}
	return nil
}

// venueSpread defines per-venue price variance bounds and fee.
type venueSpread struct {
	venue schema.Venue
	min   float64
	max   float64
	fee   float64
}

var spreads = []venueSpread{
	{venue: schema.VenueRaydium, min: 0.98, max: 1.02, fee: 0.0025},
	{venue: schema.VenueMeteora, min: 0.97, max: 1.03, fee: 0.001},
}

// Simulated models venue latency, price variance, slippage, and injected
// faults without touching a ledger.
type Simulated struct {
	cfg SimConfig

	mu         sync.Mutex
	rng        *rand.Rand
	lastQuoted map[schema.Venue]decimal.Decimal
}

// NewSimulated validates the config and builds a simulated router.
func NewSimulated(cfg SimConfig) (*Simulated, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	if len(cfg.BasePrices) == 0 {
		cfg.BasePrices = DefaultSimConfig().BasePrices
	}
	return &Simulated{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		lastQuoted: make(map[schema.Venue]decimal.Decimal),
	}, nil
}

// FindBestRoute quotes every venue concurrently and returns the highest
// price (the order sells tokenIn).
func (s *Simulated) FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amount float64) (schema.Quote, error) {
	base, ok := s.cfg.BasePrices[tokenIn]
	if !ok {
		return schema.Quote{}, errors.Wrapf(exception.ErrRoutingNoLiquidity, "pair %s/%s", tokenIn, tokenOut)
	}

	quotes := make([]schema.Quote, len(spreads))
	eg, quoteCtx := errgroup.WithContext(ctx)
	for i, spread := range spreads {
		eg.Go(func() error {
			quote, err := s.venueQuote(quoteCtx, spread, base)
			if err != nil {
				return err
			}
			quotes[i] = quote
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return schema.Quote{}, err
	}

	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.Price > best.Price {
			best = q
		}
	}
	logs.Infof("quotes for %s/%s: %s $%.4f | %s $%.4f -> best %s",
		tokenIn, tokenOut, quotes[0].Venue, quotes[0].Price, quotes[1].Venue, quotes[1].Price, best.Venue)
	return best, nil
}

// ExecuteSwap settles against the venue's last quoted price with random
// slippage.
func (s *Simulated) ExecuteSwap(ctx context.Context, venue schema.Venue, amount float64) (schema.SwapResult, error) {
	if err := s.sleep(ctx, s.cfg.MinSwapLatency, s.cfg.MaxSwapLatency); err != nil {
		return schema.SwapResult{}, errors.Wrap(exception.ErrSettlementNetwork, err.Error())
	}
	if s.roll(s.cfg.SwapRejectRate) {
		return schema.SwapResult{}, errors.Wrapf(exception.ErrSettlementRejected, "venue %s", venue)
	}
	if s.roll(s.cfg.SwapNetworkRate) {
		return schema.SwapResult{}, errors.Wrapf(exception.ErrSettlementNetwork, "venue %s", venue)
	}

	price := s.quotedPrice(venue)
	slippage := decimal.NewFromFloat(1 - s.float64()*s.cfg.MaxSlippage)
	executed := price.Mul(slippage).Round(8)

	return schema.SwapResult{
		TxHash:        s.txHash(),
		ExecutedPrice: executed.InexactFloat64(),
	}, nil
}

func (s *Simulated) venueQuote(ctx context.Context, spread venueSpread, base float64) (schema.Quote, error) {
	if err := s.sleep(ctx, s.cfg.MinQuoteLatency, s.cfg.MaxQuoteLatency); err != nil {
		return schema.Quote{}, err
	}
	if s.roll(s.cfg.QuoteFailRate) {
		return schema.Quote{}, errors.Wrapf(exception.ErrRoutingInsufficientReserve, "venue %s", spread.venue)
	}

	variance := spread.min + s.float64()*(spread.max-spread.min)
	price := decimal.NewFromFloat(base).Mul(decimal.NewFromFloat(variance)).Round(8)

	s.mu.Lock()
	s.lastQuoted[spread.venue] = price
	s.mu.Unlock()

	return schema.Quote{
		Venue: spread.venue,
		Price: price.InexactFloat64(),
		Fee:   spread.fee,
	}, nil
}

func (s *Simulated) quotedPrice(venue schema.Venue) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if price, ok := s.lastQuoted[venue]; ok {
		return price
	}
	return decimal.NewFromFloat(100)
}

func (s *Simulated) sleep(ctx context.Context, min, max time.Duration) error {
	wait := min
	if max > min {
		wait += time.Duration(s.float64() * float64(max-min))
	}
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulated) roll(rate float64) bool {
	return rate > 0 && s.float64() < rate
}

func (s *Simulated) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulated) txHash() string {
	s.mu.Lock()
	nonce := s.rng.Uint64()
	s.mu.Unlock()
	return fmt.Sprintf("sim_tx_%016x_%d", nonce, time.Now().UTC().UnixNano())
}
