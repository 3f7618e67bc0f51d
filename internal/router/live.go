package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"golang.org/x/sync/errgroup"

	"main/internal/schema"
	"main/pkg/exception"
)

// LiveConfig points the live router at a venue gateway.
type LiveConfig struct {
	Endpoint     string
	Wallet       string
	FeeFloor     float64
	CallTimeout  time.Duration
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func (c LiveConfig) withDefaults() LiveConfig {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 30 * time.Second
	}
	return c
}

// Live routes through a JSON-RPC venue gateway. A swap that was
// broadcast but never confirmed within the poll budget resolves to
// exception.ErrSettlementUnknown so the pipeline will not re-submit it.
type Live struct {
	client *http.Client
	cfg    LiveConfig
	seq    atomic.Uint64
}

// NewLive builds a live router over the given HTTP client.
func NewLive(client *http.Client, cfg LiveConfig) *Live {
	if client == nil {
		client = http.DefaultClient
	}
	return &Live{client: client, cfg: cfg.withDefaults()}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// gatewayError marks a failure the gateway itself reported, as opposed
// to a transport failure reaching it.
type gatewayError struct {
	method string
	rpc    rpcError
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("rpc %s: %s (%d)", e.method, e.rpc.Message, e.rpc.Code)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type balanceResult struct {
	Lamports float64 `json:"lamports"`
}

type quoteResult struct {
	Venue string  `json:"venue"`
	Price float64 `json:"price"`
	Fee   float64 `json:"fee"`
}

type submitResult struct {
	Signature string `json:"signature"`
}

type swapStatusResult struct {
	Confirmed     bool    `json:"confirmed"`
	ExecutedPrice float64 `json:"executedPrice"`
}

func (l *Live) call(ctx context.Context, method string, params any, out any) error {
	payload, err := sonic.ConfigFastest.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      l.seq.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var data rpcResponse
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&data); err != nil {
		return err
	}
	if data.Error != nil {
		return &gatewayError{method: method, rpc: *data.Error}
	}
	return sonic.ConfigFastest.Unmarshal(data.Result, out)
}

// FindBestRoute verifies the wallet can cover fees, then quotes every
// venue concurrently and returns the highest price.
func (l *Live) FindBestRoute(ctx context.Context, tokenIn, tokenOut string, amount float64) (schema.Quote, error) {
	var balance balanceResult
	if err := l.call(ctx, "getBalance", []any{l.cfg.Wallet}, &balance); err != nil {
		return schema.Quote{}, errors.Wrap(exception.ErrRoutingTimeout, err.Error())
	}
	if balance.Lamports < l.cfg.FeeFloor {
		return schema.Quote{}, errors.Wrapf(exception.ErrRoutingInsufficientReserve,
			"wallet holds %.0f lamports, fee floor is %.0f", balance.Lamports, l.cfg.FeeFloor)
	}

	venues := []schema.Venue{schema.VenueRaydium, schema.VenueMeteora}
	quotes := make([]schema.Quote, len(venues))
	eg, quoteCtx := errgroup.WithContext(ctx)
	for i, venue := range venues {
		eg.Go(func() error {
			var result quoteResult
			err := l.call(quoteCtx, "getQuote", map[string]any{
				"venue":    string(venue),
				"tokenIn":  tokenIn,
				"tokenOut": tokenOut,
				"amount":   amount,
			}, &result)
			if err != nil {
				return errors.Wrapf(exception.ErrRoutingNoLiquidity, "venue %s: %s", venue, err.Error())
			}
			quotes[i] = schema.Quote{Venue: venue, Price: result.Price, Fee: result.Fee}
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
	return best, nil
}

// ExecuteSwap submits the swap and polls until the gateway confirms it.
func (l *Live) ExecuteSwap(ctx context.Context, venue schema.Venue, amount float64) (schema.SwapResult, error) {
	var submitted submitResult
	err := l.call(ctx, "submitSwap", map[string]any{
		"venue":  string(venue),
		"wallet": l.cfg.Wallet,
		"amount": amount,
	}, &submitted)
	if err != nil {
		if gw, ok := err.(*gatewayError); ok {
			return schema.SwapResult{}, errors.Wrap(exception.ErrSettlementRejected, gw.Error())
		}
		// The request never produced a gateway response; nothing is on
		// the chain and the attempt is safe to retry.
		return schema.SwapResult{}, errors.Wrap(exception.ErrSettlementNetwork, err.Error())
	}
	if submitted.Signature == "" {
		return schema.SwapResult{}, errors.Wrap(exception.ErrSettlementRejected, "gateway returned no signature")
	}

	// The transaction is broadcast from here on. Any failure to observe
	// its outcome must not turn into a second submission.
	pollCtx, cancel := context.WithTimeout(ctx, l.cfg.PollTimeout)
	defer cancel()
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-pollCtx.Done():
			return schema.SwapResult{}, errors.Wrapf(exception.ErrSettlementUnknown,
				"signature %s unconfirmed after %s", submitted.Signature, l.cfg.PollTimeout)
		case <-ticker.C:
		}

		var status swapStatusResult
		if err := l.call(pollCtx, "getSwapStatus", []any{submitted.Signature}, &status); err != nil {
			if pollCtx.Err() != nil {
				return schema.SwapResult{}, errors.Wrapf(exception.ErrSettlementUnknown,
					"signature %s unconfirmed after %s", submitted.Signature, l.cfg.PollTimeout)
			}
			// Transient poll failure; the signature may still land.
			continue
		}
		if status.Confirmed {
			return schema.SwapResult{
				TxHash:        submitted.Signature,
				ExecutedPrice: status.ExecutedPrice,
			}, nil
		}
	}
}
