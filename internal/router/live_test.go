package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"main/internal/schema"
	"main/pkg/exception"
)

type gatewayStub struct {
	balance   float64
	prices    map[string]float64
	rejectMsg string
	confirmed bool
}

func (g *gatewayStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		reply := func(result any) {
			raw, _ := json.Marshal(result)
			json.NewEncoder(w).Encode(rpcResponse{Result: raw})
		}
		switch req.Method {
		case "getBalance":
			reply(balanceResult{Lamports: g.balance})
		case "getQuote":
			var p struct {
				Venue string `json:"venue"`
			}
			json.Unmarshal(req.Params, &p)
			reply(quoteResult{Venue: p.Venue, Price: g.prices[p.Venue], Fee: 0.0025})
		case "submitSwap":
			if g.rejectMsg != "" {
				json.NewEncoder(w).Encode(rpcResponse{Error: &rpcError{Code: -32002, Message: g.rejectMsg}})
				return
			}
			reply(submitResult{Signature: "sig_live_1"})
		case "getSwapStatus":
			reply(swapStatusResult{Confirmed: g.confirmed, ExecutedPrice: 149.25})
		default:
			json.NewEncoder(w).Encode(rpcResponse{Error: &rpcError{Code: -32601, Message: "unknown method"}})
		}
	}
}

func newLiveAgainst(t *testing.T, stub *gatewayStub) (*Live, func()) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	live := NewLive(srv.Client(), LiveConfig{
		Endpoint:     srv.URL,
		Wallet:       "wallet1",
		FeeFloor:     5000,
		CallTimeout:  time.Second,
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  100 * time.Millisecond,
	})
	return live, srv.Close
}

func TestLiveFeeFloor(t *testing.T) {
	live, stop := newLiveAgainst(t, &gatewayStub{balance: 100})
	defer stop()

	_, err := live.FindBestRoute(t.Context(), "SOL", "USDC", 1)
	if !errors.Is(err, exception.ErrRoutingInsufficientReserve) {
		t.Fatalf("got %v, want ErrRoutingInsufficientReserve", err)
	}
}

func TestLivePicksBestQuote(t *testing.T) {
	stub := &gatewayStub{
		balance: 10000,
		prices:  map[string]float64{"Raydium": 149.5, "Meteora": 151.2},
	}
	live, stop := newLiveAgainst(t, stub)
	defer stop()

	quote, err := live.FindBestRoute(t.Context(), "SOL", "USDC", 1)
	if err != nil {
		t.Fatalf("find best route: %v", err)
	}
	if quote.Venue != schema.VenueMeteora {
		t.Fatalf("picked %q, want Meteora", quote.Venue)
	}
	if quote.Price != 151.2 {
		t.Fatalf("price %.4f, want 151.2", quote.Price)
	}
}

func TestLiveSubmitRejected(t *testing.T) {
	live, stop := newLiveAgainst(t, &gatewayStub{rejectMsg: "slippage tolerance exceeded"})
	defer stop()

	_, err := live.ExecuteSwap(t.Context(), schema.VenueRaydium, 1)
	if !errors.Is(err, exception.ErrSettlementRejected) {
		t.Fatalf("got %v, want ErrSettlementRejected", err)
	}
}

func TestLiveSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	live := NewLive(srv.Client(), LiveConfig{Endpoint: srv.URL, CallTimeout: 200 * time.Millisecond})
	srv.Close()

	_, err := live.ExecuteSwap(t.Context(), schema.VenueRaydium, 1)
	if !errors.Is(err, exception.ErrSettlementNetwork) {
		t.Fatalf("got %v, want ErrSettlementNetwork", err)
	}
}

func TestLiveUnconfirmedResolvesUnknown(t *testing.T) {
	live, stop := newLiveAgainst(t, &gatewayStub{confirmed: false})
	defer stop()

	_, err := live.ExecuteSwap(t.Context(), schema.VenueRaydium, 1)
	if !errors.Is(err, exception.ErrSettlementUnknown) {
		t.Fatalf("got %v, want ErrSettlementUnknown", err)
	}
	if exception.Retryable(err) {
		t.Fatal("unknown settlement outcome must not be retryable")
	}
}

func TestLiveConfirmedSwap(t *testing.T) {
	live, stop := newLiveAgainst(t, &gatewayStub{confirmed: true})
	defer stop()

	result, err := live.ExecuteSwap(t.Context(), schema.VenueRaydium, 1)
	if err != nil {
		t.Fatalf("execute swap: %v", err)
	}
	if result.TxHash != "sig_live_1" {
		t.Fatalf("tx hash %q, want sig_live_1", result.TxHash)
	}
	if result.ExecutedPrice != 149.25 {
		t.Fatalf("executed price %.4f, want 149.25", result.ExecutedPrice)
	}
}
